// Package ratelimit gates outgoing completion requests per session.
package ratelimit

import (
	"time"

	"github.com/neurochat-ai/neurochat/internal/model"
)

// Allow reports whether a request may be sent at now. On success it records
// now as the last request time; on denial the state is left untouched.
// There is no burst credit: at most one request passes per minInterval.
func Allow(state *model.ConversationState, now time.Time, minInterval time.Duration) bool {
	if !state.LastRequestTime.IsZero() && now.Sub(state.LastRequestTime) < minInterval {
		return false
	}
	state.LastRequestTime = now
	return true
}

// Remaining returns how long the caller must wait before Allow succeeds.
func Remaining(state *model.ConversationState, now time.Time, minInterval time.Duration) time.Duration {
	if state.LastRequestTime.IsZero() {
		return 0
	}
	wait := minInterval - now.Sub(state.LastRequestTime)
	if wait < 0 {
		return 0
	}
	return wait
}
