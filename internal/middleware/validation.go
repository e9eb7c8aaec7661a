package middleware

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/neurochat-ai/neurochat/internal/model"
)

// MaxBodyBytes caps request bodies.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON rejects POST and PUT requests whose body is not JSON.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if r.ContentLength != 0 && (err != nil || mediaType != "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_ = json.NewEncoder(w).Encode(model.ErrorResponse{
					Code:    "unsupported_media_type",
					Message: "content type must be application/json",
					Level:   "error",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
