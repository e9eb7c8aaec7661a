package handler

import (
	_ "embed"
	"net/http"
)

//go:embed web/index.html
var indexHTML []byte

// Page handles GET / and serves the chat page.
func Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}
