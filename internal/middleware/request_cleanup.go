package middleware

import (
	"io"
	"net/http"
)

// MaxRequestBodyBytes caps request bodies; a weight entry is well under 1KB.
const MaxRequestBodyBytes = 64 << 10

// DrainAndCloseRequest limits the request body to maxBodyBytes and, once the handler is done,
// discards what it left unread so the connection can be reused.
func DrainAndCloseRequest(maxBodyBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && maxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			}
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.Copy(io.Discard, r.Body)
				_ = r.Body.Close()
			}
		})
	}
}
