package apihttp

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// recoveryMiddleware intercepts panics from downstream handlers, logs
// details, and returns a 500, matching the teacher's recovery middleware
// (internal/api/recovery/middleware.go).
func recoveryMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", "", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
