package apihttp

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pipeworks/taskmesh/internal/auth"
	"github.com/pipeworks/taskmesh/internal/metrics"
	"github.com/pipeworks/taskmesh/internal/model"
)

type ctxKey int

const (
	ctxKeyTraceID ctxKey = iota
	ctxKeyAPIKeyRecord
)

// traceIDMiddleware stamps every request with a trace ID (from the
// server's ID generator) and echoes it on the X-Trace-ID response header
// (§6), so every downstream log line can carry it (§7: "never lose the
// trace ID").
func traceIDMiddleware(ids IDGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := ids.NextString()
			w.Header().Set("X-Trace-ID", traceID)
			ctx := context.WithValue(r.Context(), ctxKeyTraceID, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func traceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyTraceID).(string)
	return v
}

// authMiddleware validates the X-API-Key header against authorizer and
// attaches the resolved record to the request context.
func authMiddleware(authorizer auth.Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := auth.ExtractAPIKey(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error(), traceIDFromContext(r.Context()), nil)
				return
			}
			record, err := authorizer.Authorize(r.Context(), key)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error(), traceIDFromContext(r.Context()), nil)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyAPIKeyRecord, record)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func apiKeyFromContext(ctx context.Context) *model.APIKeyRecord {
	v, _ := ctx.Value(ctxKeyAPIKeyRecord).(*model.APIKeyRecord)
	return v
}

// rateLimitMiddleware enforces the caller's tier rate limit and sets the
// X-RateLimit-* response headers (§6), returning 429 with the documented
// error body on exceed. Must run after authMiddleware.
func rateLimitMiddleware(limiter *auth.RateLimiter, tierLimits func(tier string) auth.TierLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			record := apiKeyFromContext(r.Context())
			if record == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated client", traceIDFromContext(r.Context()), nil)
				return
			}

			limits := tierLimits(string(record.Tier))
			if record.RateLimitOverride > 0 {
				limits.RequestsPerMinute = record.RateLimitOverride
			}

			result, err := limiter.Allow(r.Context(), record.ClientID, limits)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), traceIDFromContext(r.Context()), nil)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				metrics.RateLimitRejectionsTotal.WithLabelValues(string(record.Tier)).Inc()
				writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"rate limit exceeded", traceIDFromContext(r.Context()),
					map[string]interface{}{
						"limit":    result.Limit,
						"period":   "minute",
						"reset_at": result.ResetAt.Format(time.RFC3339),
					})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// securityHeadersMiddleware sets the standard security headers §6 calls
// for alongside the trace/rate-limit headers.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records taskmesh_http_requests_total by route template
// and status code.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
