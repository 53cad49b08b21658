package middleware

import (
	"net/http"
	"time"

	"github.com/bitway/bitway-api/internal/api/problem"
	"github.com/go-chi/httprate"
)

const rateLimitedCode = "rate/limited"

// PublicRateLimiter limits unauthenticated routes per client IP, honouring X-Forwarded-For
// and X-Real-IP set by the load balancer.
func PublicRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceeded("Too many requests, please slow down")),
	)
}

// AuthRateLimiter limits authenticated routes per user, falling back to the client IP.
func AuthRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if userID := UserIDFromContext(r.Context()); userID != "" {
				return "user:" + userID, nil
			}
			return httprate.KeyByRealIP(r)
		}),
		httprate.WithLimitHandler(limitExceeded("Too many requests for this account, please slow down")),
	)
}

func limitExceeded(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		problem.Write(w, r, http.StatusTooManyRequests, rateLimitedCode, message, nil)
	}
}
