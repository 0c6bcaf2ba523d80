package middleware

import (
	"net/http"
	"strconv"

	"github.com/upb/recipe-api/internal/observability"
	"github.com/upb/recipe-api/utils"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests with 429 once limiter runs out of tokens.
// metrics may be nil.
func RateLimit(limiter *rate.Limiter, metrics *observability.Metrics) func(http.Handler) http.Handler {
	limit := strconv.FormatFloat(float64(limiter.Limit()), 'f', -1, 64)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				if metrics != nil {
					metrics.RateLimitRejects.Inc()
				}
				w.Header().Set("Retry-After", "1")
				_ = utils.WriteTooManyRequests(w, "")
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			next.ServeHTTP(w, r)
		})
	}
}
