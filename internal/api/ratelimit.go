package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"ideias/internal/constants"
)

// rateLimit limits requests per client IP over a sliding window and answers
// with a rate_limited error body once the budget is spent.
func rateLimit(limit int, window time.Duration, resolver *ClientIPResolver) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(retryAfterSeconds(window))
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return resolver.Resolve(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			writeError(w, http.StatusTooManyRequests, constants.ErrCodeRateLimited, "Too many requests, please try again later")
		}),
	)
}

func retryAfterSeconds(window time.Duration) int {
	if window <= 0 {
		return 1
	}
	return int(math.Ceil(window.Seconds()))
}
