// Package ratelimit throttles mutating requests per client address.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/httprate"
)

const defaultPerMinute = 60

// Limiter wraps httprate's sliding window counter. Only requests that
// change the ledger are counted.
type Limiter struct {
	limit    int
	window   time.Duration
	rejected atomic.Int64
}

type Config struct {
	RequestsPerMinute int
}

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaultPerMinute
	}
	return &Limiter{limit: config.RequestsPerMinute, window: time.Minute}
}

// Metrics is reported by the readiness endpoint.
type Metrics struct {
	LimitPerMinute int   `json:"limit_per_minute"`
	Rejected       int64 `json:"rejected"`
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{LimitPerMinute: rl.limit, Rejected: rl.rejected.Load()}
}

// Middleware rejects mutating requests over the limit, keyed by clientIP.
// GET, HEAD and OPTIONS pass through uncounted. onLimit may be nil for a
// plain 429.
func (rl *Limiter) Middleware(clientIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	limited := httprate.Limit(rl.limit, rl.window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return clientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			rl.rejected.Add(1)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}),
	)

	return func(next http.Handler) http.Handler {
		guarded := limited(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}
