package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/healthradar/internal/api/response"
	"github.com/kiranshivaraju/healthradar/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// RateLimit counts requests per health worker in fixed one-minute windows
// held in Redis.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
	now            func() time.Time
}

// NewRateLimit creates the middleware. A non-positive limit uses 60/min.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin, now: time.Now}
}

// Limit must run after Authenticate. All keys of one worker share a budget;
// unauthenticated requests pass through.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := rateSubject(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		windowStart := now.Truncate(rateWindow)
		windowEnd := windowStart.Add(rateWindow)

		count, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(subject, windowStart), rateWindow)
		if err != nil {
			slog.Warn("rate limit unavailable, allowing request", "error", err, "subject", subject)
			next.ServeHTTP(w, r)
			return
		}

		remaining := max(rl.requestsPerMin-int(count), 0)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(windowEnd.Unix(), 10))

		if count > int64(rl.requestsPerMin) {
			retry := int(windowEnd.Sub(now).Round(time.Second) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", map[string]any{"limit_per_minute": rl.requestsPerMin})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func rateSubject(r *http.Request) (string, bool) {
	if id, ok := GetWorkerID(r); ok {
		return "worker:" + id.String(), true
	}
	if prefix, ok := getKeyPrefix(r); ok {
		return "key:" + prefix, true
	}
	return "", false
}
