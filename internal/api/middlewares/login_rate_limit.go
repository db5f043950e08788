package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/5w1tchy/book-reviews/internal/api/apperr"
	"github.com/redis/go-redis/v9"
)

// LoginRateLimit caps attempts per client IP on the credential endpoints.
// A nil rdb switches to an in-process limiter with the same budget.
func LoginRateLimit(rdb *redis.Client, maxAttempts int, win time.Duration) func(http.Handler) http.Handler {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if win <= 0 {
		win = 5 * time.Minute
	}
	var local *LocalLimiter
	if rdb == nil {
		local = NewLocalLimiter(float64(maxAttempts)/win.Seconds(), maxAttempts, PerIPKey("rl:login"))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if ip == "" {
				next.ServeHTTP(w, r)
				return
			}

			if local != nil {
				if ok, wait := local.Allow("rl:login:" + ip); !ok {
					sec := max(1, int((wait+time.Second-1)/time.Second))
					denyLogin(w, r, sec)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := "rl:login:" + ip

			// INCR and set TTL if new
			n, err := rdb.Incr(ctx, key).Result()
			if err == nil && n == 1 {
				_ = rdb.Expire(ctx, key, win).Err()
			}
			if err == nil && n > int64(maxAttempts) {
				denyLogin(w, r, int(win.Seconds()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denyLogin(w http.ResponseWriter, r *http.Request, retrySec int) {
	w.Header().Set("Retry-After", strconv.Itoa(retrySec))
	apperr.WriteStatus(w, r, http.StatusTooManyRequests, "Too Many Requests", "too many login attempts")
}
