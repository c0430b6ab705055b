package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/bastionpay/bastion/internal/redis"
)

// RateLimit caps requests per client IP using a fixed redis window. On a
// redis failure the request is allowed through; throttling is best effort.
func RateLimit(client *redis.Client, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			allowed, err := client.SimpleRateLimit(r.Context(), "ratelimit:"+ip+":"+r.URL.Path, limit, window)
			if err == nil && !allowed {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
