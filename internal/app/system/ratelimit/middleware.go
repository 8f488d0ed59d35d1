package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Defaults for the storefront's route groups.
const (
	APILimit       = 100
	APIWindow      = 15 * time.Minute
	PasswordLimit  = 3
	PasswordWindow = time.Hour
)

// Middleware rejects requests from a client IP once l's limit is exhausted,
// answering 429 with message.
func Middleware(l *Limiter, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !l.Allow(ip) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(l.duration.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(ip)))
			next.ServeHTTP(w, r)
		})
	}
}
