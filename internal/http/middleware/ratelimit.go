package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the per-client limiter table
const maxTrackedClients = 4096

// RateLimit caps an endpoint group (link extraction) at perMinute requests
// with a burst of the same size, shared by all callers. Excess requests get 429.
func RateLimit(perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	limiter := newLimiter(perMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				tooManyRequests(w, r, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientRateLimit is RateLimit with a separate budget per client IP, so one
// caller cannot exhaust the limit for everyone else. Idle clients are
// forgotten after ten minutes.
func ClientRateLimit(perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	clients := expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, 10*time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limiter, ok := clients.Get(ip)
			if !ok {
				limiter = newLimiter(perMinute)
				clients.Add(ip, limiter)
			}
			if !limiter.Allow() {
				tooManyRequests(w, r, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || ip == "" {
		return r.RemoteAddr
	}
	return ip
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	logger.Warn("Rate limit exceeded", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests, try again later"})
}
