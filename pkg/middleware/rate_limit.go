package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/institute-portal/pkg/logger"
	"github.com/diagnosis/institute-portal/pkg/response"
)

// Limiter counts requests per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int                            // Max requests per window
	Window   time.Duration                  // Time window duration
	Scope    string                         // Prefix separating independent limits
	KeyFunc  func(r *http.Request) []string // Keys the request is counted against
}

// RateLimit rejects requests once any of their keys exceeds the configured
// limit. Limiter errors let the request through. A nil limiter disables it.
func RateLimit(limiter Limiter, cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIPKeyFunc
	}

	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, key := range keyFunc(r) {
				allowed, err := limiter.Allow(r.Context(), cfg.Scope+":"+key, cfg.Requests, cfg.Window)
				if err != nil {
					logger.WarnContext(r.Context(), "Rate limiter unavailable", "error", err)
					continue
				}
				if !allowed {
					w.Header().Set("Retry-After", retryAfter(cfg.Window))
					response.WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", response.CodeRateLimit)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ClientIPKeyFunc counts requests per client IP.
func ClientIPKeyFunc(r *http.Request) []string {
	if ip := ClientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

// ClientIP is the host part of RemoteAddr. Forwarding headers are ignored;
// deployments behind a trusted proxy rewrite RemoteAddr with chi's RealIP first.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return ip
}
