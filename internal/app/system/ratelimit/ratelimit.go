// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/reporthub/internal/app/system/normalize"
	"github.com/patrickmn/go-cache"
)

// Limiter counts requests per key in fixed windows. It is safe for
// concurrent use.
type Limiter struct {
	counts   *cache.Cache
	limit    int
	duration time.Duration
}

// New creates a limiter allowing limit requests per key per duration.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		counts:   cache.New(duration, duration*2),
		limit:    limit,
		duration: duration,
	}
}

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if err := l.counts.Add(key, 1, l.duration); err == nil {
		return true
	}
	n, err := l.counts.IncrementInt(key, 1)
	if err != nil {
		// Window expired between Add and IncrementInt.
		l.counts.Set(key, 1, l.duration)
		return true
	}
	return n <= l.limit
}

// Remaining returns how many requests are left for key in the current window.
func (l *Limiter) Remaining(key string) int {
	v, ok := l.counts.Get(key)
	if !ok {
		return l.limit
	}
	n, _ := v.(int)
	if n >= l.limit {
		return 0
	}
	return l.limit - n
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.counts.Delete(key)
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Messages shown when a login attempt is throttled.
const (
	MsgTooManyFromIP     = "Troppi tentativi di accesso. Attendi un minuto e riprova."
	MsgTooManyForAccount = "Troppi tentativi per questo account. Attendi qualche minuto e riprova."
)

// LoginLimiter throttles login attempts per client IP and per username.
type LoginLimiter struct {
	ip       *Limiter
	username *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per username
// per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

func NewLoginLimiterWithConfig(ipLimit int, ipDuration time.Duration, userLimit int, userDuration time.Duration) *LoginLimiter {
	return &LoginLimiter{
		ip:       New(ipLimit, ipDuration),
		username: New(userLimit, userDuration),
	}
}

// Check records an attempt and returns (allowed, message).
func (ll *LoginLimiter) Check(r *http.Request, username string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, MsgTooManyFromIP
	}
	if key := normalize.Username(username); key != "" && !ll.username.Allow(key) {
		return false, MsgTooManyForAccount
	}
	return true, ""
}

// ResetUsername clears the per-account window after a successful login.
func (ll *LoginLimiter) ResetUsername(username string) {
	if key := normalize.Username(username); key != "" {
		ll.username.Reset(key)
	}
}
