package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type ipWindow struct {
	startedAt time.Time
	hits      int
}

// LoginRateLimiter throttles login requests per client IP with a fixed
// window. It complements the per-account lockout: the lockout defends a
// single account, the limiter caps how fast one source can spray attempts
// across many accounts.
type LoginRateLimiter struct {
	mu        sync.Mutex
	maxHits   int
	window    time.Duration
	byIP      map[string]ipWindow
	maxMemory int
	now       func() time.Time
}

func NewLoginRateLimiter(maxHits int, window time.Duration) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &LoginRateLimiter{
		maxHits:   maxHits,
		window:    window,
		byIP:      make(map[string]ipWindow),
		maxMemory: 5000,
		now:       time.Now,
	}
}

func (l *LoginRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.Allow(clientIP(r))
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *LoginRateLimiter) Allow(ip string) (bool, time.Duration) {
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.byIP[ip]
	if !ok || now.Sub(win.startedAt) >= l.window {
		win = ipWindow{startedAt: now}
	}
	win.hits++

	if win.hits > l.maxHits {
		l.byIP[ip] = win
		retryAfter := win.startedAt.Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter
	}

	l.byIP[ip] = win

	if len(l.byIP) > l.maxMemory {
		threshold := now.Add(-l.window)
		for key, value := range l.byIP {
			if value.startedAt.Before(threshold) {
				delete(l.byIP, key)
			}
		}
	}

	return true, 0
}

func clientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
