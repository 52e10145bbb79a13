package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apphttp "FinEvent/pkg/http"
)

// Past maxKeys buckets, Allow drops those idle for sweepIdle.
const (
	maxKeys   = 10000
	sweepIdle = 10 * time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	last time.Time
}

// Limiter keeps one token bucket per key. Idle buckets are dropped by Sweep.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu sync.Mutex
	m  map[string]*bucket
}

func New(refillPerSec float64, capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &Limiter{
		limit: rate.Limit(refillPerSec),
		burst: capacity,
		now:   time.Now,
		m:     make(map[string]*bucket),
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= maxKeys {
			l.sweepLocked(now.Add(-sweepIdle))
		}
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = b
	}
	b.last = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// Sweep forgets buckets untouched for longer than idle.
func (l *Limiter) Sweep(idle time.Duration) {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(cutoff)
}

func (l *Limiter) sweepLocked(cutoff time.Time) {
	for k, b := range l.m {
		if b.last.Before(cutoff) {
			delete(l.m, k)
		}
	}
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
// A nil limiter or a non-positive rate disables limiting.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil || l.limit <= 0 {
			return next
		}
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return apphttp.AppErrorResponse(c, apphttp.TooManyRequests())
			}
			return next(c)
		}
	}
}
