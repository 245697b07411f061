package server

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/raterudder/gridbalancer/pkg/log"
	"golang.org/x/time/rate"
)

const (
	rateLimitWindow = time.Minute
	// limiters untouched for this long are dropped on the next sweep
	rateLimitIdle = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter allows each client perWindow requests per minute, refilled
// continuously, with the whole allowance available as a burst.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	perWindow int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(perWindow int) *rateLimiter {
	return &rateLimiter{
		clients:   make(map[string]*clientLimiter),
		perWindow: perWindow,
		now:       time.Now,
	}
}

func (l *rateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= rateLimitIdle {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= rateLimitIdle {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perWindow)/rateLimitWindow.Seconds()), l.perWindow),
		}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			ctx := r.Context()
			log.Ctx(ctx).WarnContext(ctx, "rate limit exceeded", slog.String("client", ip))
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
			writeJSONError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
