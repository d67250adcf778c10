package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long a client's limiter survives without requests.
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware limits requests per client IP with a token bucket.
type RateLimitMiddleware struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter // IP -> limiter
	lastSweep time.Time
	rps       rate.Limit
	burst     int
	trusted   []netip.Prefix
	now       func() time.Time
}

// NewRateLimitMiddleware allows rps requests per second per IP, with bursts of up to burst.
// Forwarding headers are honoured only on requests arriving from a trusted proxy.
func NewRateLimitMiddleware(rps float64, burst int, trustedProxies []netip.Prefix) *RateLimitMiddleware {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitMiddleware{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		trusted:  trustedProxies,
		now:      time.Now,
	}
}

func (m *RateLimitMiddleware) limiter(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastSweep) >= idleLimiterTTL {
		for key, c := range m.limiters {
			if now.Sub(c.lastSeen) >= idleLimiterTTL {
				delete(m.limiters, key)
			}
		}
		m.lastSweep = now
	}
	c, ok := m.limiters[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(m.rps, m.burst)}
		m.limiters[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (m *RateLimitMiddleware) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}

// Handler applies the limit. /health is never limited.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		ip := m.clientIP(r)
		if !m.limiter(ip).Allow() {
			log.WithField("ip", ip).Warn("Rate limit exceeded")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range m.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address, or the nearest untrusted hop of X-Forwarded-For
// (then X-Real-IP) when the peer is a trusted proxy.
func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if !m.isTrusted(remote) {
		return remote
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !m.isTrusted(hop) {
				return hop
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remote
}
