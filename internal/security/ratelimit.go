package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket refilled once per window
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter allows rate requests per window for each client and starts
// a janitor that forgets idle clients. Call Stop to end it.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow consumes one token for key and reports whether the request may proceed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{tokens: rl.rate, lastRefill: now}
		rl.visitors[key] = v
	}

	if now.Sub(v.lastRefill) >= rl.window {
		v.tokens = rl.rate
		v.lastRefill = now
	}

	if v.tokens > 0 {
		v.tokens--
		return true
	}
	return false
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastRefill) > rl.window*2 {
			delete(rl.visitors, key)
		}
	}
}

// TrustedProxies lists the networks of reverse proxies whose forwarding
// headers are believed
type TrustedProxies []*net.IPNet

// ParseTrustedProxies parses a comma separated list of IPs and CIDR ranges
func ParseTrustedProxies(list string) (TrustedProxies, error) {
	var proxies TrustedProxies
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			entry = fmt.Sprintf("%s/%d", entry, bits)
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		proxies = append(proxies, network)
	}
	return proxies, nil
}

// Contains reports whether addr belongs to a trusted proxy
func (t TrustedProxies) Contains(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range t {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetClientIP extracts the client address. Forwarding headers are only
// honoured when the connection comes from a trusted proxy; X-Forwarded-For
// is then read right to left, skipping trusted hops.
func GetClientIP(r *http.Request, trusted TrustedProxies) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if !trusted.Contains(remote) {
		return remote
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !trusted.Contains(hop) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remote
}
