package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimiter allows a number of requests per period for each client IP.
type RateLimiter struct {
	requests int
	per      time.Duration
	idle     time.Duration

	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter and starts evicting idle clients. A
// non-positive requests disables limiting.
func NewRateLimiter(requests int, per time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: requests,
		per:      per,
		idle:     10 * time.Minute,
		clients:  make(map[string]*client),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if requests > 0 {
		go rl.cleanupLoop(5 * time.Minute)
	}
	return rl
}

// Handler returns the fiber middleware.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.requests <= 0 || rl.Allow(c.IP()) {
			return c.Next()
		}
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Rate limit exceeded. Please try again later.",
		})
	}
}

// Allow consumes one token for ip.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	cl, ok := rl.clients[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rate.Every(rl.per/time.Duration(rl.requests)), rl.requests)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = rl.now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.evict()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if rl.now().Sub(c.lastSeen) > rl.idle {
			delete(rl.clients, ip)
		}
	}
}
