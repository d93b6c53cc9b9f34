package proxy

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/finassist/finassist/pkg/llm"
)

// requestIDKey is the fiber Locals key for the request ID.
const requestIDKey = "request_id"

// RequestIDFrom returns the request ID assigned by the requestID middleware.
func RequestIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// requestID propagates X-Request-ID or generates one.
func requestID(c *fiber.Ctx) error {
	id := utils.CopyString(c.Get(fiber.HeaderXRequestID))
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(fiber.HeaderXRequestID, id)
	c.Locals(requestIDKey, id)
	return c.Next()
}

// observe logs each request and records its metrics.
func (p *Proxy) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	duration := time.Since(start)

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}

	// Use the route pattern, not the raw path, to bound label cardinality.
	// Label values outlive the request; fiber reuses the buffers behind c.Method().
	path := utils.CopyString(c.Route().Path)
	method := utils.CopyString(c.Method())
	p.metrics.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.metrics.duration.WithLabelValues(method, path).Observe(duration.Seconds())

	p.logger.Debug("http request",
		zap.String("request_id", RequestIDFrom(c)),
		zap.String("method", method),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)

	return err
}

// ipRateLimiter tracks per-IP token-bucket rate limiters.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rateLimitEntry
	rateVal  rate.Limit
	burst    int
}

type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: make(map[string]*rateLimitEntry),
		rateVal:  rate.Limit(rps),
		burst:    burst,
	}
}

// handler rejects requests over the client's budget with 429.
func (l *ipRateLimiter) handler(c *fiber.Ctx) error {
	if !l.allow(utils.CopyString(c.IP())) {
		return c.Status(fiber.StatusTooManyRequests).JSON(llm.ErrorResponse{Error: "rate limit exceeded"})
	}
	return c.Next()
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= 10000 {
			l.cleanup()
		}
		e = &rateLimitEntry{limiter: rate.NewLimiter(l.rateVal, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = time.Now()

	return e.limiter.Allow()
}

// cleanup removes entries not seen in the last 10 minutes.
// Must be called with l.mu held.
func (l *ipRateLimiter) cleanup() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}
