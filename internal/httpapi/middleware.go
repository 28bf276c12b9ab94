package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
		)
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic while handling request",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.String(requestIDKey, c.GetString(requestIDKey)),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success":    false,
					"error":      "internal server error",
					"request_id": c.GetString(requestIDKey),
				})
			}
		}()
		c.Next()
	}
}

// allowIPs rejects webhook deliveries from unknown addresses. Loopback is
// always let through for local testing.
func allowIPs(allowed []string, log *zap.Logger) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, ip := range allowed {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if len(set) == 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
			c.Next()
			return
		}
		if _, ok := set[ip]; ok {
			c.Next()
			return
		}

		log.Warn("webhook from unauthorized address rejected", zap.String("client_ip", ip))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success":    false,
			"error":      fmt.Sprintf("request from %s is not allowed", ip),
			"request_id": c.GetString(requestIDKey),
		})
	}
}

type ipLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(perSecond),
		b: burst,
	}
}

func (l *ipLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.m[ip]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.m[ip] = lim
	return lim
}

func rateLimit(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"error":      "too many requests",
				"request_id": c.GetString(requestIDKey),
			})
			return
		}
		c.Next()
	}
}
