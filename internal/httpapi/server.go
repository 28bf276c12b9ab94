// Package httpapi exposes candidates, calls and the provider webhook over HTTP.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spigell/interview-caller/internal/bolna"
	"github.com/spigell/interview-caller/internal/calls"
	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/executions"
	"github.com/spigell/interview-caller/internal/webhook"
	"go.uber.org/zap"
)

// DefaultAllowedIPs are the addresses Bolna sends webhooks from.
var DefaultAllowedIPs = []string{
	"13.200.45.61",
	"65.2.44.157",
	"34.194.233.253",
	"13.204.98.4",
	"43.205.31.43",
	"107.20.118.52",
}

// Dependencies are the components routes call into. Placer, Checker and
// Fetcher are nil when no provider is configured; their routes answer 503.
type Dependencies struct {
	Candidates *candidates.Store
	Executions *executions.Store
	Archive    *webhook.ArchiveStore
	Dispatcher *webhook.Dispatcher
	Placer     *calls.Placer
	Checker    *calls.Checker
	Fetcher    calls.ExecutionFetcher
}

type Config struct {
	// AllowedIPs restricts webhook routes. Empty disables the check.
	// Loopback is always allowed.
	AllowedIPs []string
	// RateLimit is webhook requests per second per client IP. Zero disables it.
	RateLimit   float64
	RateBurst   int
	// TrustedProxies may set the client address through X-Forwarded-For.
	// Nil trusts no proxy and uses the connection address.
	TrustedProxies []string
	ReleaseMode    bool
}

type Server struct {
	deps   Dependencies
	cfg    Config
	logger *zap.Logger
}

func New(deps Dependencies, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{deps: deps, cfg: cfg, logger: log}
}

// Handler builds the router.
func (s *Server) Handler() (http.Handler, error) {
	if s.cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("setting trusted proxies: %w", err)
	}
	router.Use(requestID(), accessLog(s.logger), recovery(s.logger))
	s.RegisterRoutes(router)
	return router, nil
}

func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", s.health)

	hooks := router.Group("/")
	hooks.Use(allowIPs(s.cfg.AllowedIPs, s.logger))
	if s.cfg.RateLimit > 0 {
		hooks.Use(rateLimit(newIPLimiter(s.cfg.RateLimit, s.cfg.RateBurst)))
	}
	{
		hooks.POST("/", s.receiveWebhook)
		hooks.POST("/api/webhook", s.receiveWebhook)
	}

	api := router.Group("/api")
	{
		api.GET("/webhook/status", s.webhookStatus)
		api.GET("/webhooks", s.listWebhooks)

		api.GET("/candidates", s.listCandidates)
		api.POST("/candidate/add", s.addCandidate)
		api.DELETE("/candidate/:id", s.deleteCandidate)
		api.POST("/candidate/:id/reset", s.resetCandidate)
		api.PUT("/candidate/:id/rescheduling-slots", s.setReschedulingSlots)
		api.POST("/reset-statuses", s.resetStatuses)

		api.POST("/call", s.placeCall)
		api.GET("/call-status/:executionId", s.callStatus)
		api.POST("/call/:executionId/check-status", s.checkCall)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, webhook.ErrUnidentified), candidates.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, candidates.ErrNotFound), errors.Is(err, webhook.ErrUnmapped), errors.Is(err, webhook.ErrNotArchived):
		return http.StatusNotFound
	case bolna.IsInsufficientBalance(err):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"error":      err.Error(),
		"request_id": c.GetString(requestIDKey),
	})
}
