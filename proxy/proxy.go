// Package proxy serves the financial-advice chat proxy over HTTP.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finassist/finassist/pkg/advisor"
	"github.com/finassist/finassist/pkg/llm"
	"github.com/finassist/finassist/pkg/transcript"
)

// Proxy is a stateless HTTP front for an advisor.Advisor. Every chat request
// carries its own history; nothing about a conversation outlives the request.
type Proxy struct {
	config  Config
	advisor *advisor.Advisor
	logger  *zap.Logger
	metrics *metrics
	server  *fiber.App
}

// New creates a new Proxy and registers its routes.
func New(config Config, a *advisor.Advisor, logger *zap.Logger) *Proxy {
	registry := prometheus.NewRegistry()

	p := &Proxy{
		config:  config,
		advisor: a,
		logger:  logger,
		metrics: newMetrics(registry),
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          p.handleError,
	})
	p.server = app

	app.Use(recover.New())
	app.Use(requestID)
	app.Use(p.observe)

	// Register routes
	chat := []fiber.Handler{}
	if config.RateLimit.RPS > 0 {
		chat = append(chat, newIPRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst).handler)
	}
	chat = append(chat, p.handleChat)
	app.Post("/api/chat", chat...)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return p
}

// App exposes the underlying fiber app, mainly for tests.
func (p *Proxy) App() *fiber.App {
	return p.server
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		zap.String("listen", p.config.ListenAddr),
		zap.Bool("completion_configured", p.advisor.Configured()),
		zap.Float64("rate_limit_rps", p.config.RateLimit.RPS),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (p *Proxy) Shutdown(ctx context.Context) error {
	return p.server.ShutdownWithContext(ctx)
}

// handleChat runs one advisor turn. The caller sends its whole transcript as
// history and gets it back extended by the new user and assistant turns.
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()
	reqID := RequestIDFrom(c)

	// Parse the incoming request
	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Warn("failed to parse request", zap.String("request_id", reqID), zap.Error(err))
		p.metrics.outcome(advisor.KindInvalidRequest.String())
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	p.logger.Debug("received chat request",
		zap.String("request_id", reqID),
		zap.Int("history_len", len(req.History)),
		zap.String("message_preview", truncate(req.Message, 100)),
	)

	resp, err := p.advisor.Ask(c.UserContext(), req.Message, req.History)
	if err != nil {
		var ae *advisor.Error
		if !errors.As(err, &ae) {
			p.logger.Error("chat failed", zap.String("request_id", reqID), zap.Error(err))
			p.metrics.outcome(advisor.KindUpstream.String())
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: advisor.MessageFailed})
		}

		p.metrics.outcome(ae.Kind.String())
		if ae.Kind == advisor.KindInvalidRequest {
			p.logger.Debug("rejected chat request",
				zap.String("request_id", reqID),
				zap.String("reason", ae.Message),
			)
		}
		return c.Status(ae.Status).JSON(llm.ErrorResponse{Error: ae.Message})
	}

	p.metrics.outcome("ok")
	p.logger.Info("chat turn completed",
		zap.String("request_id", reqID),
		zap.Int("history_len", len(resp.History)),
		zap.String("transcript_head", truncate(transcript.Head(resp.History), 16)),
		zap.Duration("duration", time.Since(startTime)),
	)
	p.logger.Debug("chat reply",
		zap.String("request_id", reqID),
		zap.String("content_preview", truncate(resp.Content, 100)),
	)

	// Return response to client
	return c.JSON(resp)
}

// handleError renders errors escaping handlers in the chat error shape.
func (p *Proxy) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		p.logger.Error("unhandled error",
			zap.String("request_id", RequestIDFrom(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(llm.ErrorResponse{Error: message})
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
