package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ppiankov/taieye/internal/logging"
	"github.com/ppiankov/taieye/internal/metrics"
	"github.com/ppiankov/taieye/internal/model"
	"github.com/ppiankov/taieye/internal/pipeline"
	"github.com/ppiankov/taieye/internal/worker"
)

// Server exposes the analyzer over a JSON HTTP API
type Server struct {
	app      *fiber.App
	analyzer *pipeline.Analyzer
	limiter  *worker.Limiter
	addr     string
	logger   *zap.Logger
}

// AnalyzeRequest is the body of POST /v1/analyze
type AnalyzeRequest struct {
	Text    string `json:"text"`
	Samples int    `json:"samples,omitempty"`
	Seed    *int64 `json:"seed,omitempty"`
	Narrate bool   `json:"narrate,omitempty"`
}

// FeaturesRequest is the body of POST /v1/features
type FeaturesRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is returned for every rejected call
type ErrorResponse struct {
	Error  string       `json:"error"`
	Reason model.Reason `json:"reason"`
}

// New builds the fiber app and its routes
func New(cfg *model.Config, analyzer *pipeline.Analyzer, logger *zap.Logger) *Server {
	s := &Server{
		analyzer: analyzer,
		limiter:  worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		addr:     cfg.Server.Addr,
		logger:   logging.OrNop(logger),
	}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
	})

	s.app.Use(recover.New())
	s.app.Use(s.requestLogger())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", metrics.Handler())

	v1 := s.app.Group("/v1", s.rateLimit())
	v1.Post("/analyze", s.handleAnalyze)
	v1.Post("/features", s.handleFeatures)

	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", s.addr))
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Server shutting down gracefully...")
		if err := s.app.ShutdownWithTimeout(10 * time.Second); err != nil {
			return err
		}
		s.logger.Info("Server stopped")
		return nil
	}
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, model.ReasonInvalidParameter, "Invalid request body")
	}

	report, err := s.analyzer.Analyze(c.UserContext(), pipeline.Request{
		Text:    req.Text,
		Samples: req.Samples,
		Seed:    req.Seed,
		Narrate: req.Narrate,
	})
	if err != nil {
		return s.failErr(c, err)
	}
	return c.JSON(report)
}

func (s *Server) handleFeatures(c *fiber.Ctx) error {
	var req FeaturesRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, model.ReasonInvalidParameter, "Invalid request body")
	}

	fr, err := s.analyzer.AnalyzeFeatures(c.UserContext(), req.Text)
	if err != nil {
		return s.failErr(c, err)
	}
	return c.JSON(fr)
}

// handleHealth reports artifact availability. It always answers 200.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	artifacts := s.analyzer.Registry().Status()
	status := "ok"
	for _, st := range artifacts {
		if st != "ok" {
			status = "degraded"
			break
		}
	}
	return c.JSON(fiber.Map{
		"status":    status,
		"artifacts": artifacts,
		"time":      time.Now().Unix(),
	})
}

// StatusFor maps an analysis error to an HTTP status
func StatusFor(err error) int {
	switch model.ReasonOf(err) {
	case model.ReasonEmptyInput, model.ReasonInvalidParameter:
		return fiber.StatusBadRequest
	case model.ReasonNonEnglish, model.ReasonLanguageIndeterminate:
		return fiber.StatusUnprocessableEntity
	case model.ReasonModelUnavailable, model.ReasonSchemaMismatch:
		return fiber.StatusServiceUnavailable
	case model.ReasonCancelled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) failErr(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		s.logger.Error("Analysis failed", zap.String("path", c.Path()), zap.Error(err))
		msg = "Internal error"
	}
	return s.fail(c, status, model.ReasonOf(err), msg)
}

func (s *Server) fail(c *fiber.Ctx, status int, reason model.Reason, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg, Reason: reason})
}

// rateLimit throttles each client IP through the keyed limiter
func (s *Server) rateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if !s.limiter.Allow(key) {
			s.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return c.Next()
	}
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		s.logger.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	}
}
