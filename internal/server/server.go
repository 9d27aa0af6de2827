package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/pipeline"
	"scenecast/internal/runstore"
	"scenecast/internal/services"
)

const shutdownTimeout = 10 * time.Second

// Runner executes one prompt end to end.
type Runner interface {
	Run(ctx context.Context, prompt string) (*pipeline.Result, error)
}

// RunLister lists recorded runs, newest first.
type RunLister interface {
	List(ctx context.Context, limit int) ([]runstore.Run, error)
}

// Server is the HTTP boundary around the pipeline.
type Server struct {
	app          *fiber.App
	runner       Runner
	runs         RunLister
	validate     *validator.Validate
	logger       *slog.Logger
	bind         string
	downloadName string
}

// New builds the fiber application and registers routes. runs may be nil,
// in which case /api/runs answers 503.
func New(cfg *config.Config, runner Runner, runs RunLister, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if runner == nil {
		return nil, errors.New("runner required")
	}
	s := &Server{
		runner:       runner,
		runs:         runs,
		validate:     validator.New(),
		logger:       logging.NewComponentLogger(logger, "server"),
		bind:         cfg.Paths.APIBind,
		downloadName: cfg.Server.DownloadName,
	}
	if strings.TrimSpace(s.downloadName) == "" {
		s.downloadName = "animation.mp4"
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "scenecast",
		BodyLimit:             cfg.Server.MaxBodyBytes,
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.logRequests)
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	s.app.Get("/health", s.health)
	api := s.app.Group("/api")
	api.Post("/generate", s.generate)
	api.Get("/runs", s.listRuns)
	return s, nil
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				s.logger.Warn("server shutdown failed",
					logging.String(logging.FieldEventType, "server_shutdown_failed"),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "in-flight runs may have been interrupted"),
				)
			}
		case <-done:
		}
	}()

	s.logger.Info("server listening", logging.String("bind", s.bind))
	if err := s.app.Listen(s.bind); err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	return nil
}

// logRequests stamps the request id on the user context and logs one line
// per request.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	if id != "" {
		c.SetUserContext(services.WithRequestID(c.UserContext(), id))
	}
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
	}
	logging.WithContext(c.UserContext(), s.logger).Info("http request",
		logging.String("method", c.Method()),
		logging.String("path", c.Path()),
		logging.Int("status", status),
		logging.Duration("latency", time.Since(start)),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := genericErrorMessage
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	if code >= fiber.StatusInternalServerError {
		logging.WithContext(c.UserContext(), s.logger).Error("request failed",
			logging.String(logging.FieldEventType, "http_error"),
			logging.Error(err),
		)
		message = genericErrorMessage
	}
	return c.Status(code).JSON(errorResponse{Error: message})
}
