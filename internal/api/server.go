// Package api assembles the shamzam HTTP server: echo instance, middleware
// chain and versioned route groups.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/adamokeah/shamzam/internal/api/middleware"
	v1 "github.com/adamokeah/shamzam/internal/api/v1"
	"github.com/adamokeah/shamzam/internal/conf"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/observability"
)

const defaultShutdownTimeout = 10 * time.Second

// Config holds the server settings.
type Config struct {
	Listen          string
	AllowReset      bool
	MaxUploadSize   int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ConfigFromSettings extracts the server section of settings.
func ConfigFromSettings(settings *conf.Settings) Config {
	s := settings.Server
	return Config{
		Listen:          s.Listen,
		AllowReset:      s.AllowReset,
		MaxUploadSize:   s.MaxUploadSize,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
	}
}

// Server is the HTTP front end of the service.
type Server struct {
	echo       *echo.Echo
	config     Config
	log        logger.Logger
	metrics    *observability.Metrics
	controller *v1.Controller
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records request metrics and exposes GET /metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds the server and registers all routes.
func New(cfg Config, svc v1.Service, opts ...ServerOption) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		config: cfg,
		log:    logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Module("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger = logger.NewEchoLoggerAdapter(s.log)
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout
	s.echo = e

	s.setupMiddleware()
	s.controller = v1.New(e, svc, v1.Config{
		AllowReset:    cfg.AllowReset,
		MaxUploadSize: cfg.MaxUploadSize,
	}, v1.WithLogger(s.log))

	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler(s.log)))
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(middleware.NewRequestID())
	s.echo.Use(middleware.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return c.Path() == "/metrics" || c.Path() == v1.Prefix+"/health"
	}))
	if s.metrics != nil {
		s.echo.Use(middleware.NewMetrics(s.metrics.HTTP))
	}
	if s.config.MaxUploadSize > 0 {
		// multipart framing adds a little on top of the file itself
		s.echo.Use(echomw.BodyLimit(fmt.Sprintf("%dB", s.config.MaxUploadSize+64<<10)))
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the bound listener address, or nil before the server listens.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server starting", logger.String("listen", s.config.Listen))
		errCh <- s.echo.Start(s.config.Listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
