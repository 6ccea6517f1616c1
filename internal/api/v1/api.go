// Package api implements version 1 of the shamzam HTTP API: catalog
// management and fragment recognition.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/reconcile"
	"github.com/adamokeah/shamzam/internal/service"
)

// Prefix is the route prefix of this API version.
const Prefix = "/api/v1"

// DefaultMaxUploadSize bounds an uploaded audio file when none is configured.
const DefaultMaxUploadSize int64 = 32 << 20

// Service is the set of operations the controller exposes.
type Service interface {
	AddTrack(ctx context.Context, title, artist string, payload codec.RawBytes) (uint, error)
	AddEncodedTrack(ctx context.Context, title, artist, encoded string) (uint, error)
	ListTracks(ctx context.Context) ([]catalog.TrackInfo, error)
	CountTracks(ctx context.Context) (int64, error)
	DeleteTrack(ctx context.Context, req service.DeleteRequest) (int64, error)
	Recognize(ctx context.Context, fragment codec.RawBytes) (reconcile.Outcome, error)
	Reset(ctx context.Context) error
}

var _ Service = (*service.Service)(nil)

// Config controls optional routes and limits.
type Config struct {
	AllowReset    bool
	MaxUploadSize int64
}

// Controller owns the v1 route group.
type Controller struct {
	Group     *echo.Group
	service   Service
	config    Config
	log       logger.Logger
	startTime time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, svc Service, cfg Config, opts ...Option) *Controller {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	c := &Controller{
		Group:     e.Group(Prefix),
		service:   svc,
		config:    cfg,
		log:       logger.NewNopLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Module("api")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	tracks := c.Group.Group("/tracks")
	tracks.GET("", c.ListTracks)
	tracks.POST("", c.AddTrack)
	tracks.DELETE("", c.DeleteTracksByKey)
	tracks.DELETE("/:id", c.DeleteTrack)

	c.Group.POST("/recognize", c.Recognize)

	if c.config.AllowReset {
		c.Group.POST("/admin/reset", c.ResetCatalog)
	}
}

// readUpload reads the multipart file field, bounded by MaxUploadSize.
func (c *Controller) readUpload(ctx echo.Context, field string) ([]byte, error) {
	header, err := ctx.FormFile(field)
	if err != nil {
		return nil, requestError("multipart field %q is required", field)
	}
	if header.Size > c.config.MaxUploadSize {
		return nil, requestError("file exceeds the %d byte upload limit", c.config.MaxUploadSize)
	}

	f, err := header.Open()
	if err != nil {
		return nil, requestError("cannot open uploaded file: %v", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			c.log.Debug("failed to close uploaded file", logger.Error(cerr))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(f, c.config.MaxUploadSize+1))
	if err != nil {
		return nil, requestError("cannot read uploaded file: %v", err)
	}
	if int64(len(data)) > c.config.MaxUploadSize {
		return nil, requestError("file exceeds the %d byte upload limit", c.config.MaxUploadSize)
	}
	return data, nil
}

// HealthCheck reports liveness and the catalog size.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	count, err := c.service.CountTracks(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "catalog is unavailable")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"status": "healthy",
		"tracks": count,
		"uptime": time.Since(c.startTime).Round(time.Second).String(),
	})
}

// ResetCatalog empties the catalog and restarts id allocation.
func (c *Controller) ResetCatalog(ctx echo.Context) error {
	if err := c.service.Reset(ctx.Request().Context()); err != nil {
		return c.HandleError(ctx, err, "failed to reset catalog")
	}
	c.log.WithContext(ctx.Request().Context()).Warn("catalog reset through API",
		logger.String("ip", ctx.RealIP()))
	return ctx.JSON(http.StatusOK, map[string]string{"message": "catalog reset"})
}

func requestError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}
