// Package serve provides the serve command, which runs the HTTP API.
package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adamokeah/shamzam/internal/api"
	"github.com/adamokeah/shamzam/internal/app"
	"github.com/adamokeah/shamzam/internal/buildinfo"
	"github.com/adamokeah/shamzam/internal/conf"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
)

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Info) *cobra.Command {
	var listen string
	var allowReset bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve the catalog and recognition API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				settings.Server.Listen = listen
			}
			if cmd.Flags().Changed("allow-reset") {
				settings.Server.AllowReset = allowReset
			}
			return Run(cmd.Context(), settings, build)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, e.g. 127.0.0.1:5000")
	cmd.Flags().BoolVar(&allowReset, "allow-reset", false, "Expose POST /api/v1/admin/reset")
	return cmd
}

// Run serves the API until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Info) error {
	flushSentry, err := errors.InitSentry(settings.Telemetry.Sentry.DSN, settings.Telemetry.Sentry.Environment, build.Version())
	if err != nil {
		return err
	}
	defer flushSentry()

	a, err := app.New(ctx, settings, app.WithMQTT(), app.WithBuildInfo(build))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.Log.Warn("shutdown incomplete", logger.Error(cerr))
		}
	}()

	if settings.Recognition.APIToken == "" {
		a.Log.Warn("no AudD API token configured, recognition requests will fail")
	}

	opts := []api.ServerOption{api.WithLogger(a.Log)}
	if a.Metrics != nil {
		opts = append(opts, api.WithMetrics(a.Metrics))
	}
	server := api.New(api.ConfigFromSettings(settings), a.Service, opts...)

	a.Log.Info("starting shamzam",
		logger.String("version", build.Version()),
		logger.String("listen", settings.Server.Listen),
		logger.String("catalog", a.Catalog.Path()),
		logger.Bool("mqtt", a.MQTT != nil),
		logger.Bool("metrics", a.Metrics != nil))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if a.Metrics != nil {
		// primes the catalog size gauge before the first request
		g.Go(func() error {
			count, err := a.Service.CountTracks(gctx)
			if err != nil {
				a.Log.Warn("initial catalog count failed", logger.Error(err))
			}
			a.Log.Debug("catalog size", logger.Int64("tracks", count))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	a.Log.Info("shamzam stopped")
	return nil
}
