// Package app builds the shamzam component graph from Settings: catalog,
// recognition client, reconciler, service, metrics and the optional MQTT
// publisher.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adamokeah/shamzam/internal/buildinfo"
	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/conf"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/httpclient"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/mqtt"
	"github.com/adamokeah/shamzam/internal/observability"
	"github.com/adamokeah/shamzam/internal/observability/metrics"
	"github.com/adamokeah/shamzam/internal/reconcile"
	"github.com/adamokeah/shamzam/internal/recognition"
	"github.com/adamokeah/shamzam/internal/service"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Settings *conf.Settings
	Log      logger.Logger
	Metrics  *observability.Metrics // nil when metrics are disabled
	Catalog  catalog.Manager
	Store    catalog.Store
	Service  *service.Service
	MQTT     mqtt.Client // nil unless WithMQTT and mqtt.enabled

	closers []func() error
}

type options struct {
	log        logger.Logger
	recognizer recognition.Recognizer
	mqtt       bool
	newMQTT    func(mqtt.Config, ...mqtt.Option) (mqtt.Client, error)
	build      *buildinfo.Info
}

// Option customizes New.
type Option func(*options)

// WithLogger uses log instead of building one from the logging settings.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRecognizer replaces the AudD client.
func WithRecognizer(r recognition.Recognizer) Option {
	return func(o *options) { o.recognizer = r }
}

// WithMQTT connects the outcome publisher when mqtt.enabled is set.
func WithMQTT() Option {
	return func(o *options) { o.mqtt = true }
}

// WithBuildInfo sets the version reported to the provider and telemetry.
func WithBuildInfo(info *buildinfo.Info) Option {
	return func(o *options) { o.build = info }
}

// New builds and initializes the components. The catalog schema is created
// if missing. On error everything opened so far is closed.
func New(ctx context.Context, settings *conf.Settings, opts ...Option) (a *App, err error) {
	o := options{newMQTT: mqtt.NewClient, build: buildinfo.Current()}
	for _, opt := range opts {
		opt(&o)
	}

	a = &App{Settings: settings}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if err := a.setupLogger(o.log); err != nil {
		return nil, err
	}

	var (
		catalogRec     metrics.Recorder = metrics.NopRecorder{}
		recognitionRec metrics.Recorder = metrics.NopRecorder{}
		mqttRec        metrics.Recorder = metrics.NopRecorder{}
		outcomeOpts    []reconcile.Option
	)
	if settings.Telemetry.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return nil, err
		}
		a.Metrics = m
		catalogRec, recognitionRec, mqttRec = m.Catalog, m.Recognition, m.MQTT
		outcomeOpts = append(outcomeOpts, reconcile.WithOutcomeRecorder(m.Recognition))
	}

	mgr, err := catalog.Open(CatalogConfig(settings), a.Log.Module("catalog"))
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryStorage).
			Context("operation", "open_catalog").
			Build()
	}
	a.Catalog = mgr
	a.closers = append(a.closers, mgr.Close)

	if err := mgr.Initialize(ctx); err != nil {
		return nil, err
	}
	a.Store = catalog.NewStore(mgr,
		catalog.WithLogger(a.Log.Module("catalog")),
		catalog.WithMetrics(catalogRec))

	recognizer := o.recognizer
	if recognizer == nil {
		recognizer = a.newAudDClient(o.build, recognitionRec)
	}

	reconciler := reconcile.New(recognizer, a.Store,
		append(outcomeOpts, reconcile.WithLogger(a.Log.Module("reconcile")))...)

	svcOpts := []service.Option{service.WithLogger(a.Log.Module("service"))}
	if o.mqtt && settings.MQTT.Enabled {
		client, err := o.newMQTT(MQTTConfig(settings),
			mqtt.WithLogger(a.Log.Module("mqtt")),
			mqtt.WithMetrics(mqttRec))
		if err != nil {
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("operation", "mqtt_client").
				Build()
		}
		// a broker that is down at startup is not fatal; publishing is best effort
		if err := client.Connect(ctx); err != nil {
			a.Log.Warn("MQTT broker unavailable, outcomes will not be published until it reconnects",
				logger.String("broker", settings.MQTT.Broker),
				logger.Error(err))
		}
		a.MQTT = client
		a.closers = append(a.closers, func() error { client.Disconnect(); return nil })
		svcOpts = append(svcOpts, service.WithPublisher(client, settings.MQTT.Topic))
	}

	a.Service = service.New(a.Store, reconciler, svcOpts...)
	return a, nil
}

func (a *App) setupLogger(log logger.Logger) error {
	if log != nil {
		a.Log = log
		return nil
	}

	cfg := a.Settings.Logging
	if a.Settings.Debug {
		cfg.Level = string(logger.LogLevelDebug)
	}
	l, closer, err := logger.Open(cfg, nil)
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "open_logger").
			Build()
	}
	a.Log = l
	a.closers = append(a.closers, closer.Close)
	return nil
}

func (a *App) newAudDClient(build *buildinfo.Info, rec metrics.Recorder) *recognition.AudDClient {
	rs := a.Settings.Recognition
	log := a.Log.Module("recognition")

	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: rs.Timeout,
		UserAgent:      build.UserAgent(),
	})
	client.SetAfterResponseHook(func(req *http.Request, resp *http.Response, elapsed time.Duration, err error) {
		if err != nil {
			log.Debug("provider round trip failed",
				logger.String("host", req.URL.Host),
				logger.Duration("elapsed", elapsed),
				logger.Error(err))
			return
		}
		log.Debug("provider round trip",
			logger.String("host", req.URL.Host),
			logger.Int("status", resp.StatusCode),
			logger.Duration("elapsed", elapsed))
	})
	a.closers = append(a.closers, func() error { client.Close(); return nil })

	return recognition.NewAudDClient(recognition.Config{
		Endpoint:  rs.Endpoint,
		APIToken:  rs.APIToken,
		Return:    rs.Return,
		Timeout:   rs.Timeout,
		RateLimit: rs.RateLimit,
		Burst:     rs.Burst,
	},
		recognition.WithHTTPClient(client),
		recognition.WithLogger(log),
		recognition.WithMetrics(rec))
}

// Close releases all components. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("closing components: %w", errors.Join(errs...))
	}
	return nil
}

// CatalogConfig maps the database settings onto catalog.Config.
func CatalogConfig(s *conf.Settings) catalog.Config {
	db := s.Database
	return catalog.Config{
		Type:       db.Type,
		SQLitePath: db.SQLite.Path,
		MySQL: catalog.MySQLConfig{
			Host:     db.MySQL.Host,
			Port:     db.MySQL.Port,
			Username: db.MySQL.Username,
			Password: db.MySQL.Password,
			Database: db.MySQL.Database,
		},
		SlowQueryThreshold: db.SlowQueryThreshold,
	}
}

// MQTTConfig maps the mqtt settings onto mqtt.Config.
func MQTTConfig(s *conf.Settings) mqtt.Config {
	m := s.MQTT
	cfg := mqtt.DefaultConfig()
	cfg.Broker = m.Broker
	if m.ClientID != "" {
		cfg.ClientID = m.ClientID
	}
	cfg.Username = m.Username
	cfg.Password = m.Password
	cfg.Topic = m.Topic
	cfg.QoS = byte(m.QoS)
	cfg.Retain = m.Retain
	return cfg
}

var _ io.Closer = (*App)(nil)
