package mqtt

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/observability/metrics"
)

// connectionGauge is implemented by metrics that track broker connectivity.
type connectionGauge interface {
	SetConnected(connected bool)
}

// client implements the Client interface on top of paho.
type client struct {
	config          Config
	internalClient  paho.Client
	newClient       func(*paho.ClientOptions) paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	log             logger.Logger
	metrics         metrics.Recorder
}

// Option configures a Client.
type Option func(*client)

// WithLogger sets the client logger.
func WithLogger(log logger.Logger) Option {
	return func(c *client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics records publish counts and connection state.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *client) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// NewClient creates a new MQTT client with the provided configuration. Zero
// durations take their defaults.
func NewClient(cfg Config, opts ...Option) (Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is not configured")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", cfg.QoS)
	}

	defaults := DefaultConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = defaults.ClientID
	}
	if cfg.ReconnectCooldown <= 0 {
		cfg.ReconnectCooldown = defaults.ReconnectCooldown
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = defaults.DisconnectTimeout
	}

	c := &client{
		config:    cfg,
		newClient: paho.NewClient,
		log:       logger.NewNopLogger(),
		metrics:   metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) setConnected(connected bool) {
	if gauge, ok := c.metrics.(connectionGauge); ok {
		gauge.SetConnected(connected)
	}
}

// Connect attempts to establish a connection to the MQTT broker. paho
// reconnects on its own after a successful first connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return fmt.Errorf("connection attempt too recent, last attempt was %v ago", since)
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid broker URL %q: expected scheme://host:port", c.config.Broker)
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = c.newClient(opts)

	token := c.internalClient.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	c.setConnected(true)
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration(metrics.OpOutcomePublish, time.Since(start).Seconds())
		if err != nil {
			c.metrics.RecordOperation(metrics.OpOutcomePublish, metrics.StatusError)
			c.metrics.RecordError(metrics.OpOutcomePublish, "publish")
			return
		}
		c.metrics.RecordOperation(metrics.OpOutcomePublish, metrics.StatusSuccess)
	}()

	c.mu.Lock()
	internal := c.internalClient
	c.mu.Unlock()

	if internal == nil || !internal.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	c.log.Debug("publishing message",
		logger.String("topic", topic),
		logger.Int("payload_bytes", len(payload)))

	token := internal.Publish(topic, c.config.QoS, c.config.Retain, payload)
	if err := waitToken(ctx, token, c.config.PublishTimeout); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// waitToken blocks until token completes, ctx is done or timeout elapses.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %v", timeout)
	}
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.setConnected(false)
	}
}

func (c *client) onConnect(_ paho.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
	c.setConnected(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", c.config.Broker),
		logger.Error(err))
	c.setConnected(false)
}
