// Package mqtt publishes recognition outcome events to an MQTT broker.
package mqtt

import (
	"context"
	"strings"
	"time"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic. It waits for the broker until ctx is
	// done or the publish timeout elapses.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the prefix events are published under.
	Topic  string
	QoS    byte
	Retain bool

	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:          "shamzam",
		Topic:             "shamzam",
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// JoinTopic joins topic levels, ignoring empty ones and stray slashes.
func JoinTopic(levels ...string) string {
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		level = strings.Trim(level, "/")
		if level != "" {
			parts = append(parts, level)
		}
	}
	return strings.Join(parts, "/")
}
