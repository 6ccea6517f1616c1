// Package conf loads shamzam settings from a YAML file, environment
// variables and command line flags.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/logger"
)

// Settings is the complete application configuration.
type Settings struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`

	Logging logger.Config `mapstructure:"logging" yaml:"logging"`

	Database    DatabaseSettings    `mapstructure:"database" yaml:"database"`
	Recognition RecognitionSettings `mapstructure:"recognition" yaml:"recognition"`
	Server      ServerSettings      `mapstructure:"server" yaml:"server"`
	MQTT        MQTTSettings        `mapstructure:"mqtt" yaml:"mqtt"`
	Telemetry   TelemetrySettings   `mapstructure:"telemetry" yaml:"telemetry"`
}

// DatabaseSettings selects the catalog backend.
type DatabaseSettings struct {
	Type               string         `mapstructure:"type" yaml:"type"` // sqlite or mysql
	SQLite             SQLiteSettings `mapstructure:"sqlite" yaml:"sqlite"`
	MySQL              MySQLSettings  `mapstructure:"mysql" yaml:"mysql"`
	SlowQueryThreshold time.Duration  `mapstructure:"slowquerythreshold" yaml:"slowquerythreshold"`
}

// SQLiteSettings contains settings for the SQLite catalog.
type SQLiteSettings struct {
	Path string `mapstructure:"path" yaml:"path"` // path to the database file
}

// MySQLSettings contains settings for the MySQL catalog.
type MySQLSettings struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

// RecognitionSettings configures the AudD provider.
type RecognitionSettings struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIToken  string        `mapstructure:"apitoken" yaml:"apitoken"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Return    string        `mapstructure:"return" yaml:"return"`       // extra AudD result sections
	RateLimit float64       `mapstructure:"ratelimit" yaml:"ratelimit"` // calls per second, 0 disables
	Burst     int           `mapstructure:"burst" yaml:"burst"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Listen          string        `mapstructure:"listen" yaml:"listen"`
	AllowReset      bool          `mapstructure:"allowreset" yaml:"allowreset"` // exposes POST /api/v1/admin/reset
	MaxUploadSize   int64         `mapstructure:"maxuploadsize" yaml:"maxuploadsize"`
	ReadTimeout     time.Duration `mapstructure:"readtimeout" yaml:"readtimeout"`
	WriteTimeout    time.Duration `mapstructure:"writetimeout" yaml:"writetimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout" yaml:"shutdowntimeout"`
}

// MQTTSettings configures publication of recognition outcomes.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"clientid" yaml:"clientid"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	QoS      int    `mapstructure:"qos" yaml:"qos"`
	Retain   bool   `mapstructure:"retain" yaml:"retain"`
}

// TelemetrySettings configures error reporting and metrics.
type TelemetrySettings struct {
	Sentry  SentrySettings  `mapstructure:"sentry" yaml:"sentry"`
	Metrics MetricsSettings `mapstructure:"metrics" yaml:"metrics"`
}

// SentrySettings configures Sentry error reporting; an empty DSN disables it.
type SentrySettings struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// New returns a viper instance with defaults, config search paths and
// environment bindings in place. Flags may be bound to it before Load.
func New() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, path := range DefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}
	return v, nil
}

// DefaultConfigPaths returns the directories searched for config.yaml, in
// order of precedence.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "shamzam"))
	}
	return append(paths, "/etc/shamzam")
}

// Load reads the configuration into Settings and validates it. configFile
// overrides the search paths; a missing file in the search paths is not an
// error and leaves the defaults in effect.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, configError(fmt.Errorf("error reading config file: %w", err))
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, configError(fmt.Errorf("error unmarshaling config into struct: %w", err))
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Redacted returns a copy of s with secrets masked, for display.
func (s *Settings) Redacted() *Settings {
	c := *s
	c.Recognition.APIToken = logger.RedactToken(c.Recognition.APIToken)
	c.Database.MySQL.Password = redactSecret(c.Database.MySQL.Password)
	c.MQTT.Password = redactSecret(c.MQTT.Password)
	c.Telemetry.Sentry.DSN = redactSecret(c.Telemetry.Sentry.DSN)
	return &c
}

func redactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}

func configError(err error) error {
	return errors.New(err).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}
