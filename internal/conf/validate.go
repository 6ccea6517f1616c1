package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError collects every problem found in the settings.
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct. The returned error
// wraps a ValidationError and carries the configuration category.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) error{
		validateLogging,
		validateDatabase,
		validateRecognition,
		validateServer,
		validateMQTT,
	} {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return configError(ve)
	}
	return nil
}

func validateLogging(s *Settings) error {
	switch s.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of trace, debug, info, warn, error", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", s.Logging.Format)
	}
	return nil
}

func validateDatabase(s *Settings) error {
	switch s.Database.Type {
	case "sqlite":
		if s.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "mysql":
		m := s.Database.MySQL
		if m.Host == "" || m.Database == "" || m.Username == "" {
			return fmt.Errorf("database.mysql host, database and username are required")
		}
	default:
		return fmt.Errorf("database.type must be sqlite or mysql, got %q", s.Database.Type)
	}
	return nil
}

func validateRecognition(s *Settings) error {
	u, err := url.Parse(s.Recognition.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("recognition.endpoint must be an http(s) URL, got %q", s.Recognition.Endpoint)
	}
	if s.Recognition.Timeout <= 0 {
		return fmt.Errorf("recognition.timeout must be positive")
	}
	if s.Recognition.RateLimit < 0 {
		return fmt.Errorf("recognition.ratelimit must not be negative")
	}
	return nil
}

func validateServer(s *Settings) error {
	if _, _, err := net.SplitHostPort(s.Server.Listen); err != nil {
		return fmt.Errorf("server.listen %q is not host:port: %w", s.Server.Listen, err)
	}
	if s.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server.maxuploadsize must be positive")
	}
	return nil
}

func validateMQTT(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	if s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if s.MQTT.QoS < 0 || s.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}
