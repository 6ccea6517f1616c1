package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SHAMZAM_SERVER_LISTEN.
const EnvPrefix = "SHAMZAM"

// DefaultEnvFiles are loaded by LoadEnvFiles when no files are given.
var DefaultEnvFiles = []string{".env", "api.env"}

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVars   []string           // Environment variable names, first set wins
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the bindings that do not follow the SHAMZAM_ naming.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"recognition.apitoken", []string{"SHAMZAM_RECOGNITION_APITOKEN", "AUDD_API_KEY"}, nil},
		{"recognition.timeout", []string{"SHAMZAM_RECOGNITION_TIMEOUT"}, nil},
		{"database.mysql.password", []string{"SHAMZAM_DATABASE_MYSQL_PASSWORD", "MYSQL_PASSWORD"}, nil},
		{"server.allowreset", []string{"SHAMZAM_SERVER_ALLOWRESET"}, validateEnvBool},
		{"mqtt.enabled", []string{"SHAMZAM_MQTT_ENABLED"}, validateEnvBool},
		{"mqtt.qos", []string{"SHAMZAM_MQTT_QOS"}, validateEnvQoS},
		{"telemetry.sentry.dsn", []string{"SHAMZAM_TELEMETRY_SENTRY_DSN", "SENTRY_DSN"}, nil},
	}
}

// bindEnvVars enables SHAMZAM_* overrides for every key and adds the
// explicit bindings above.
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var problems []string
	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.ConfigKey, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, name := range binding.EnvVars {
			if value := os.Getenv(name); value != "" {
				if err := binding.Validate(value); err != nil {
					problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", name, value, err))
				}
			}
		}
	}

	if len(problems) > 0 {
		return configError(fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - ")))
	}
	return nil
}

// LoadEnvFiles loads KEY=value files into the process environment. Missing
// files are skipped and variables already set are not overridden.
func LoadEnvFiles(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}

	var loaded []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return loaded, configError(fmt.Errorf("env file %s: %w", file, err))
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, configError(fmt.Errorf("env file %s: %w", file, err))
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvQoS(value string) error {
	qos, err := strconv.Atoi(value)
	if err != nil || qos < 0 || qos > 2 {
		return fmt.Errorf("must be 0, 1 or 2")
	}
	return nil
}
