package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers a default for every key. Keys without a default
// are invisible to environment overrides during Unmarshal.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.timezone", "Local")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", "shamzam.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "shamzam")
	v.SetDefault("database.slowquerythreshold", 200*time.Millisecond)

	v.SetDefault("recognition.endpoint", "https://api.audd.io/")
	v.SetDefault("recognition.apitoken", "")
	v.SetDefault("recognition.timeout", 30*time.Second)
	v.SetDefault("recognition.return", "")
	v.SetDefault("recognition.ratelimit", 0.0)
	v.SetDefault("recognition.burst", 1)

	v.SetDefault("server.listen", "127.0.0.1:5000")
	v.SetDefault("server.allowreset", false)
	v.SetDefault("server.maxuploadsize", 32<<20)
	v.SetDefault("server.readtimeout", 30*time.Second)
	v.SetDefault("server.writetimeout", 60*time.Second)
	v.SetDefault("server.shutdowntimeout", 10*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientid", "shamzam")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "shamzam")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("telemetry.sentry.dsn", "")
	v.SetDefault("telemetry.sentry.environment", "production")
	v.SetDefault("telemetry.metrics.enabled", true)
}
