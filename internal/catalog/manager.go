package catalog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/adamokeah/shamzam/internal/logger"
)

// lockRetryDelay is the polling interval while waiting for the schema lock.
const lockRetryDelay = 50 * time.Millisecond

// Backend names accepted in Config.Type.
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Manager owns the database connection and the tracks schema.
type Manager interface {
	// Initialize creates the schema if it does not exist.
	Initialize(ctx context.Context) error
	// Recreate drops the tracks table and rebuilds it empty, so that the
	// next inserted track gets id 1.
	Recreate(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location for display.
	Path() string
	// IsMySQL reports whether key comparisons need MySQL's BINARY operator.
	IsMySQL() bool
	// Close closes the database connection.
	Close() error
}

// Config selects and configures the catalog backend.
type Config struct {
	Type               string
	SQLitePath         string
	MySQL              MySQLConfig
	SlowQueryThreshold time.Duration
}

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// Open connects to the configured backend. The schema is not touched until
// Initialize is called.
func Open(cfg Config, log logger.Logger) (Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	switch cfg.Type {
	case "", BackendSQLite:
		return NewSQLiteManager(cfg, log)
	case BackendMySQL:
		return NewMySQLManager(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported catalog backend %q", cfg.Type)
	}
}

func gormConfig(cfg Config, log logger.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("sql"), cfg.SlowQueryThreshold),
	}
}
