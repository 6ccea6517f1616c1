package catalog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/adamokeah/shamzam/internal/logger"
)

// MySQLManager handles a catalog stored in a MySQL database.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// NewMySQLManager connects to the MySQL server described by cfg.MySQL.
func NewMySQLManager(cfg Config, log logger.Logger) (*MySQLManager, error) {
	my := cfg.MySQL
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		my.Username, my.Password, my.Host, my.Port, my.Database)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL catalog: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &MySQLManager{
		db:       db,
		location: fmt.Sprintf("%s:%s/%s", my.Host, my.Port, my.Database),
	}, nil
}

// Initialize creates the tracks table and its key index.
func (m *MySQLManager) Initialize(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&Track{}); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// Recreate drops and rebuilds the tracks table. A new InnoDB table starts
// its AUTO_INCREMENT counter at 1.
func (m *MySQLManager) Recreate(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	if err := db.Migrator().DropTable(&Track{}); err != nil {
		return fmt.Errorf("failed to drop tracks table: %w", err)
	}
	if err := db.AutoMigrate(&Track{}); err != nil {
		return fmt.Errorf("failed to recreate tracks table: %w", err)
	}
	return nil
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Path returns host:port/database.
func (m *MySQLManager) Path() string {
	return m.location
}

// IsMySQL returns true.
func (m *MySQLManager) IsMySQL() bool {
	return true
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
