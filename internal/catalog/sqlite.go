package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adamokeah/shamzam/internal/logger"
)

// MemoryPath selects a private in-memory SQLite database.
const MemoryPath = ":memory:"

// SQLiteManager handles a file-backed (or in-memory) SQLite catalog.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
	lock   *flock.Flock // nil for in-memory databases
	log    logger.Logger
}

// NewSQLiteManager opens the SQLite database at cfg.SQLitePath.
func NewSQLiteManager(cfg Config, log logger.Logger) (*SQLiteManager, error) {
	dbPath := cfg.SQLitePath
	if dbPath == "" {
		dbPath = MemoryPath
	}

	var fileLock *flock.Flock
	dsn := dbPath
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
		fileLock = flock.New(dbPath + ".lock")
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	// One connection serializes writers, so concurrently inserted tracks get
	// distinct increasing ids, and keeps an in-memory database alive.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return &SQLiteManager{
		db:     db,
		dbPath: dbPath,
		lock:   fileLock,
		log:    log,
	}, nil
}

// withFileLock holds an exclusive lock on <db>.lock while fn runs, so schema
// changes from another shamzam process never interleave with ours.
func (m *SQLiteManager) withFileLock(ctx context.Context, fn func() error) error {
	if m.lock == nil {
		return fn()
	}
	locked, err := m.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock catalog database: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock catalog database %s", m.dbPath)
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.log.Warn("failed to release catalog lock", logger.Error(err))
		}
	}()
	return fn()
}

// Initialize creates the tracks table and its key index.
func (m *SQLiteManager) Initialize(ctx context.Context) error {
	return m.withFileLock(ctx, func() error {
		if err := m.db.WithContext(ctx).AutoMigrate(&Track{}); err != nil {
			return fmt.Errorf("failed to migrate catalog schema: %w", err)
		}
		return nil
	})
}

// Recreate drops and rebuilds the tracks table and clears its
// AUTOINCREMENT counter in a single transaction.
func (m *SQLiteManager) Recreate(ctx context.Context) error {
	return m.withFileLock(ctx, func() error {
		return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Migrator().DropTable(&Track{}); err != nil {
				return fmt.Errorf("failed to drop tracks table: %w", err)
			}
			if tx.Migrator().HasTable("sqlite_sequence") {
				if err := tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", Track{}.TableName()).Error; err != nil {
					return fmt.Errorf("failed to reset track id sequence: %w", err)
				}
			}
			if err := tx.AutoMigrate(&Track{}); err != nil {
				return fmt.Errorf("failed to recreate tracks table: %w", err)
			}
			return nil
		})
	})
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// IsMySQL returns false.
func (m *SQLiteManager) IsMySQL() bool {
	return false
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
