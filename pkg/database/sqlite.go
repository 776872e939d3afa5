package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xo/dburl"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	// URL takes precedence over Path, e.g. "sqlite:data/workflow.db"
	URL             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// DB wraps sql.DB with additional functionality
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New creates a new database connection
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	driver, dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	if cfg.URL == "" && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		logger: logger,
	}

	logger.Info("Database connection established", zap.String("driver", driver))
	return db, nil
}

// dsn resolves the driver and data source name.
// WAL, a busy timeout, foreign keys and BEGIN IMMEDIATE are always enabled
// so concurrent writers queue on the database lock instead of failing.
func (cfg Config) dsn() (string, string, error) {
	var base string
	switch {
	case cfg.URL != "":
		u, err := dburl.Parse(cfg.URL)
		if err != nil {
			return "", "", fmt.Errorf("failed to parse database url: %w", err)
		}
		if u.Driver != "sqlite3" {
			return "", "", fmt.Errorf("unsupported database driver %q", u.Driver)
		}
		base = u.DSN
	case cfg.Path != "":
		base = "file:" + cfg.Path
	default:
		return "", "", fmt.Errorf("database url or path is required")
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}

	return "sqlite3", fmt.Sprintf("%s%s_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on&_txlock=immediate",
		base, sep, busy.Milliseconds()), nil
}

// WithTransaction executes a function within a transaction
func (db *DB) WithTransaction(fn func(*sql.Tx) error) error {
	tx, err := db.DB.Begin()
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	db.logger.Info("Closing database connection")
	return db.DB.Close()
}
