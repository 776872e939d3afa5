// Package container provides dependency injection and lifecycle management
// for the content workflow service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workflow engine configuration
	Workflow WorkflowConfig

	// Storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is an optional xo/dburl connection string; it wins over Path
	URL string

	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the SQLite lock
	BusyTimeout time.Duration
}

// WorkflowConfig holds workflow engine settings.
type WorkflowConfig struct {
	// CacheExpiry bounds how long a cached workflow definition is served
	CacheExpiry time.Duration

	// DefinitionsFile is an optional YAML document applied at startup
	DefinitionsFile string

	// SeedDefault applies the built-in content workflow when none is configured
	SeedDefault bool
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// ExportDir is the base directory for history exports
	ExportDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/workflow.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Workflow: WorkflowConfig{
			CacheExpiry: 10 * time.Minute,
			SeedDefault: true,
		},
		Storage: StorageConfig{
			ExportDir: "exports",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Path == "" {
		return fmt.Errorf("database.url or database.path is required")
	}
	if c.Workflow.CacheExpiry <= 0 {
		return fmt.Errorf("workflow.cache_expiry must be positive")
	}
	if c.Storage.ExportDir == "" {
		return fmt.Errorf("storage.export_dir is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return nil
}
