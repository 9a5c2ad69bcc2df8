// Package config loads the tool settings from the process environment
// (populated from .env by main) and the collection catalog file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/BartekS5/marketsync/pkg/database"
	"github.com/caarlos0/env/v11"
)

// Environment names one side of a transfer.
type Environment string

const (
	Development Environment = "dev"
	Production  Environment = "prod"
)

// Label is the human-readable name used in status lines and metadata.
func (e Environment) Label() string {
	switch e {
	case Development:
		return "development"
	case Production:
		return "production"
	default:
		return string(e)
	}
}

// Config holds all configuration for the tools, loaded from environment
// variables. Connection strings are only ever read from here.
type Config struct {
	DevURI             string `env:"MONGODB_URI_DEV"`
	ProdURI            string `env:"MONGODB_URI_PROD"`
	DevDatabase        string `env:"MONGODB_DB_DEV"`
	ProdDatabase       string `env:"MONGODB_DB_PROD"`
	BackupDir          string `env:"BACKUP_DIR" envDefault:"backups"`
	BatchSize          int    `env:"SYNC_BATCH_SIZE" envDefault:"1000"`
	CatalogFile        string `env:"CATALOG_FILE"`
	AuditLogFile       string `env:"AUDIT_LOG_FILE"`
	AuditSQLConnString string `env:"AUDIT_SQL_CONNECTION_STRING"`
	LogFile            string `env:"LOG_FILE"`
}

// Endpoint is a resolved MongoDB database for one environment.
type Endpoint struct {
	Environment Environment
	URI         string
	Database    string
}

// LoadConfig parses the environment. Missing connection strings are not an
// error here; Endpoint reports them for the side a command actually needs.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", cfg.BatchSize)
	}
	return &cfg, nil
}

// Endpoint resolves the connection string and database for e.
func (c *Config) Endpoint(e Environment) (Endpoint, error) {
	var uri, db, uriVar string
	switch e {
	case Development:
		uri, db, uriVar = c.DevURI, c.DevDatabase, "MONGODB_URI_DEV"
	case Production:
		uri, db, uriVar = c.ProdURI, c.ProdDatabase, "MONGODB_URI_PROD"
	default:
		return Endpoint{}, fmt.Errorf("unknown environment %q", e)
	}

	if uri == "" {
		return Endpoint{}, errors.New(uriVar + " environment variable not set")
	}

	name, err := database.DatabaseName(uri, db)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%s: %w", uriVar, err)
	}
	return Endpoint{Environment: e, URI: uri, Database: name}, nil
}

// SameDatabase reports whether e and o name the same database on the same
// deployment, whatever credentials or options their URIs carry.
func (e Endpoint) SameDatabase(o Endpoint) bool {
	if e.Database != o.Database {
		return false
	}
	a, errA := database.Deployment(e.URI)
	b, errB := database.Deployment(o.URI)
	if errA != nil || errB != nil {
		return e.URI == o.URI
	}
	return a == b
}

// AuditLogPath is where JSON-lines audit entries are appended.
func (c *Config) AuditLogPath() string {
	if c.AuditLogFile != "" {
		return c.AuditLogFile
	}
	return filepath.Join(c.BackupDir, "audit.log")
}
