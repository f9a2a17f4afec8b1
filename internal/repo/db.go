// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and Postgres, plus schema migrations.
package repo

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/student-records/internal/config"
	"github.com/tbourn/student-records/internal/domain"
)

// Open connects to the store selected by cfg (see config.DatabaseConfig).
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		return OpenPostgres(cfg.URL, cfg.MaxOpenConns)
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath(), cfg.MaxOpenConns)
	}
	return nil, errors.New("unsupported DATABASE_URL scheme")
}

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs and caps
// the pool at maxOpen connections.
func OpenSQLite(path string, maxOpen int) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	tunePool(db, maxOpen)
	return db, nil
}

// OpenPostgres connects to Postgres using a postgres:// connection URL.
// Constraint violations surface as *pgconn.PgError, which the service layer
// classifies by constraint name.
func OpenPostgres(url string, maxOpen int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	tunePool(db, maxOpen)
	return db, nil
}

// EnableTracing attaches the OpenTelemetry GORM plugin so every statement
// becomes a child span of the request span.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates the students and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Student{},
		&domain.Idempotency{},
	)
}

func tunePool(db *gorm.DB, maxOpen int) {
	if maxOpen < 1 {
		maxOpen = 1
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}
