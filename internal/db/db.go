// Package db stores filtered flight records in PostgreSQL. It is the
// optional persistence sink used by the collector; the filtering core
// never touches it.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/unklstewy/flightlog/pkg/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with helper methods.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// Connect establishes a connection to the PostgreSQL database.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:     sqlDB,
		config: cfg,
	}, nil
}

// InitSchema creates or updates the database schema.
// This should be called once at application startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// CleanupOldData removes flights not seen within maxAge and position
// history older than the retention window. Should be called
// periodically to prevent unbounded growth.
func (db *DB) CleanupOldData(ctx context.Context, maxAge, retention time.Duration) error {
	now := time.Now().UTC()

	_, err := db.ExecContext(ctx,
		`DELETE FROM flight_positions WHERE recorded_at < $1`,
		now.Add(-retention),
	)
	if err != nil {
		return fmt.Errorf("failed to delete old positions: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM flights WHERE last_seen < $1`,
		now.Add(-maxAge),
	)
	if err != nil {
		return fmt.Errorf("failed to delete stale flights: %w", err)
	}

	return nil
}
