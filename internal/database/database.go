package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ngenohkevin/prize_admin/internal/cache"
)

type DB struct {
	Pool  *pgxpool.Pool
	Cache *cache.Cache
}

// New connects to Postgres at dbURL, optionally applying migrations first
func New(ctx context.Context, dbURL string, runMigrations bool) (*DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database url not set")
	}

	if runMigrations {
		if err := RunMigrations(dbURL, "file://migrations"); err != nil {
			log.Printf("Warning: Migration error: %v", err)
			// Continue anyway, as migrations may have already been applied
		}
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing database config: %w", err)
	}

	// Disable prepared statements for PgBouncer compatibility
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 10 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Println("Successfully connected to the database")
	return &DB{
		Pool:  pool,
		Cache: cache.New(5 * time.Minute),
	}, nil
}

// Close closes the pool and stops the cache janitor
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Cache != nil {
		db.Cache.Close()
	}
}

// RunMigrations applies every pending migration from sourceURL
func RunMigrations(dbURL, sourceURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error applying migrations: %w", err)
	}

	return nil
}
