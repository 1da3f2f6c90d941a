package database

import (
	"context"
	"database/sql"
	"fmt"

	"panta-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient holds the pool the pricing configuration source reads from.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres %s/%s: %w", cfg.Host, cfg.Database, err)
	}
	return newPostgresClient(db, cfg), nil
}

func newPostgresClient(db *sql.DB, cfg config.PostgresConfig) *PostgresClient {
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(config.GetDuration(cfg.MaxLifetime))
	db.SetConnMaxIdleTime(config.GetDuration(cfg.MaxLifetime))
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// Stats reports pool usage for the readiness endpoint.
func (c *PostgresClient) Stats() map[string]int {
	s := c.DB.Stats()
	return map[string]int{
		"open":    s.OpenConnections,
		"inUse":   s.InUse,
		"idle":    s.Idle,
		"maxOpen": s.MaxOpenConnections,
	}
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
