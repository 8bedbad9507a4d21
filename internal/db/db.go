// Package db provides database connection handling for echofeed.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL driver registration.
	_ "github.com/lib/pq"
)

const (
	// maxOpenConns bounds the connection pool. Feed and search queries are
	// short-lived, so a modest pool keeps PostgreSQL happy under load.
	maxOpenConns = 25
	maxIdleConns = 5

	// connMaxLifetime recycles connections so load balancer failovers and
	// credential rotations are picked up without a restart.
	connMaxLifetime = 30 * time.Minute

	pingTimeout = 5 * time.Second
)

// Open connects to PostgreSQL, configures the connection pool, and verifies
// connectivity with a ping. The caller owns the returned handle and must
// Close it on shutdown.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}
