// Package sqlite stores tickets as opaque account records in a local SQLite
// database, one row per ticket identity.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id BLOB PRIMARY KEY,
	account BLOB NOT NULL,
	minted_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Pool is a fixed-size pool of SQLite connections with the tickets schema
// applied. Connections are not safe for concurrent use; each goroutine
// takes its own and puts it back.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open creates the pool. The database file is created if it does not exist.
// A poolSize of zero or less defaults to max(runtime.NumCPU(), 4).
func Open(path string, poolSize int, logger *slog.Logger) (*Pool, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if poolSize <= 0 {
		poolSize = max(runtime.NumCPU(), 4)
	}

	inner, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", path, err)
	}

	logger.Info("sqlite pool opened", "path", path, "pool_size", poolSize)
	return &Pool{inner: inner, logger: logger, path: path}, nil
}

func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: take: %w", err)
	}
	return conn, nil
}

func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Ping borrows a connection and runs a trivial query on it.
func (p *Pool) Ping(ctx context.Context) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)
	if err := sqlitex.ExecuteTransient(conn, "SELECT 1", nil); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close blocks until every borrowed connection is returned.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close error", "path", p.path, "error", err)
		return fmt.Errorf("sqlite: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}
