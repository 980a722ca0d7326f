// Package store persists an audit trail of executed tool calls. A
// Postgres-backed implementation is used when a DSN is configured;
// otherwise a no-op store keeps the gateway fully functional without a
// database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ToolCall is one audited tool execution.
type ToolCall struct {
	ID        int64
	RequestID string
	ToolName  string
	Params    []byte
	Result    []byte
	Success   bool
	CreatedAt time.Time
}

// Store records and reads back tool call audit rows.
type Store interface {
	RecordToolCall(ctx context.Context, call ToolCall) error
	RecentToolCalls(ctx context.Context, limit int) ([]ToolCall, error)
	Close()
}

// Noop discards writes and reads back nothing.
type Noop struct{}

func (Noop) RecordToolCall(ctx context.Context, call ToolCall) error { return nil }

func (Noop) RecentToolCalls(ctx context.Context, limit int) ([]ToolCall, error) {
	return nil, nil
}

func (Noop) Close() {}

// PG is the Postgres-backed store.
type PG struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to Postgres, applies pending migrations, and returns a
// ready store.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*PG, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := migrate(dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PG{pool: pool, logger: logger}, nil
}

// migrate applies embedded goose migrations over a short-lived
// database/sql connection; the pool is opened afterward.
func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open for migrate: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *PG) RecordToolCall(ctx context.Context, call ToolCall) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tool_calls (request_id, tool_name, params, result, success)
		 VALUES ($1, $2, $3, $4, $5)`,
		call.RequestID, call.ToolName, call.Params, call.Result, call.Success,
	)
	if err != nil {
		return fmt.Errorf("record tool call: %w", err)
	}
	return nil
}

func (s *PG) RecentToolCalls(ctx context.Context, limit int) ([]ToolCall, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, request_id, tool_name, params, result, success, created_at
		 FROM tool_calls ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tool calls: %w", err)
	}
	defer rows.Close()

	var calls []ToolCall
	for rows.Next() {
		var c ToolCall
		if err := rows.Scan(&c.ID, &c.RequestID, &c.ToolName, &c.Params, &c.Result, &c.Success, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func (s *PG) Close() {
	s.pool.Close()
}
