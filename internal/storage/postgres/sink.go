// Package postgres implements a Postgres sink using pgx v5. Rows are
// buffered and flushed with COPY in batches; the target table can be
// created on first use (all text columns, since the converter's cells are
// already encoded strings).
//
// The sink requires the fixed-schema mode: a table's column set cannot
// evolve mid-run, so the header contract must hold before the first COPY.
// Config validation enforces this upstream.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tweetcsv/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, Config{
			DSN:        cfg.DSN,
			Table:      cfg.Table,
			AutoCreate: cfg.AutoCreate,
			CopyBatch:  cfg.CopyBatch,
		})
	})
}

// Config holds Postgres sink configuration.
type Config struct {
	DSN        string // connection string for pgxpool
	Table      string // fully qualified target table, e.g. "public.tweets"
	AutoCreate bool   // create the table if it does not exist
	CopyBatch  int    // rows per COPY flush
}

// Sink is a Postgres-backed implementation of storage.Sink.
type Sink struct {
	pool    *pgxpool.Pool
	cfg     Config
	columns []string
	buf     [][]any
}

// New connects the pool eagerly so configuration errors fail the run
// before any input is consumed.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.CopyBatch <= 0 {
		cfg.CopyBatch = 1000
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Sink{pool: pool, cfg: cfg}, nil
}

// WriteHeader fixes the column set and, when configured, creates the
// target table.
func (s *Sink) WriteHeader(ctx context.Context, columns []string) error {
	s.columns = append([]string(nil), columns...)
	if !s.cfg.AutoCreate {
		return nil
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgIdent(c) + " text"
	}
	create := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		pgFQN(s.cfg.Table), strings.Join(defs, ", "),
	)
	if _, err := s.pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}
	return nil
}

// WriteRow buffers one row and flushes a COPY batch when full.
func (s *Sink) WriteRow(ctx context.Context, values []string) error {
	if s.columns == nil {
		return fmt.Errorf("postgres: WriteRow before WriteHeader")
	}
	row := make([]any, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = nil // empty cells load as NULL
			continue
		}
		row[i] = v
	}
	s.buf = append(s.buf, row)
	if len(s.buf) >= s.cfg.CopyBatch {
		return s.Flush(ctx)
	}
	return nil
}

// Flush COPYs all buffered rows into the target table.
func (s *Sink) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	n, err := s.pool.CopyFrom(ctx, tableIdent(s.cfg.Table), s.columns, pgx.CopyFromRows(s.buf))
	if err != nil {
		return fmt.Errorf("postgres: copy %d rows: %w", len(s.buf), err)
	}
	if int(n) != len(s.buf) {
		return fmt.Errorf("postgres: copy wrote %d of %d rows", n, len(s.buf))
	}
	s.buf = s.buf[:0]
	return nil
}

// Close flushes any remaining rows and releases the pool.
func (s *Sink) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.pool.Close()
	return err
}

// tableIdent splits "schema.table" into a pgx.Identifier.
func tableIdent(fqn string) pgx.Identifier {
	parts := strings.SplitN(fqn, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}
	}
	return pgx.Identifier{fqn}
}

// pgIdent double-quotes a single identifier. Column names contain dots
// (extraction paths), so quoting is mandatory.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// pgFQN quotes each part of a possibly schema-qualified table name.
func pgFQN(fqn string) string {
	parts := strings.SplitN(fqn, ".", 2)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = pgIdent(p)
	}
	return strings.Join(quoted, ".")
}
