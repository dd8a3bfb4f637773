// Package store persists cleaned tables and the quality report to
// PostgreSQL. Each run replaces the previous one; no history is kept.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/bankquality/internal/config"
	"github.com/JonMunkholm/bankquality/internal/core"
)

// ReportTable holds the single quality report row of the latest run.
const ReportTable = "quality_report"

const createReportSQL = `CREATE TABLE IF NOT EXISTS quality_report (
	run_id                    TEXT PRIMARY KEY,
	processed_at              TIMESTAMPTZ NOT NULL,
	duplicate_customers       INTEGER NOT NULL,
	duplicate_accounts        INTEGER NOT NULL,
	duplicate_transactions    INTEGER NOT NULL,
	invalid_account_links     INTEGER NOT NULL,
	invalid_transaction_links INTEGER NOT NULL,
	future_transactions       INTEGER NOT NULL,
	sign_inconsistencies      INTEGER NOT NULL,
	diagnostics               JSONB NOT NULL,
	clean_stats               JSONB NOT NULL
)`

const insertReportSQL = `INSERT INTO quality_report (
	run_id, processed_at,
	duplicate_customers, duplicate_accounts, duplicate_transactions,
	invalid_account_links, invalid_transaction_links,
	future_transactions, sign_inconsistencies,
	diagnostics, clean_stats
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Open connects a pool using cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return pool, nil
}

// Beginner starts a transaction. Satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Sink writes runs to PostgreSQL.
type Sink struct {
	db Beginner
}

// NewSink returns a sink writing through db.
func NewSink(db Beginner) *Sink {
	return &Sink{db: db}
}

// Name identifies the sink in logs.
func (s *Sink) Name() string { return "postgres" }

// Write replaces the contents of the cleaned tables and the quality report
// with res inside one transaction. Tables are created when missing.
func (s *Sink) Write(ctx context.Context, runID string, res core.Result) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := WriteRun(ctx, tx, runID, res); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reset empties every output table, creating them when missing.
func (s *Sink) Reset(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := Migrate(ctx, tx); err != nil {
		return err
	}
	if err := truncateAll(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate creates the cleaned tables and the report table if they do not exist.
func Migrate(ctx context.Context, db core.DBTX) error {
	for _, def := range core.All() {
		if _, err := db.Exec(ctx, def.CreateSQL); err != nil {
			return fmt.Errorf("create %s: %w", def.Info.OutputName, err)
		}
	}
	if _, err := db.Exec(ctx, createReportSQL); err != nil {
		return fmt.Errorf("create %s: %w", ReportTable, err)
	}
	return nil
}

func truncateAll(ctx context.Context, db core.DBTX) error {
	names := []string{ReportTable}
	for _, def := range core.All() {
		names = append(names, pgx.Identifier{def.Info.OutputName}.Sanitize())
	}
	if _, err := db.Exec(ctx, "TRUNCATE "+strings.Join(names, ", ")); err != nil {
		return fmt.Errorf("truncate output tables: %w", err)
	}
	return nil
}

// WriteRun migrates, truncates and refills the output tables through db.
// Callers provide the transaction boundary.
func WriteRun(ctx context.Context, db core.DBTX, runID string, res core.Result) error {
	if err := Migrate(ctx, db); err != nil {
		return err
	}
	if err := truncateAll(ctx, db); err != nil {
		return err
	}

	ds := res.Dataset
	if err := copyTable(ctx, db, core.TableCustomers, ds.Customers); err != nil {
		return err
	}
	if err := copyTable(ctx, db, core.TableAccounts, ds.Accounts); err != nil {
		return err
	}
	if err := copyTable(ctx, db, core.TableTransactions, ds.Transactions); err != nil {
		return err
	}

	r := res.Report
	if _, err := db.Exec(ctx, insertReportSQL,
		runID, res.ProcessedAt,
		r.DuplicateCustomers, r.DuplicateAccounts, r.DuplicateTransactions,
		r.InvalidAccountLinks, r.InvalidTransactionLinks,
		r.FutureTransactions, r.SignInconsistencies,
		res.Diagnostics, res.CleanStats,
	); err != nil {
		return fmt.Errorf("insert %s: %w", ReportTable, err)
	}
	return nil
}

// copyTable bulk loads rows into the table registered under key using the
// COPY protocol.
func copyTable[T any](ctx context.Context, db core.DBTX, key string, rows []T) error {
	def := core.MustGet(key)
	if !def.SupportsCopy() {
		return fmt.Errorf("table %s has no COPY mapping", key)
	}
	if len(rows) == 0 {
		return nil
	}

	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return def.CopyRow(rows[i]), nil
	})

	n, err := db.CopyFrom(ctx, pgx.Identifier{def.Info.OutputName}, def.CopyColumns, src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", def.Info.OutputName, err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy %s: wrote %d of %d rows", def.Info.OutputName, n, len(rows))
	}
	return nil
}
