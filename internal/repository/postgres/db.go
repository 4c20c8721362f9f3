package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens a connection pool through the pgx stdlib driver.
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(10),
	}, nil
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS replenish_runs (
	id          UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	files       INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	row_count   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS replenish_files (
	run_id                UUID NOT NULL,
	file                  TEXT NOT NULL,
	dataset               TEXT NOT NULL,
	status                TEXT NOT NULL,
	missing_cells         INTEGER NOT NULL,
	invalid_cells         INTEGER NOT NULL,
	non_chronological     BOOLEAN NOT NULL,
	replenishment_events  INTEGER NOT NULL,
	duplicate_identifiers TEXT[] NOT NULL,
	skipped_rows          INTEGER NOT NULL,
	demand_columns        INTEGER NOT NULL,
	PRIMARY KEY (run_id, file)
);

CREATE TABLE IF NOT EXISTS replenish_decisions (
	run_id           UUID NOT NULL,
	file             TEXT NOT NULL,
	sku              TEXT NOT NULL,
	vendor           TEXT NOT NULL,
	classification   TEXT NOT NULL,
	tier             TEXT NOT NULL,
	estimator_kind   TEXT NOT NULL,
	daily_usage      DOUBLE PRECISION NOT NULL,
	weekly_usage     DOUBLE PRECISION NOT NULL,
	lead_weeks       DOUBLE PRECISION NOT NULL,
	lead_time_demand DOUBLE PRECISION NOT NULL,
	on_hand          DOUBLE PRECISION,
	coverage_weeks   DOUBLE PRECISION,
	decision         TEXT NOT NULL,
	risk_score       DOUBLE PRECISION,
	forecast         DOUBLE PRECISION[],
	PRIMARY KEY (run_id, file, sku)
);
`

// EnsureSchema creates the export tables when they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
