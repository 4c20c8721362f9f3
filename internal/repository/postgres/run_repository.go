package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
)

// RunRepository persists batch runs and their per-file decisions.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun upserts the run summary.
func (r *RunRepository) SaveRun(ctx context.Context, run domain.BatchRun) error {
	query := `
		INSERT INTO replenish_runs (id, source, started_at, finished_at, files, failed, row_count)
		VALUES (:id, :source, :started_at, :finished_at, :files, :failed, :row_count)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			files = EXCLUDED.files,
			failed = EXCLUDED.failed,
			row_count = EXCLUDED.row_count
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// SaveFileResults writes every file and its decisions in one transaction.
// Re-saving a file replaces its earlier decisions.
func (r *RunRepository) SaveFileResults(ctx context.Context, results []domain.FileResult) error {
	if len(results) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, res := range results {
			if err := r.saveFile(ctx, tx, res); err != nil {
				return err
			}
		}
		log.Debug().Int("files", len(results)).Msg("postgres: file results saved")
		return nil
	})
}

func (r *RunRepository) saveFile(ctx context.Context, tx *sqlx.Tx, res domain.FileResult) error {
	rep := res.Report
	_, err := tx.ExecContext(ctx, `
		INSERT INTO replenish_files (
			run_id, file, dataset, status, missing_cells, invalid_cells, non_chronological,
			replenishment_events, duplicate_identifiers, skipped_rows, demand_columns
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id, file) DO UPDATE SET
			dataset = EXCLUDED.dataset,
			status = EXCLUDED.status,
			missing_cells = EXCLUDED.missing_cells,
			invalid_cells = EXCLUDED.invalid_cells,
			non_chronological = EXCLUDED.non_chronological,
			replenishment_events = EXCLUDED.replenishment_events,
			duplicate_identifiers = EXCLUDED.duplicate_identifiers,
			skipped_rows = EXCLUDED.skipped_rows,
			demand_columns = EXCLUDED.demand_columns`,
		res.RunID, res.File, res.Dataset, rep.Status(), rep.MissingCells, rep.InvalidCells,
		rep.NonChronologicalColumns, rep.ReplenishmentEvents, pq.Array(nonNil(rep.DuplicateIdentifiers)),
		rep.SkippedRows, rep.DemandColumns,
	)
	if err != nil {
		return fmt.Errorf("failed to save file %s: %w", res.File, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM replenish_decisions WHERE run_id = $1 AND file = $2`, res.RunID, res.File); err != nil {
		return fmt.Errorf("failed to clear decisions for %s: %w", res.File, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO replenish_decisions (
			run_id, file, sku, vendor, classification, tier, estimator_kind, daily_usage,
			weekly_usage, lead_weeks, lead_time_demand, on_hand, coverage_weeks, decision,
			risk_score, forecast
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range decisionRows(res) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert decision for %s: %w", row[2], err)
		}
	}
	return nil
}

// decisionRows maps records to statement arguments. Infinite coverage and
// missing values become NULL.
func decisionRows(res domain.FileResult) [][]interface{} {
	rows := make([][]interface{}, 0, len(res.Decisions))
	for _, d := range res.Decisions {
		var forecast interface{}
		if len(d.Forecast) > 0 {
			forecast = pq.Array(d.Forecast)
		}
		rows = append(rows, []interface{}{
			res.RunID,
			res.File,
			d.SKU,
			d.Vendor,
			string(d.Classification),
			string(d.Tier),
			string(d.EstimatorKind),
			d.DailyUsage,
			d.WeeklyUsage,
			d.LeadWeeks,
			d.LeadTimeDemand,
			nullFloat(d.OnHand),
			nullMeasure(d.CoverageWeeks),
			string(d.Decision),
			nullFloat(d.RiskScore),
			forecast,
		})
	}
	return rows
}

func nullFloat(f *float64) interface{} {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	return *f
}

func nullMeasure(m domain.Measure) interface{} {
	if !m.Finite() {
		return nil
	}
	return float64(m)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
