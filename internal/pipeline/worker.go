package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/engine"
	"github.com/andresuchdata/replenish/internal/ingest"
	"github.com/andresuchdata/replenish/internal/report"
)

// Worker analyzes count exports in a bounded pool. Each file gets its own
// engine, so files never share state.
type Worker struct {
	config    Config
	engineCfg engine.Config
	cache     cache.AnalysisCache
	sink      Sink

	purchaseOrders []domain.PurchaseOrder
	poContent      []byte
	leadOverrides  map[string]float64
}

// Option configures a Worker.
type Option func(*Worker)

// WithCache reuses analyses of files whose content and parameters match.
func WithCache(c cache.AnalysisCache) Option {
	return func(w *Worker) { w.cache = c }
}

// WithSink forwards run results, typically to Postgres.
func WithSink(s Sink) Option {
	return func(w *Worker) { w.sink = s }
}

// WithPurchaseOrders applies the same purchase orders to every file. content
// is the raw export and only feeds the cache key.
func WithPurchaseOrders(pos []domain.PurchaseOrder, content []byte) Option {
	return func(w *Worker) {
		w.purchaseOrders = pos
		w.poContent = content
	}
}

// WithLeadOverrides pins vendor lead times for every file.
func WithLeadOverrides(overrides map[string]float64) Option {
	return func(w *Worker) { w.leadOverrides = overrides }
}

// NewWorker creates a new batch worker
func NewWorker(cfg Config, engineCfg engine.Config, opts ...Option) *Worker {
	w := &Worker{
		config:    cfg.withDefaults(),
		engineCfg: engineCfg,
		cache:     cache.NewNoopAnalysisCache(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes every file and returns the summary. A failed file is
// recorded on its job and does not stop the others; only context
// cancellation and sink failures abort the run.
func (w *Worker) Run(ctx context.Context, source string, files []string) (*RunSummary, error) {
	run := domain.BatchRun{
		ID:        uuid.New(),
		Source:    source,
		StartedAt: time.Now(),
		Files:     len(files),
	}
	log.Info().Str("run", run.ID.String()).Str("source", source).Int("files", len(files)).Msg("pipeline: starting run")

	if err := os.MkdirAll(w.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	aggregator := NewAggregator(w.config, run.ID, w.sink)

	jobs := make([]*FileJob, len(files))
	for i, f := range files {
		jobs[i] = &FileJob{FilePath: f, Status: domain.JobPending}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.WorkerCount)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			res, err := w.processWithRetry(gctx, run.ID, job)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return nil
			}
			return aggregator.Add(gctx, *res)
		})
	}

	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = aggregator.Finalize(ctx)
	}

	summary := &RunSummary{RunID: run.ID, Files: len(files), Jobs: jobs, CombinedPath: aggregator.Path()}
	for _, job := range jobs {
		if job.Status == domain.JobFailed {
			summary.Failed++
		}
		summary.Rows += job.Rows
	}
	if waitErr != nil {
		return summary, waitErr
	}

	run.FinishedAt = time.Now()
	run.Failed = summary.Failed
	run.Rows = summary.Rows
	if w.sink != nil {
		if err := w.sink.SaveRun(ctx, run); err != nil {
			return summary, fmt.Errorf("failed to save run: %w", err)
		}
	}

	log.Info().
		Str("run", run.ID.String()).
		Int("files", summary.Files).
		Int("failed", summary.Failed).
		Int("rows", summary.Rows).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("pipeline: run completed")
	return summary, nil
}

func (w *Worker) processWithRetry(ctx context.Context, runID uuid.UUID, job *FileJob) (*domain.FileResult, error) {
	start := time.Now()
	job.Status = domain.JobRunning

	var lastErr error
	for job.Attempts < w.config.RetryAttempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		job.Attempts++
		res, cached, err := w.processFile(ctx, runID, job.FilePath)
		if err == nil {
			job.Status = domain.JobDone
			if cached {
				job.Status = domain.JobCached
			}
			job.Rows = len(res.Decisions)
			job.OutputPath = outputPath(w.config.OutputDir, job.FilePath)
			job.Duration = time.Since(start)
			log.Debug().Str("file", job.FilePath).Int("rows", job.Rows).Bool("cached", cached).Msg("pipeline: file processed")
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		log.Warn().Err(err).Str("file", job.FilePath).Int("attempt", job.Attempts).Msg("pipeline: file attempt failed")
	}

	job.Status = domain.JobFailed
	job.ErrorMessage = lastErr.Error()
	job.Duration = time.Since(start)
	log.Error().Err(lastErr).Str("file", job.FilePath).Msg("pipeline: file failed")
	return nil, lastErr
}

// processFile analyzes one export, consulting the cache first, and writes
// its decisions CSV next to the other outputs.
func (w *Worker) processFile(ctx context.Context, runID uuid.UUID, path string) (*domain.FileResult, bool, error) {
	if !ingest.SupportedExtension(path) {
		return nil, false, fmt.Errorf("%s: %w", path, ingest.ErrUnsupportedFormat)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	key := cache.BuildAnalysisKey(content, w.cacheParams())
	analysis, hit, err := w.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("pipeline: cache lookup failed")
	}

	if !hit {
		analysis, err = w.analyze(path)
		if err != nil {
			return nil, false, err
		}
		if err := w.cache.Set(ctx, key, analysis); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("pipeline: cache store failed")
		}
	}

	if err := writeFileCSV(outputPath(w.config.OutputDir, path), analysis.Decisions); err != nil {
		return nil, false, err
	}

	return &domain.FileResult{
		RunID:     runID,
		File:      path,
		Dataset:   analysis.Dataset,
		Report:    analysis.Report,
		Decisions: analysis.Decisions,
	}, hit, nil
}

func (w *Worker) analyze(path string) (*cache.Analysis, error) {
	opts := ingest.ResolveOptions{}
	if w.engineCfg.Now != nil {
		opts.Today = w.engineCfg.Now()
	}
	ds, err := ingest.LoadCounts(path, opts)
	if err != nil {
		return nil, err
	}

	eng := engine.New(w.engineCfg)
	for vendor, weeks := range w.leadOverrides {
		if err := eng.SetVendorLeadTime(vendor, weeks); err != nil {
			return nil, err
		}
	}
	if len(w.purchaseOrders) > 0 {
		eng.IngestPurchaseOrders(w.purchaseOrders)
	}
	if _, err := eng.Ingest(ds); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cache.Analysis{
		Dataset:   ds.Name,
		Decisions: eng.Decisions(),
		Report:    eng.Report(),
	}, nil
}

func (w *Worker) cacheParams() cache.AnalysisParams {
	p := cache.AnalysisParams{
		PlanningWindow:   w.engineCfg.PlanningWindowDays,
		DefaultLeadWeeks: w.engineCfg.DefaultLeadWeeks,
		PurchaseOrders:   w.poContent,
	}
	if w.engineCfg.Calendar != nil {
		p.CalendarVersion = w.engineCfg.Calendar.Region() + "/" + w.engineCfg.Calendar.Version()
	}
	if w.engineCfg.Now != nil {
		p.EvaluationDate = calendar.FormatISO(w.engineCfg.Now())
	}
	vendors := make([]string, 0, len(w.leadOverrides))
	for vendor := range w.leadOverrides {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)
	for _, vendor := range vendors {
		p.PurchaseOrders = append(p.PurchaseOrders, []byte(fmt.Sprintf("|%s=%g", vendor, w.leadOverrides[vendor]))...)
	}
	return p
}

// retryable is false for errors another attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, ingest.ErrUnsupportedFormat) &&
		!errors.Is(err, ingest.ErrEmptyFile) &&
		!errors.Is(err, engine.ErrNoDemandColumns)
}

func outputPath(dir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+".decisions.csv")
}

func writeFileCSV(path string, records []domain.DecisionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := report.WriteDecisionsCSV(f, records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
