package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/report"
)

// Aggregator buffers file results and flushes them in batches to one
// combined CSV for the run and to the optional sink.
type Aggregator struct {
	config  Config
	runID   uuid.UUID
	sink    Sink
	path    string
	buffer  []domain.FileResult
	rows    int
	started bool
	mu      sync.Mutex
}

// NewAggregator creates an aggregator writing to <OutputDir>/run-<id>.csv.
func NewAggregator(cfg Config, runID uuid.UUID, sink Sink) *Aggregator {
	cfg = cfg.withDefaults()
	return &Aggregator{
		config: cfg,
		runID:  runID,
		sink:   sink,
		path:   filepath.Join(cfg.OutputDir, fmt.Sprintf("run-%s.csv", runID)),
		buffer: make([]domain.FileResult, 0, cfg.BatchSize),
	}
}

// Path is the combined CSV location. The file exists once anything flushed.
func (a *Aggregator) Path() string {
	return a.path
}

// Add buffers one file's result and flushes when the batch is full.
func (a *Aggregator) Add(ctx context.Context, res domain.FileResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buffer = append(a.buffer, res)
	a.rows += len(res.Decisions)

	if len(a.buffer) >= a.config.BatchSize {
		return a.flushLocked(ctx)
	}
	return nil
}

// Finalize flushes whatever is still buffered.
func (a *Aggregator) Finalize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(ctx)
}

// Stats returns the buffered file count and total rows seen.
func (a *Aggregator) Stats() (buffered, rows int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer), a.rows
}

// flushLocked must be called with a.mu held.
func (a *Aggregator) flushLocked(ctx context.Context) error {
	if len(a.buffer) == 0 {
		return nil
	}

	if err := a.appendCSV(); err != nil {
		return fmt.Errorf("failed to write combined csv: %w", err)
	}

	if a.sink != nil {
		if err := a.sink.SaveFileResults(ctx, a.buffer); err != nil {
			return fmt.Errorf("sink failed: %w", err)
		}
	}

	log.Debug().Str("run", a.runID.String()).Int("files", len(a.buffer)).Str("path", a.path).Msg("pipeline: flushed batch")
	a.buffer = a.buffer[:0]
	return nil
}

func (a *Aggregator) appendCSV() error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !a.started {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(a.path, flags, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !a.started {
		if err := w.Write(append([]string{"file"}, report.DecisionHeader...)); err != nil {
			return err
		}
		a.started = true
	}
	for _, res := range a.buffer {
		name := filepath.Base(res.File)
		for _, d := range res.Decisions {
			if err := w.Write(append([]string{name}, report.DecisionRow(d)...)); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
