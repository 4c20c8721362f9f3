package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Source yields local paths of count exports to analyze.
type Source interface {
	Name() string
	List(ctx context.Context) ([]string, error)
}

// Sink receives run results. postgres.RunRepository implements it.
type Sink interface {
	SaveRun(ctx context.Context, run domain.BatchRun) error
	SaveFileResults(ctx context.Context, results []domain.FileResult) error
}

// Config holds configuration for a batch run
type Config struct {
	WorkerCount   int    // Number of concurrent workers
	BatchSize     int    // Number of files to buffer before flushing
	OutputDir     string // Directory for per-file and combined CSVs
	RetryAttempts int    // Attempts per file, at least one
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount:   4,
		BatchSize:     10,
		OutputDir:     "data/output/batch",
		RetryAttempts: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkerCount < 1 {
		c.WorkerCount = d.WorkerCount
	}
	if c.BatchSize < 1 {
		c.BatchSize = d.BatchSize
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = d.RetryAttempts
	}
	return c
}

// FileJob tracks the processing of a single file
type FileJob struct {
	FilePath     string           `json:"file_path"`
	Status       domain.JobStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Attempts     int              `json:"attempts"`
	Rows         int              `json:"rows"`
	OutputPath   string           `json:"output_path,omitempty"`
	Duration     time.Duration    `json:"duration"`
}

// RunSummary is returned by Worker.Run.
type RunSummary struct {
	RunID        uuid.UUID  `json:"run_id"`
	Files        int        `json:"files"`
	Failed       int        `json:"failed"`
	Rows         int        `json:"rows"`
	CombinedPath string     `json:"combined_path,omitempty"`
	Jobs         []*FileJob `json:"jobs"`
}
