package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the state of one file in a batch run.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobCached  JobStatus = "cached"
	JobFailed  JobStatus = "failed"
)

// BatchRun summarizes one pipeline execution.
type BatchRun struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Source     string    `json:"source" db:"source"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
	Files      int       `json:"files" db:"files"`
	Failed     int       `json:"failed" db:"failed"`
	Rows       int       `json:"rows" db:"row_count"`
}

// FileResult is the analysis of a single input file within a run.
type FileResult struct {
	RunID     uuid.UUID        `json:"run_id"`
	File      string           `json:"file"`
	Dataset   string           `json:"dataset"`
	Report    ValidationReport `json:"report"`
	Decisions []DecisionRecord `json:"decisions"`
}
