// internal/model/sweep.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// SweepStatus represents the lifecycle state of a sweep run
type SweepStatus string

const (
	SweepStatusRunning   SweepStatus = "running"
	SweepStatusCompleted SweepStatus = "completed"
	SweepStatusAborted   SweepStatus = "aborted"
	SweepStatusFailed    SweepStatus = "failed"
)

// IterationStatus represents the outcome of a single sweep value
type IterationStatus string

const (
	IterationStatusSucceeded IterationStatus = "succeeded"
	IterationStatusFailed    IterationStatus = "failed"
)

// SweepRun is the operation-log record of one gain sweep
type SweepRun struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Band         Band        `json:"band" db:"band"`
	Stage        GainStage   `json:"stage" db:"stage"`
	MinValue     uint8       `json:"min_value" db:"min_value"`
	MaxValue     uint8       `json:"max_value" db:"max_value"`
	Requested    JSONObject  `json:"requested" db:"requested"`
	Status       SweepStatus `json:"status" db:"status"`
	Succeeded    int         `json:"succeeded" db:"succeeded"`
	Failed       int         `json:"failed" db:"failed"`
	ErrorMessage *string     `json:"error_message,omitempty" db:"error_message"`
	StartedAt    time.Time   `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty" db:"finished_at"`
}

// Total returns the number of iterations recorded so far
func (r *SweepRun) Total() int {
	return r.Succeeded + r.Failed
}

// IsFinished checks whether the run has left the running state
func (r *SweepRun) IsFinished() bool {
	return r.Status != SweepStatusRunning
}

// SweepIteration is the operation-log record of one swept value
type SweepIteration struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	RunID        uuid.UUID       `json:"run_id" db:"run_id"`
	Value        uint8           `json:"value" db:"value"`
	FileName     string          `json:"file_name" db:"file_name"`
	LocalPath    *string         `json:"local_path,omitempty" db:"local_path"`
	Status       IterationStatus `json:"status" db:"status"`
	FailedAt     *string         `json:"failed_at,omitempty" db:"failed_at"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	DurationMs   int             `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// SweepRequest is the input of a sweep run
type SweepRequest struct {
	Band   Band      `json:"band" yaml:"band" binding:"required"`
	Stage  GainStage `json:"stage" yaml:"stage" binding:"required"`
	Values []uint8   `json:"values" yaml:"values" binding:"required,min=1"`
}
