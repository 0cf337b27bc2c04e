// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"iqdump-service/internal/model"
)

// ErrNotFound is returned when a sweep run does not exist
var ErrNotFound = errors.New("sweep run not found")

// SweepRepository defines sweep history data access operations
type SweepRepository interface {
	// Run lifecycle
	CreateRun(ctx context.Context, run *model.SweepRun) error
	FinishRun(ctx context.Context, run *model.SweepRun) error
	AddIteration(ctx context.Context, iteration *model.SweepIteration) error

	// Queries
	GetRun(ctx context.Context, id uuid.UUID) (*model.SweepRun, error)
	ListRuns(ctx context.Context, filter *SweepFilter) ([]*model.SweepRun, int, error)
	ListIterations(ctx context.Context, runID uuid.UUID) ([]*model.SweepIteration, error)

	// Cleanup
	DeleteOldRuns(ctx context.Context, olderThan time.Time) (int64, error)
}

// SweepFilter represents sweep listing filters
type SweepFilter struct {
	Band    *model.Band        `json:"band,omitempty" form:"band"`
	Stage   *model.GainStage   `json:"stage,omitempty" form:"stage"`
	Status  *model.SweepStatus `json:"status,omitempty" form:"status"`
	Page    int                `json:"page" form:"page"`
	PerPage int                `json:"per_page" form:"per_page"`
}

// normalize applies paging defaults
func (f *SweepFilter) normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 || f.PerPage > 100 {
		f.PerPage = 20
	}
}

func (f *SweepFilter) offset() int {
	return (f.Page - 1) * f.PerPage
}

func (f *SweepFilter) matches(run *model.SweepRun) bool {
	if f.Band != nil && run.Band != *f.Band {
		return false
	}
	if f.Stage != nil && run.Stage != *f.Stage {
		return false
	}
	if f.Status != nil && run.Status != *f.Status {
		return false
	}
	return true
}
