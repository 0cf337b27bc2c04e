// internal/repository/memory_repository.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"iqdump-service/internal/model"
)

// memorySweepRepository keeps sweep history in process memory.
// It backs the service when the database is disabled.
type memorySweepRepository struct {
	mu         sync.RWMutex
	runs       map[uuid.UUID]*model.SweepRun
	iterations map[uuid.UUID][]*model.SweepIteration
	logger     *zap.Logger
}

// NewMemorySweepRepository creates an in-memory sweep repository
func NewMemorySweepRepository(logger *zap.Logger) SweepRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &memorySweepRepository{
		runs:       make(map[uuid.UUID]*model.SweepRun),
		iterations: make(map[uuid.UUID][]*model.SweepIteration),
		logger:     logger,
	}
}

func (r *memorySweepRepository) CreateRun(_ context.Context, run *model.SweepRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("sweep run %s already exists", run.ID)
	}
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *memorySweepRepository) FinishRun(_ context.Context, run *model.SweepRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.runs[run.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	stored.Status = run.Status
	stored.Succeeded = run.Succeeded
	stored.Failed = run.Failed
	stored.ErrorMessage = run.ErrorMessage
	stored.FinishedAt = run.FinishedAt
	return nil
}

func (r *memorySweepRepository) AddIteration(_ context.Context, iteration *model.SweepIteration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[iteration.RunID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, iteration.RunID)
	}
	stored := *iteration
	r.iterations[iteration.RunID] = append(r.iterations[iteration.RunID], &stored)
	return nil
}

func (r *memorySweepRepository) GetRun(_ context.Context, id uuid.UUID) (*model.SweepRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *run
	return &out, nil
}

func (r *memorySweepRepository) ListRuns(_ context.Context, filter *SweepFilter) ([]*model.SweepRun, int, error) {
	if filter == nil {
		filter = &SweepFilter{}
	}
	filter.normalize()

	r.mu.RLock()
	matched := make([]*model.SweepRun, 0, len(r.runs))
	for _, run := range r.runs {
		if filter.matches(run) {
			out := *run
			matched = append(matched, &out)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	total := len(matched)
	start := min(filter.offset(), total)
	end := min(start+filter.PerPage, total)
	return matched[start:end], total, nil
}

func (r *memorySweepRepository) ListIterations(_ context.Context, runID uuid.UUID) ([]*model.SweepIteration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.iterations[runID]
	out := make([]*model.SweepIteration, 0, len(stored))
	for _, it := range stored {
		cp := *it
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (r *memorySweepRepository) DeleteOldRuns(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, run := range r.runs {
		if run.StartedAt.Before(olderThan) {
			delete(r.runs, id)
			delete(r.iterations, id)
			deleted++
		}
	}
	if deleted > 0 {
		r.logger.Debug("Pruned sweep history", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
