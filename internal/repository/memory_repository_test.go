package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iqdump-service/internal/model"
)

func newRun(band model.Band, stage model.GainStage, startedAt time.Time) *model.SweepRun {
	return &model.SweepRun{
		ID:        uuid.New(),
		Band:      band,
		Stage:     stage,
		MinValue:  1,
		MaxValue:  3,
		Status:    model.SweepStatusRunning,
		StartedAt: startedAt,
	}
}

func TestMemoryRunLifecycle(t *testing.T) {
	repo := NewMemorySweepRepository(nil)
	ctx := context.Background()
	run := newRun(model.BandHB, model.GainStageVga, time.Now())

	require.NoError(t, repo.CreateRun(ctx, run))
	assert.Error(t, repo.CreateRun(ctx, run))

	for _, v := range []uint8{3, 1, 2} {
		require.NoError(t, repo.AddIteration(ctx, &model.SweepIteration{
			ID: uuid.New(), RunID: run.ID, Value: v, Status: model.IterationStatusSucceeded,
		}))
	}

	finished := time.Now()
	run.Status = model.SweepStatusCompleted
	run.Succeeded = 3
	run.FinishedAt = &finished
	require.NoError(t, repo.FinishRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SweepStatusCompleted, got.Status)
	assert.Equal(t, 3, got.Total())
	assert.True(t, got.IsFinished())

	iterations, err := repo.ListIterations(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, iterations, 3)
	assert.Equal(t, []uint8{1, 2, 3}, []uint8{iterations[0].Value, iterations[1].Value, iterations[2].Value})
}

func TestMemoryUnknownRun(t *testing.T) {
	repo := NewMemorySweepRepository(nil)
	ctx := context.Background()

	_, err := repo.GetRun(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	err = repo.AddIteration(ctx, &model.SweepIteration{ID: uuid.New(), RunID: uuid.New()})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = repo.FinishRun(ctx, newRun(model.BandLB, model.GainStageFem, time.Now()))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryListRuns(t *testing.T) {
	repo := NewMemorySweepRepository(nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		band := model.BandHB
		if i%2 == 1 {
			band = model.BandLB
		}
		run := newRun(band, model.GainStageLna, base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, run.ID)
		require.NoError(t, repo.CreateRun(ctx, run))
	}

	runs, total, err := repo.ListRuns(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	// Newest first
	assert.Equal(t, ids[4], runs[0].ID)

	lb := model.BandLB
	runs, total, err = repo.ListRuns(ctx, &SweepFilter{Band: &lb})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []uuid.UUID{ids[3], ids[1]}, []uuid.UUID{runs[0].ID, runs[1].ID})

	runs, total, err = repo.ListRuns(ctx, &SweepFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1]}, []uuid.UUID{runs[0].ID, runs[1].ID})

	runs, _, err = repo.ListRuns(ctx, &SweepFilter{Page: 9, PerPage: 2})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMemoryDeleteOldRuns(t *testing.T) {
	repo := NewMemorySweepRepository(nil)
	ctx := context.Background()
	now := time.Now()

	old := newRun(model.BandHB, model.GainStageVga, now.Add(-48*time.Hour))
	fresh := newRun(model.BandHB, model.GainStageVga, now)
	require.NoError(t, repo.CreateRun(ctx, old))
	require.NoError(t, repo.CreateRun(ctx, fresh))

	deleted, err := repo.DeleteOldRuns(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetRun(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetRun(ctx, fresh.ID)
	assert.NoError(t, err)
}
