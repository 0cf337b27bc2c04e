// internal/repository/sweep_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"iqdump-service/internal/database"
	"iqdump-service/internal/model"
)

// sweepRepository implements SweepRepository on postgres
type sweepRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSweepRepository creates a postgres-backed sweep repository
func NewSweepRepository(db *database.DB, logger *zap.Logger) SweepRepository {
	return &sweepRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRun inserts a new run
func (r *sweepRepository) CreateRun(ctx context.Context, run *model.SweepRun) error {
	query := `
		INSERT INTO sweep_runs (
			id, band, stage, min_value, max_value, requested,
			status, succeeded, failed, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Band, run.Stage, run.MinValue, run.MaxValue, run.Requested,
		run.Status, run.Succeeded, run.Failed, run.StartedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create sweep run", zap.Error(err))
		return fmt.Errorf("failed to create sweep run: %w", err)
	}

	return nil
}

// FinishRun stores the final status and counters of a run
func (r *sweepRepository) FinishRun(ctx context.Context, run *model.SweepRun) error {
	query := `
		UPDATE sweep_runs SET
			status = $2, succeeded = $3, failed = $4,
			error_message = $5, finished_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.Succeeded, run.Failed, run.ErrorMessage, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finish sweep run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}

	return nil
}

// AddIteration inserts one iteration record
func (r *sweepRepository) AddIteration(ctx context.Context, iteration *model.SweepIteration) error {
	query := `
		INSERT INTO sweep_iterations (
			id, run_id, value, file_name, local_path, status,
			failed_at, error_message, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		iteration.ID, iteration.RunID, iteration.Value, iteration.FileName,
		iteration.LocalPath, iteration.Status, iteration.FailedAt,
		iteration.ErrorMessage, iteration.DurationMs, iteration.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add sweep iteration",
			zap.Error(err),
			zap.String("run_id", iteration.RunID.String()),
		)
		return fmt.Errorf("failed to add sweep iteration: %w", err)
	}

	return nil
}

const runColumns = `id, band, stage, min_value, max_value, requested, status,
	succeeded, failed, error_message, started_at, finished_at`

func scanRun(row interface{ Scan(...any) error }) (*model.SweepRun, error) {
	run := &model.SweepRun{}
	err := row.Scan(
		&run.ID, &run.Band, &run.Stage, &run.MinValue, &run.MaxValue,
		&run.Requested, &run.Status, &run.Succeeded, &run.Failed,
		&run.ErrorMessage, &run.StartedAt, &run.FinishedAt,
	)
	return run, err
}

// GetRun retrieves a run by ID
func (r *sweepRepository) GetRun(ctx context.Context, id uuid.UUID) (*model.SweepRun, error) {
	query := fmt.Sprintf("SELECT %s FROM sweep_runs WHERE id = $1", runColumns)

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get sweep run: %w", err)
	}

	return run, nil
}

// ListRuns lists runs newest first
func (r *sweepRepository) ListRuns(ctx context.Context, filter *SweepFilter) ([]*model.SweepRun, int, error) {
	if filter == nil {
		filter = &SweepFilter{}
	}
	filter.normalize()

	// Build WHERE clause
	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Band != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("band = $%d", argIndex))
		args = append(args, *filter.Band)
		argIndex++
	}

	if filter.Stage != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("stage = $%d", argIndex))
		args = append(args, *filter.Stage)
		argIndex++
	}

	if filter.Status != nil {
		whereConditions = append(whereConditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(whereConditions) > 0 {
		whereClause = "WHERE " + strings.Join(whereConditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sweep_runs %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sweep runs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM sweep_runs %s
		ORDER BY started_at DESC
		LIMIT $%d OFFSET $%d
	`, runColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.PerPage, filter.offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sweep runs: %w", err)
	}
	defer rows.Close()

	runs := []*model.SweepRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			r.logger.Error("Failed to scan sweep run", zap.Error(err))
			continue
		}
		runs = append(runs, run)
	}

	return runs, total, rows.Err()
}

// ListIterations lists the iterations of a run in sweep order
func (r *sweepRepository) ListIterations(ctx context.Context, runID uuid.UUID) ([]*model.SweepIteration, error) {
	query := `
		SELECT id, run_id, value, file_name, local_path, status,
			   failed_at, error_message, duration_ms, created_at
		FROM sweep_iterations
		WHERE run_id = $1
		ORDER BY value ASC
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweep iterations: %w", err)
	}
	defer rows.Close()

	iterations := []*model.SweepIteration{}
	for rows.Next() {
		it := &model.SweepIteration{}
		err := rows.Scan(
			&it.ID, &it.RunID, &it.Value, &it.FileName, &it.LocalPath, &it.Status,
			&it.FailedAt, &it.ErrorMessage, &it.DurationMs, &it.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan sweep iteration", zap.Error(err))
			continue
		}
		iterations = append(iterations, it)
	}

	return iterations, rows.Err()
}

// DeleteOldRuns removes runs started before olderThan; iterations cascade
func (r *sweepRepository) DeleteOldRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sweep_runs WHERE started_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sweep runs: %w", err)
	}
	return result.RowsAffected()
}
