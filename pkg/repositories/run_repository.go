package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lodestar-data/tableau-harvester/pkg/apperrors"
	"github.com/lodestar-data/tableau-harvester/pkg/database"
	"github.com/lodestar-data/tableau-harvester/pkg/models"
)

// RunRepository provides data access for harvest run history.
type RunRepository interface {
	// Create inserts a new run row at harvest start.
	Create(ctx context.Context, run *models.HarvestRun) error

	// Complete records the outcome of a finished run.
	Complete(ctx context.Context, run *models.HarvestRun) error

	// Latest returns the most recently started run.
	Latest(ctx context.Context) (*models.HarvestRun, error)

	// GetRecent returns the most recently started runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*models.HarvestRun, error)
}

type runRepository struct {
	db *database.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *database.DB) RunRepository {
	return &runRepository{db: db}
}

var _ RunRepository = (*runRepository)(nil)

func (r *runRepository) Create(ctx context.Context, run *models.HarvestRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO harvest_runs (id, started_at)
		VALUES ($1, $2)`

	if _, err := r.db.Exec(ctx, query, run.ID, run.StartedAt); err != nil {
		return fmt.Errorf("failed to create harvest run: %w", err)
	}
	return nil
}

func (r *runRepository) Complete(ctx context.Context, run *models.HarvestRun) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	failuresJSON, err := json.Marshal(run.Failures)
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}

	query := `
		UPDATE harvest_runs
		SET finished_at = $2,
		    records_emitted = $3,
		    warnings = $4,
		    failures = $5,
		    succeeded = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		run.ID,
		run.FinishedAt,
		run.RecordsEmitted,
		warningsJSON,
		failuresJSON,
		run.Succeeded,
	)
	if err != nil {
		return fmt.Errorf("failed to complete harvest run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("harvest run %s: %w", run.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *runRepository) Latest(ctx context.Context) (*models.HarvestRun, error) {
	query := `
		SELECT id, started_at, finished_at, records_emitted, warnings, failures, succeeded
		FROM harvest_runs
		ORDER BY started_at DESC
		LIMIT 1`

	run, err := scanHarvestRun(r.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return run, err
}

func (r *runRepository) GetRecent(ctx context.Context, limit int) ([]*models.HarvestRun, error) {
	query := `
		SELECT id, started_at, finished_at, records_emitted, warnings, failures, succeeded
		FROM harvest_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.HarvestRun
	for rows.Next() {
		run, err := scanHarvestRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating harvest runs: %w", err)
	}
	return runs, nil
}

func scanHarvestRun(row pgx.Row) (*models.HarvestRun, error) {
	var run models.HarvestRun
	var warningsJSON, failuresJSON []byte

	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.RecordsEmitted,
		&warningsJSON,
		&failuresJSON,
		&run.Succeeded,
	)
	if err != nil {
		return nil, err
	}

	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &run.Warnings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}
	if len(failuresJSON) > 0 {
		if err := json.Unmarshal(failuresJSON, &run.Failures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failures: %w", err)
		}
	}

	return &run, nil
}
