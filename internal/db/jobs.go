package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-studio/internal/types"
)

const jobColumns = `id, user_id, title, company, description, url, created_at`

func scanJob(row pgx.Row) (*types.Job, error) {
	var job types.Job
	if err := row.Scan(&job.ID, &job.UserID, &job.Title, &job.Company, &job.Description, &job.URL, &job.CreatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob stores an imported job posting.
func (db *DB) CreateJob(ctx context.Context, userID uuid.UUID, req *types.CreateJobRequest) (*types.Job, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`INSERT INTO jobs (user_id, title, company, description, url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+jobColumns,
		userID, req.Title, req.Company, req.Description, req.URL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob returns a job owned by userID, or nil if it does not exist.
func (db *DB) GetJob(ctx context.Context, jobID, userID uuid.UUID) (*types.Job, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND user_id = $2`,
		jobID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the user's jobs, newest first.
func (db *DB) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []types.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
