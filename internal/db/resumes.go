package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-studio/internal/types"
)

const resumeColumns = `id, user_id, job_id, template, mode, attempt, latex_content, tailored_profile,
	generation_status, status_before_failure, generation_error, chunk_count,
	pdf IS NOT NULL, compilation_error, insights, created_at, updated_at`

// PDFPath is the API path serving a resume's compiled PDF.
func PDFPath(id uuid.UUID) string {
	return "/resumes/" + id.String() + "/pdf"
}

func scanResume(row pgx.Row) (*types.Resume, error) {
	var (
		r            types.Resume
		status       string
		statusBefore *string
		tailored     []byte
		insights     []byte
		hasPDF       bool
	)
	err := row.Scan(&r.ID, &r.UserID, &r.JobID, &r.Template, &r.Mode, &r.Attempt, &r.LaTeXContent, &tailored,
		&status, &statusBefore, &r.GenerationError, &r.ChunkCount,
		&hasPDF, &r.CompilationError, &insights, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.GenerationStatus = types.GenerationStatus(status)
	if statusBefore != nil {
		s := types.GenerationStatus(*statusBefore)
		r.StatusBeforeFailure = &s
	}
	if len(tailored) > 0 {
		r.TailoredProfile = json.RawMessage(tailored)
	}
	if len(insights) > 0 {
		if err := json.Unmarshal(insights, &r.Insights); err != nil {
			return nil, fmt.Errorf("failed to decode insights: %w", err)
		}
	}
	if hasPDF {
		path := PDFPath(r.ID)
		r.PDFURL = &path
	}
	return &r, nil
}

// CreateResume creates a resume record at status started, attempt 1.
func (db *DB) CreateResume(ctx context.Context, userID uuid.UUID, jobID *uuid.UUID, template, mode string) (*types.Resume, error) {
	r, err := scanResume(db.pool.QueryRow(ctx,
		`INSERT INTO resumes (user_id, job_id, template, mode, generation_status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+resumeColumns,
		userID, jobID, template, mode, string(types.StatusStarted),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resume: %w", err)
	}
	return r, nil
}

// GetResume returns a resume owned by userID, or nil if it does not exist.
func (db *DB) GetResume(ctx context.Context, id, userID uuid.UUID) (*types.Resume, error) {
	r, err := scanResume(db.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return r, nil
}

// ResumeFilters holds optional filters for listing resumes
type ResumeFilters struct {
	UserID uuid.UUID
	Status types.GenerationStatus
	JobID  *uuid.UUID
	Limit  int
}

// ListResumes retrieves a user's resumes with optional filters, newest first.
func (db *DB) ListResumes(ctx context.Context, filters ResumeFilters) ([]types.Resume, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}

	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE user_id = $1`
	args := []any{filters.UserID}
	argNum := 2

	if filters.Status != "" {
		query += fmt.Sprintf(" AND generation_status = $%d", argNum)
		args = append(args, string(filters.Status))
		argNum++
	}
	if filters.JobID != nil {
		query += fmt.Sprintf(" AND job_id = $%d", argNum)
		args = append(args, *filters.JobID)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	resumes := []types.Resume{}
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, *r)
	}
	return resumes, rows.Err()
}

// PatchResume applies a generation run's update. The write only lands if attempt is still current.
func (db *DB) PatchResume(ctx context.Context, id uuid.UUID, attempt int, patch types.ResumePatch) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	argNum := 1
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}

	if patch.Status != nil {
		set("generation_status", string(*patch.Status))
	}
	if patch.StatusBeforeFailure != nil {
		set("status_before_failure", nullIfEmpty(string(*patch.StatusBeforeFailure)))
	}
	if patch.GenerationError != nil {
		set("generation_error", nullIfEmpty(*patch.GenerationError))
	}
	if patch.LaTeXContent != nil {
		set("latex_content", *patch.LaTeXContent)
	}
	if patch.ChunkCount != nil {
		set("chunk_count", *patch.ChunkCount)
	}
	if patch.TailoredProfile != nil {
		set("tailored_profile", []byte(patch.TailoredProfile))
	}
	if patch.Insights != nil {
		data, err := json.Marshal(patch.Insights)
		if err != nil {
			return fmt.Errorf("failed to marshal insights: %w", err)
		}
		set("insights", data)
	}

	query := fmt.Sprintf("UPDATE resumes SET %s WHERE id = $%d AND attempt = $%d",
		strings.Join(sets, ", "), argNum, argNum+1)
	args = append(args, id, attempt)

	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to patch resume: %w", err)
	}
	if result.RowsAffected() == 0 {
		return db.staleOrMissing(ctx, id)
	}
	return nil
}

// AppendLaTeX appends a streamed delta to the resume's LaTeX source.
func (db *DB) AppendLaTeX(ctx context.Context, id uuid.UUID, attempt int, delta string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE resumes SET latex_content = latex_content || $1, updated_at = NOW()
		 WHERE id = $2 AND attempt = $3`,
		delta, id, attempt,
	)
	if err != nil {
		return fmt.Errorf("failed to append latex: %w", err)
	}
	if result.RowsAffected() == 0 {
		return db.staleOrMissing(ctx, id)
	}
	return nil
}

func (db *DB) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check resume: %w", err)
	}
	if exists {
		return ErrStaleAttempt
	}
	return ErrNotFound
}

func (db *DB) inProgressOrMissing(ctx context.Context, id, userID uuid.UUID) error {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1 AND user_id = $2)`, id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check resume: %w", err)
	}
	if exists {
		return ErrInProgress
	}
	return ErrNotFound
}

// RestartResume resets a resume to started and bumps its attempt.
// A resume still generating is restartable only after staleAfter without any write;
// before that it returns ErrInProgress.
func (db *DB) RestartResume(ctx context.Context, id, userID uuid.UUID, staleAfter time.Duration) (*types.Resume, error) {
	r, err := scanResume(db.pool.QueryRow(ctx,
		`UPDATE resumes SET
			attempt = attempt + 1,
			generation_status = 'started',
			status_before_failure = NULL,
			generation_error = NULL,
			latex_content = '',
			chunk_count = 0,
			tailored_profile = NULL,
			insights = NULL,
			pdf = NULL,
			compilation_error = NULL,
			updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		   AND (generation_status IN ('completed', 'failed')
		        OR updated_at <= NOW() - make_interval(secs => $3))
		 RETURNING `+resumeColumns,
		id, userID, staleAfter.Seconds(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.inProgressOrMissing(ctx, id, userID)
		}
		return nil, fmt.Errorf("failed to restart resume: %w", err)
	}
	return r, nil
}

// UpdateLaTeX replaces the LaTeX source with a user edit and drops the stale PDF.
func (db *DB) UpdateLaTeX(ctx context.Context, id, userID uuid.UUID, latex string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE resumes SET latex_content = $1, pdf = NULL, compilation_error = NULL, updated_at = NOW()
		 WHERE id = $2 AND user_id = $3 AND generation_status IN ('completed', 'failed')`,
		latex, id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update latex: %w", err)
	}
	if result.RowsAffected() == 0 {
		return db.inProgressOrMissing(ctx, id, userID)
	}
	return nil
}

// SetResumePDF stores a compiled PDF and clears any compilation error.
func (db *DB) SetResumePDF(ctx context.Context, id, userID uuid.UUID, pdf []byte) error {
	return db.execOwned(ctx, "store pdf",
		`UPDATE resumes SET pdf = $1, compilation_error = NULL, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		pdf, id, userID)
}

// SetCompilationError records a compilation failure without touching the generation status.
func (db *DB) SetCompilationError(ctx context.Context, id, userID uuid.UUID, message string) error {
	return db.execOwned(ctx, "store compilation error",
		`UPDATE resumes SET compilation_error = $1, pdf = NULL, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		message, id, userID)
}

// GetResumePDF returns the compiled PDF, or nil if there is none.
func (db *DB) GetResumePDF(ctx context.Context, id, userID uuid.UUID) ([]byte, error) {
	var pdf []byte
	err := db.pool.QueryRow(ctx,
		`SELECT pdf FROM resumes WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&pdf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pdf: %w", err)
	}
	return pdf, nil
}

// DeleteResume deletes a resume owned by userID.
func (db *DB) DeleteResume(ctx context.Context, id, userID uuid.UUID) error {
	return db.execOwned(ctx, "delete resume",
		`DELETE FROM resumes WHERE id = $1 AND user_id = $2`, id, userID)
}

func (db *DB) execOwned(ctx context.Context, action, query string, args ...any) error {
	result, err := db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
