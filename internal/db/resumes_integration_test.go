//go:build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/types"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, Migrate(ctx, dsn))
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	return db
}

func TestIntegration_ProfileAndJob(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, db.UpsertProfile(ctx, userID, &types.Profile{Name: "Ada"}))
	require.NoError(t, db.UpsertProfile(ctx, userID, &types.Profile{Name: "Ada Lovelace"}))
	p, err := db.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Name)

	job, err := db.CreateJob(ctx, userID, &types.CreateJobRequest{Title: "Engineer", Description: "Build"})
	require.NoError(t, err)
	defer db.pool.Exec(ctx, `DELETE FROM jobs WHERE user_id = $1`, userID)
	defer db.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)

	got, err := db.GetJob(ctx, job.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	jobs, err := db.ListJobs(ctx, userID, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestIntegration_ResumeAttemptGuard(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()
	userID := uuid.New()

	r, err := db.CreateResume(ctx, userID, nil, types.DefaultTemplate, types.ModeAI)
	require.NoError(t, err)
	defer db.DeleteResume(ctx, r.ID, userID)

	require.NoError(t, db.AppendLaTeX(ctx, r.ID, 1, "abc"))
	chunks := 1
	completed := types.StatusCompleted
	require.NoError(t, db.PatchResume(ctx, r.ID, 1, types.ResumePatch{ChunkCount: &chunks, Status: &completed}))

	_, err = db.RestartResume(ctx, r.ID, userID, time.Hour)
	require.NoError(t, err)

	assert.ErrorIs(t, db.AppendLaTeX(ctx, r.ID, 1, "stale"), ErrStaleAttempt)
	_, err = db.RestartResume(ctx, r.ID, userID, time.Hour)
	assert.ErrorIs(t, err, ErrInProgress)

	got, err := db.GetResume(ctx, r.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempt)
	assert.Empty(t, got.LaTeXContent)
	assert.Equal(t, types.StatusStarted, got.GenerationStatus)
}

func TestIntegration_RestartAbandonedRun(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()
	userID := uuid.New()

	r, err := db.CreateResume(ctx, userID, nil, types.DefaultTemplate, types.ModeAI)
	require.NoError(t, err)
	defer db.DeleteResume(ctx, r.ID, userID)
	generating := types.StatusGeneratingResume
	require.NoError(t, db.PatchResume(ctx, r.ID, 1, types.ResumePatch{Status: &generating}))

	_, err = db.RestartResume(ctx, r.ID, userID, time.Hour)
	assert.ErrorIs(t, err, ErrInProgress)

	time.Sleep(20 * time.Millisecond)
	restarted, err := db.RestartResume(ctx, r.ID, userID, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, restarted.Attempt)
	assert.Equal(t, types.StatusStarted, restarted.GenerationStatus)
	assert.ErrorIs(t, db.AppendLaTeX(ctx, r.ID, 1, "stale"), ErrStaleAttempt)
}

func TestIntegration_ResumeCompilationArtifacts(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()
	userID := uuid.New()

	r, err := db.CreateResume(ctx, userID, nil, types.DefaultTemplate, types.ModeTemplate)
	require.NoError(t, err)
	defer db.DeleteResume(ctx, r.ID, userID)

	insights := []types.Insight{{Requirement: "Go", Match: "strong", Comment: "yes"}}
	failed := types.StatusFailed
	before := types.StatusGeneratingResume
	msg := "boom"
	require.NoError(t, db.PatchResume(ctx, r.ID, 1, types.ResumePatch{
		Status: &failed, StatusBeforeFailure: &before, GenerationError: &msg, Insights: insights,
	}))

	require.NoError(t, db.SetResumePDF(ctx, r.ID, userID, []byte("%PDF-1.4")))
	got, err := db.GetResume(ctx, r.ID, userID)
	require.NoError(t, err)
	require.NotNil(t, got.PDFURL)
	assert.Equal(t, insights, got.Insights)
	assert.Equal(t, types.StatusGeneratingResume, *got.StatusBeforeFailure)

	require.NoError(t, db.SetCompilationError(ctx, r.ID, userID, "! LaTeX Error"))
	pdf, err := db.GetResumePDF(ctx, r.ID, userID)
	require.NoError(t, err)
	assert.Nil(t, pdf)

	list, err := db.ListResumes(ctx, ResumeFilters{UserID: userID, Status: types.StatusFailed})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
