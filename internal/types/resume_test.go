package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerationStatus_Rank(t *testing.T) {
	assert.Equal(t, 0, StatusStarted.Rank())
	assert.Equal(t, 5, StatusCompleted.Rank())
	assert.Equal(t, -1, StatusFailed.Rank())
	assert.Equal(t, -1, GenerationStatus("bogus").Rank())

	for i := 1; i < len(StatusOrder); i++ {
		assert.Greater(t, StatusOrder[i].Rank(), StatusOrder[i-1].Rank())
	}
}

func TestGenerationStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to GenerationStatus
		want     bool
	}{
		{StatusStarted, StatusFetchingProfile, true},
		{StatusFetchingProfile, StatusGeneratingResume, true},
		{StatusGeneratingResume, StatusCompleted, true},
		{StatusGeneratingResume, StatusEnhancingResume, true},
		{StatusEnhancingResume, StatusGeneratingResume, false},
		{StatusTailoringProfile, StatusFailed, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusStarted, true},
		{StatusCompleted, StatusStarted, true},
		{StatusFailed, StatusCompleted, false},
		{StatusStarted, StatusStarted, false},
		{StatusStarted, GenerationStatus("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestGenerationStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusEnhancingResume.IsTerminal())
}

func TestStartResumeRequest_Validate(t *testing.T) {
	id := uuid.New()
	assert.NoError(t, (&StartResumeRequest{}).Validate())
	assert.NoError(t, (&StartResumeRequest{JobID: &id, Template: "jake", Mode: ModeEnhanced}).Validate())
	assert.Error(t, (&StartResumeRequest{Mode: "freestyle"}).Validate())
	assert.Error(t, (&StartResumeRequest{Template: "modern"}).Validate())
}

func TestCreateJobRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CreateJobRequest{Title: "Engineer", Description: "Build things"}).Validate())
	assert.Error(t, (&CreateJobRequest{Title: "Engineer"}).Validate())
	assert.Error(t, (&CreateJobRequest{Title: "Engineer", Description: "x", URL: "nope"}).Validate())
}
