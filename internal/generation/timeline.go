package generation

import (
	"strings"

	"github.com/jonathan/resume-studio/internal/types"
)

// StageState is the display state of one timeline stage.
type StageState string

// Stage states.
const (
	StageDone    StageState = "done"
	StageActive  StageState = "active"
	StagePending StageState = "pending"
	StageFailed  StageState = "failed"
)

// Stage is one entry in a resume's progress timeline.
type Stage struct {
	Status types.GenerationStatus `json:"status"`
	Label  string                 `json:"label"`
	State  StageState             `json:"state"`
}

// Timeline derives the progress display for a resume from its status fields.
// The enhancing stage is listed only for the enhanced mode. A failed resume marks the stage
// it failed in with a "(Failed)" label and leaves later stages pending.
func Timeline(status types.GenerationStatus, before *types.GenerationStatus, mode string) []Stage {
	order := make([]types.GenerationStatus, 0, len(types.StatusOrder))
	for _, s := range types.StatusOrder {
		if s == types.StatusEnhancingResume && mode != types.ModeEnhanced {
			continue
		}
		order = append(order, s)
	}

	current := status
	if status == types.StatusFailed {
		current = types.StatusStarted
		if before != nil && before.Rank() >= 0 {
			current = *before
		}
	}

	stages := make([]Stage, 0, len(order))
	for _, s := range order {
		stage := Stage{Status: s, Label: label(s)}
		switch {
		case s.Rank() < current.Rank():
			stage.State = StageDone
		case s.Rank() > current.Rank():
			stage.State = StagePending
		case status == types.StatusFailed:
			stage.State = StageFailed
			stage.Label += " (Failed)"
		case status == types.StatusCompleted:
			stage.State = StageDone
		default:
			stage.State = StageActive
		}
		stages = append(stages, stage)
	}
	return stages
}

func label(s types.GenerationStatus) string {
	text := string(s)
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
