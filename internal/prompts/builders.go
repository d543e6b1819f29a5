package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/resume-studio/internal/types"
)

// Default selection sizes that keep a Jake-style resume on one page.
const (
	DefaultMaxWork     = "3-4"
	DefaultMaxProjects = "2-3"
)

// TailorInput holds the typed fields of the tailoring prompt.
type TailorInput struct {
	Profile        *types.Profile
	JobTitle       string
	Company        string
	JobDescription string
}

// LaTeXInput holds the typed fields of the LaTeX generation and enhancement prompts.
// Job fields are optional.
type LaTeXInput struct {
	Profile        *types.Profile
	JobTitle       string
	JobDescription string
	LaTeX          string
}

// TailorProfile renders the tailoring prompt.
func TailorProfile(in TailorInput) (string, error) {
	profileJSON, err := marshalProfile(in.Profile)
	if err != nil {
		return "", err
	}
	return Render("tailoring.json", "tailor-profile", map[string]string{
		"JobTitle":       in.JobTitle,
		"Company":        in.Company,
		"JobDescription": in.JobDescription,
		"ProfileJSON":    profileJSON,
		"MaxWork":        DefaultMaxWork,
		"MaxProjects":    DefaultMaxProjects,
	})
}

// GenerateLaTeX renders the prompt for streaming a resume straight from the profile.
func GenerateLaTeX(in LaTeXInput) (string, error) {
	profileJSON, err := marshalProfile(in.Profile)
	if err != nil {
		return "", err
	}
	return Render("latex.json", "generate-latex", map[string]string{
		"JobTitle":       in.JobTitle,
		"JobDescription": in.JobDescription,
		"ProfileJSON":    profileJSON,
	})
}

// EnhanceLaTeX renders the prompt for polishing an already rendered resume.
func EnhanceLaTeX(in LaTeXInput) (string, error) {
	return Render("latex.json", "enhance-latex", map[string]string{
		"JobTitle":       in.JobTitle,
		"JobDescription": in.JobDescription,
		"LaTeX":          in.LaTeX,
	})
}

func marshalProfile(p *types.Profile) (string, error) {
	if p == nil {
		return "", fmt.Errorf("profile is required")
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %w", err)
	}
	return string(data), nil
}
