package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/rendering"
	"github.com/jonathan/resume-studio/internal/types"
)

var renderLaTeXCmd = &cobra.Command{
	Use:   "render-latex",
	Short: "Render a profile with the built-in LaTeX template",
	Long:  "Renders a profile JSON file into a complete LaTeX document using the Jake's resume template. No AI is involved.",
	RunE:  runRenderLaTeX,
}

var (
	renderLaTeXProfileFile string
	renderLaTeXOutputFile  string
)

func init() {
	renderLaTeXCmd.Flags().StringVarP(&renderLaTeXProfileFile, "profile", "p", "", "Path to profile JSON file (required)")
	renderLaTeXCmd.Flags().StringVarP(&renderLaTeXOutputFile, "out", "o", "", "Path to output .tex file (stdout when empty)")
	_ = renderLaTeXCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(renderLaTeXCmd)
}

func runRenderLaTeX(cmd *cobra.Command, _ []string) error {
	profile, err := readProfile(renderLaTeXProfileFile)
	if err != nil {
		return err
	}

	latex, err := rendering.RenderProfile(profile)
	if err != nil {
		return fmt.Errorf("failed to render LaTeX: %w", err)
	}
	return writeOutput(cmd, renderLaTeXOutputFile, []byte(latex))
}

// readProfile loads, normalizes and validates a profile JSON file.
func readProfile(path string) (*types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	var profile types.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &profile, nil
}

// writeOutput writes data to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
