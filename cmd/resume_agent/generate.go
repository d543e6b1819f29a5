package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/generation"
	"github.com/jonathan/resume-studio/internal/observability"
	"github.com/jonathan/resume-studio/internal/tailoring"
	"github.com/jonathan/resume-studio/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a resume from local files",
	Long: `Runs the full generation pipeline against a profile JSON file and an optional job JSON file
using an in-memory store, then writes the LaTeX and optionally compiles it.`,
	RunE: runGenerate,
}

var (
	generateProfileFile string
	generateJobFile     string
	generateMode        string
	generateOutputFile  string
	generatePDFFile     string
)

func init() {
	generateCmd.Flags().StringVarP(&generateProfileFile, "profile", "p", "", "Path to profile JSON file (required)")
	generateCmd.Flags().StringVarP(&generateJobFile, "job", "j", "", "Path to job JSON file with title, company and description")
	generateCmd.Flags().StringVarP(&generateMode, "mode", "m", "", "Generation mode: template, ai or enhanced (overrides config)")
	generateCmd.Flags().StringVarP(&generateOutputFile, "out", "o", "", "Path to output .tex file (stdout when empty)")
	generateCmd.Flags().StringVar(&generatePDFFile, "pdf", "", "Also compile the result to this PDF path")
	_ = generateCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	profile, err := readProfile(generateProfileFile)
	if err != nil {
		return err
	}

	store := db.NewMemoryStore()
	userID := uuid.New()
	if err := store.UpsertProfile(ctx, userID, profile); err != nil {
		return err
	}

	req := types.StartResumeRequest{Mode: generateMode}
	if generateJobFile != "" {
		jobReq, err := readJob(generateJobFile)
		if err != nil {
			return err
		}
		job, err := store.CreateJob(ctx, userID, jobReq)
		if err != nil {
			return err
		}
		req.JobID = &job.ID
	}

	client, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	var tailor generation.Tailor
	if client != nil {
		defer client.Close()
		tailor = tailoring.NewTailorer(client, logger)
	}

	printer := observability.NewPrinter(cmd.ErrOrStderr())
	orch := generation.New(store, client, tailor, printer, logger, generation.Config{
		DefaultMode: cfg.GenerationMode,
		AITimeout:   cfg.GenerationAITimeout.Std(),
		StaleAfter:  cfg.GenerationStaleAfter.Std(),
	})
	started, err := orch.Start(ctx, userID, req)
	if err != nil {
		return err
	}
	orch.Wait()

	resume, err := store.GetResume(ctx, started.ID, userID)
	if err != nil {
		return err
	}
	printer.PrintInsights(resume.Insights)
	printer.PrintResumeSummary(resume)
	if resume.GenerationStatus != types.StatusCompleted {
		message := "unknown error"
		if resume.GenerationError != nil {
			message = *resume.GenerationError
		}
		return fmt.Errorf("generation failed: %s", message)
	}

	if err := writeOutput(cmd, generateOutputFile, []byte(resume.LaTeXContent)); err != nil {
		return err
	}
	if generatePDFFile == "" {
		return nil
	}
	pdf, err := newCompiler(cfg, logger).Compile(ctx, resume.LaTeXContent)
	if err != nil {
		return err
	}
	return writeOutput(cmd, generatePDFFile, pdf)
}

func readJob(path string) (*types.CreateJobRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var req types.CreateJobRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse job JSON: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	return &req, nil
}
