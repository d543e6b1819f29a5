package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/server"
	"github.com/jonathan/resume-studio/internal/types"
)

func sampleProfile() types.Profile {
	return types.Profile{
		Name:  "Jane Doe",
		Email: "jane@example.com",
		WorkExperience: []types.WorkExperience{{
			Company:     "R&D Labs",
			Position:    "Engineer",
			StartDate:   "2020-01",
			Current:     true,
			Description: []string{"Cut costs by 50%"},
		}},
		Skills: []string{"Go", "C#"},
	}
}

func TestRenderLaTeX(t *testing.T) {
	isolateEnv(t)
	profilePath := writeJSONFile(t, "profile.json", sampleProfile())
	outPath := filepath.Join(t.TempDir(), "resume.tex")

	_, stderr, err := execute(t, "render-latex", "--profile", profilePath, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	latex := string(data)
	assert.Contains(t, latex, `\documentclass`)
	assert.Contains(t, latex, `R\&D Labs`)
	assert.Contains(t, latex, `50\%`)
	assert.Contains(t, latex, `C\#`)
}

func TestRenderLaTeX_Stdout(t *testing.T) {
	isolateEnv(t)
	profilePath := writeJSONFile(t, "profile.json", sampleProfile())

	stdout, _, err := execute(t, "render-latex", "-p", profilePath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(stdout), `\end{document}`))
}

func TestRenderLaTeX_InvalidProfile(t *testing.T) {
	isolateEnv(t)
	profilePath := writeJSONFile(t, "profile.json", map[string]any{"email": "jane@example.com"})

	_, _, err := execute(t, "render-latex", "--profile", profilePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile")
}

func TestGenerate_TemplateMode(t *testing.T) {
	isolateEnv(t)
	profilePath := writeJSONFile(t, "profile.json", sampleProfile())

	stdout, stderr, err := execute(t, "generate", "--profile", profilePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, `\begin{document}`)
	assert.Contains(t, stdout, "Jane Doe")
	assert.Contains(t, stderr, string(types.StatusCompleted))
}

func TestGenerate_NeedsAIForJobs(t *testing.T) {
	isolateEnv(t)
	profilePath := writeJSONFile(t, "profile.json", sampleProfile())
	jobPath := writeJSONFile(t, "job.json", types.CreateJobRequest{Title: "Engineer", Description: "<p>Go services</p>"})

	_, _, err := execute(t, "generate", "--profile", profilePath, "--job", jobPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI tailoring is not configured")

	_, _, err = execute(t, "generate", "--profile", profilePath, "--mode", types.ModeAI)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs an AI client")
}

func TestCompileLaTeX_FakeEngine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake engines are shell scripts")
	}
	isolateEnv(t)
	dir := t.TempDir()
	engine := filepath.Join(dir, "fake-latex")
	require.NoError(t, os.WriteFile(engine, []byte("#!/bin/sh\nprintf '%%PDF-1.4 fake\\n' > document.pdf\n"), 0o755))
	t.Setenv("LATEX_ENGINE", engine)

	texPath := filepath.Join(dir, "in.tex")
	require.NoError(t, os.WriteFile(texPath, []byte(`\documentclass{article}\begin{document}Hi\end{document}`), 0o644))
	pdfPath := filepath.Join(dir, "out.pdf")

	_, _, err := execute(t, "compile-latex", "--in", texPath, "--out", pdfPath)
	require.NoError(t, err)

	pdf, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestIssueToken(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", "issue-token-test-secret-0123456789")
	userID := uuid.New()

	stdout, _, err := execute(t, "issue-token", "--user-id", userID.String())
	require.NoError(t, err)

	jwtConfig, err := config.NewJWTConfig()
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtConfig).ValidateToken(strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)

	_, _, err = execute(t, "issue-token", "--user-id", "nope")
	assert.Error(t, err)
}

func TestServe_RequiresDatabase(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", "serve-test-secret-0123456789abcdef")

	_, _, err := execute(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	isolateEnv(t)

	_, _, err := execute(t, "migrate", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "json").Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(&buf, "nonsense", "text").Debug("hidden")
	assert.Empty(t, buf.String(), "unknown levels fall back to info")
}

func TestLLMConfigOverrides(t *testing.T) {
	cfg := &config.Config{Models: map[string]string{"advanced": "gemini-custom"}}

	out := llmConfig(cfg)
	assert.Equal(t, "gemini-custom", out.GetModel(llm.TierAdvanced))
	assert.Equal(t, llm.DefaultConfig().GetModel(llm.TierLite), out.GetModel(llm.TierLite))
}

// TestBinaryHelp runs the built binary when one is available.
func TestBinaryHelp(t *testing.T) {
	binary := getBinaryPath(t)

	out, err := exec.Command(binary, "--help").CombinedOutput()
	require.NoError(t, err)
	for _, sub := range []string{"serve", "latex-server", "migrate", "render-latex", "compile-latex", "generate", "issue-token"} {
		assert.Contains(t, string(out), sub)
	}
}
