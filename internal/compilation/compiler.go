// Package compilation typesets LaTeX source into PDF with an external toolchain,
// either in process or through a remote compilation service.
package compilation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultEngine is the LaTeX program used when none is configured.
	DefaultEngine = "pdflatex"
	// DefaultTimeout is the wall-clock budget for one compilation.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxSourceBytes bounds the accepted source size.
	DefaultMaxSourceBytes = 1 << 20
	// DefaultMaxConcurrent bounds simultaneous toolchain processes.
	DefaultMaxConcurrent = 2

	// waitDelay is how long to wait for output pipes after the process is killed.
	waitDelay = 2 * time.Second
	// maxSummaryLines bounds the error lines kept in CompilationError.Message.
	maxSummaryLines = 3

	documentName = "document"
)

// Config configures a Compiler.
type Config struct {
	Engine         string
	Timeout        time.Duration
	TempRoot       string // parent of per-call work directories, os.TempDir() when empty
	MaxSourceBytes int
	MaxConcurrent  int64
}

// Compiler runs the LaTeX toolchain. Each call owns a fresh work directory and process.
type Compiler struct {
	cfg    Config
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewCompiler creates a Compiler, filling unset fields with defaults.
func NewCompiler(cfg Config, logger *slog.Logger) *Compiler {
	if cfg.Engine == "" {
		cfg.Engine = DefaultEngine
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = DefaultMaxSourceBytes
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger: logger,
	}
}

// Available reports whether the configured engine can be found.
func (c *Compiler) Available() error {
	if _, err := exec.LookPath(c.cfg.Engine); err != nil {
		return &Error{Message: fmt.Sprintf("%s not found in PATH, install a LaTeX distribution such as TeX Live", c.cfg.Engine), Cause: err}
	}
	return nil
}

// Compile typesets source and returns the PDF bytes.
func (c *Compiler) Compile(ctx context.Context, source string) ([]byte, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &InputError{Message: "LaTeX source is required"}
	}
	if len(source) > c.cfg.MaxSourceBytes {
		return nil, &InputError{Message: fmt.Sprintf("LaTeX source exceeds %d bytes", c.cfg.MaxSourceBytes)}
	}
	engine, err := exec.LookPath(c.cfg.Engine)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("%s not found in PATH", c.cfg.Engine), Cause: err}
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, &Error{Message: "cancelled while waiting for a compilation slot", Cause: err}
	}
	defer c.sem.Release(1)

	workDir, err := os.MkdirTemp(c.cfg.TempRoot, "latex-compile-*")
	if err != nil {
		return nil, &Error{Message: "failed to create temporary working directory", Cause: err}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			c.logger.Warn("failed to remove compilation directory", "dir", workDir, "error", err)
		}
	}()

	texPath := filepath.Join(workDir, documentName+".tex")
	if err := os.WriteFile(texPath, []byte(source), 0o600); err != nil {
		return nil, &Error{Message: "failed to write LaTeX source", Cause: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, engine,
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-no-shell-escape",
		"-output-directory", workDir,
		documentName+".tex",
	)
	cmd.Dir = workDir
	cmd.WaitDelay = waitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	runErr := cmd.Run()
	logOutput := output.String()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("latex compilation timed out", "timeout", c.cfg.Timeout)
		return nil, &TimeoutError{Timeout: c.cfg.Timeout, LogOutput: logOutput}
	}
	if ctx.Err() != nil {
		return nil, &Error{Message: "compilation cancelled", Cause: ctx.Err()}
	}

	if logOutput == "" {
		if data, err := os.ReadFile(filepath.Join(workDir, documentName+".log")); err == nil {
			logOutput = string(data)
		}
	}
	if runErr != nil {
		return nil, &CompilationError{Message: summarize(logOutput), LogOutput: logOutput, Cause: runErr}
	}

	pdf, err := os.ReadFile(filepath.Join(workDir, documentName+".pdf"))
	if err != nil || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return nil, &CompilationError{Message: "PDF was not generated", LogOutput: logOutput, Cause: err}
	}

	c.logger.Debug("latex compiled", "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}

// summarize returns the toolchain's "!" error lines with their line-number context.
func summarize(log string) string {
	var lines []string
	for _, line := range strings.Split(log, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "!") || (len(lines) > 0 && strings.HasPrefix(line, "l.")) {
			lines = append(lines, strings.TrimSpace(line))
			if len(lines) >= maxSummaryLines {
				break
			}
		}
	}
	if len(lines) == 0 {
		return "LaTeX compilation failed"
	}
	return strings.Join(lines, "\n")
}
