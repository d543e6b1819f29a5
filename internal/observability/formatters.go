// Package observability provides formatted terminal output for the command-line tools.
package observability

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-studio/internal/events"
	"github.com/jonathan/resume-studio/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes progress lines and summaries. It implements events.Publisher so a
// generation run can report to a terminal.
type Printer struct {
	out io.Writer
}

var _ events.Publisher = (*Printer)(nil)

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // terminal output; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if r := []rune(line); len(r) > boxWidth-4 {
			line = string(r[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// Publish prints one line per status event.
//
//nolint:errcheck // terminal output
func (p *Printer) Publish(_ context.Context, ev events.Event) error {
	marker := "•"
	switch ev.Status {
	case types.StatusCompleted:
		marker = "✓"
	case types.StatusFailed:
		marker = "✗"
	}

	line := fmt.Sprintf("%s %s", marker, ev.Status)
	if ev.ChunkCount > 0 {
		line += fmt.Sprintf(" (%d chunks)", ev.ChunkCount)
	}
	if ev.Error != "" {
		line += ": " + ev.Error
	}
	fmt.Fprintln(p.out, line)
	return nil
}

// PrintInsights outputs the job requirement matches produced by tailoring.
func (p *Printer) PrintInsights(insights []types.Insight) {
	if len(insights) == 0 {
		return
	}

	var sb strings.Builder
	shown := min(len(insights), maxItemsToShow)
	for _, in := range insights[:shown] {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", in.Match, in.Requirement))
		if in.Comment != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", in.Comment))
		}
	}
	if len(insights) > shown {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(insights)-shown))
	}
	p.printBox("JOB MATCH INSIGHTS", strings.TrimRight(sb.String(), "\n"))
}

// PrintResumeSummary outputs the final state of a resume.
func (p *Printer) PrintResumeSummary(resume *types.Resume) {
	if resume == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %s\n", resume.ID))
	sb.WriteString(fmt.Sprintf("Mode:     %s\n", resume.Mode))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", resume.GenerationStatus))
	if resume.StatusBeforeFailure != nil {
		sb.WriteString(fmt.Sprintf("Failed at: %s\n", *resume.StatusBeforeFailure))
	}
	if resume.GenerationError != nil {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", *resume.GenerationError))
	}
	sb.WriteString(fmt.Sprintf("LaTeX:    %d bytes", len(resume.LaTeXContent)))
	if resume.ChunkCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d streamed chunks", resume.ChunkCount))
	}
	p.printBox("RESUME", sb.String())
}
