// Package observability provides logging setup and formatted run output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/jonathan/api-harvester/internal/orchestrator"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxMessageLen truncates error messages in the results table
	maxMessageLen = 60
)

// Printer handles formatted output for run summaries
type Printer struct {
	out       io.Writer
	useColors bool
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer, useColors bool) *Printer {
	return &Printer{out: out, useColors: useColors}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// status colours a key status word.
func (p *Printer) status(s orchestrator.KeyStatus) string {
	if !p.useColors {
		return string(s)
	}
	var c *color.Color
	switch s {
	case orchestrator.StatusSucceeded:
		c = color.New(color.FgGreen)
	case orchestrator.StatusFailed:
		c = color.New(color.FgRed)
	case orchestrator.StatusPending:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.Faint)
	}
	c.EnableColor()
	return c.Sprint(string(s))
}

// PrintSummary outputs the run counts followed by a table of every key that
// was fetched or left pending. Skipped keys are counted but not listed.
func (p *Printer) PrintSummary(title string, summary *orchestrator.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("Succeeded:  %d\n", summary.Succeeded))
	sb.WriteString(fmt.Sprintf("Skipped:    %d\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", summary.Failed))
	sb.WriteString(fmt.Sprintf("Pending:    %d", summary.Pending))
	if summary.QuotaReached {
		sb.WriteString("\n\nDaily limit reached; pending keys run next time.")
	}
	p.printBox(strings.ToUpper(title), sb.String())

	var rows [][]string
	for _, r := range summary.Results {
		if r.Status == orchestrator.StatusSkipped {
			continue
		}
		detail := r.Artifact
		if r.Err != nil {
			detail = truncate(r.Err.Error(), maxMessageLen)
		}
		attempts := ""
		if r.Attempts > 0 {
			attempts = fmt.Sprintf("%d", r.Attempts)
		}
		rows = append(rows, []string{p.status(r.Status), r.Key.Subject, r.Key.Endpoint, attempts, detail})
	}
	if len(rows) == 0 {
		return
	}

	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{Borders: tw.BorderNone}),
	)
	table.Header([]string{"Status", "Subject", "Endpoint", "Attempts", "Artifact / Error"})
	_ = table.Bulk(rows)
	_ = table.Render()
}

// PrintBackup outputs the result of a backup run.
func (p *Printer) PrintBackup(archive, fileID string) {
	p.printBox("BACKUP", fmt.Sprintf("Archive:  %s\nDrive ID: %s", archive, fileID))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
