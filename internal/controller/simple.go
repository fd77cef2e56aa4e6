package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	m "github.com/prism-rts/prism/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayRecorded confirms a single recording with its spectra size.
func (s *SimpleUI) DisplayRecorded(ctx context.Context, test m.TestID, spectra m.Spectra) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Recorded %s: %d file(s), %d line(s)\n", test, spectra.Files(), spectra.Lines())

	return nil
}

// DisplayBatchRecorded summarizes a batch recording run.
func (s *SimpleUI) DisplayBatchRecorded(ctx context.Context, recorded []m.TestID, failed int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Recorded %d test(s)", len(recorded))

	if failed > 0 {
		s.printf(", %d failed", failed)
	}

	s.printf("\n")

	return nil
}

// DisplayAffected prints the tests affected by a changed line.
func (s *SimpleUI) DisplayAffected(ctx context.Context, file m.Path, line int, tests []m.TestID, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch format {
	case FormatYAML, FormatJSON:
		payload := struct {
			File  m.Path     `json:"file"  yaml:"file"`
			Line  int        `json:"line"  yaml:"line"`
			Tests []m.TestID `json:"tests" yaml:"tests"`
		}{File: file, Line: line, Tests: tests}

		return s.encode(payload, format)
	default:
		if len(tests) == 0 {
			s.printf("No recorded tests cover %s:%d\n", file, line)
			return nil
		}

		rows := make([][]string, 0, len(tests))
		for _, test := range tests {
			rows = append(rows, []string{string(test)})
		}

		s.printf("\n%s", renderTable([]string{"Affected Tests"}, rows, []string{fmt.Sprintf("Total %d", len(tests))}))

		return nil
	}
}

// DisplayTests lists recorded tests with their spectra sizes.
func (s *SimpleUI) DisplayTests(ctx context.Context, summaries []TestSummary, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Test < summaries[j].Test })

	switch format {
	case FormatYAML, FormatJSON:
		return s.encode(summaries, format)
	default:
		totalFiles := 0
		totalLines := 0
		rows := make([][]string, 0, len(summaries))

		for _, summary := range summaries {
			rows = append(rows, []string{
				string(summary.Test),
				fmt.Sprintf("%d", summary.Files),
				fmt.Sprintf("%d", summary.Lines),
			})
			totalFiles += summary.Files
			totalLines += summary.Lines
		}

		footer := []string{
			fmt.Sprintf("Total Tests %d", len(summaries)),
			fmt.Sprintf("%d", totalFiles),
			fmt.Sprintf("%d", totalLines),
		}

		s.printf("\n%s", renderTable([]string{"Test", "Files", "Lines"}, rows, footer))

		return nil
	}
}

// DisplayStatus prints the store snapshot and staleness against HEAD.
func (s *SimpleUI) DisplayStatus(ctx context.Context, status StatusInfo, format string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch format {
	case FormatYAML, FormatJSON:
		return s.encode(status, format)
	default:
		s.printf("Store:          %s\n", status.StoreDir)
		s.printf("Recorded tests: %d (%d files, %d lines)\n", status.Tests, status.Files, status.Lines)

		if status.StoredCommit == "" {
			s.printf("Commit marker:  (none)\n")
		} else {
			s.printf("Commit marker:  %s\n", status.StoredCommit)
		}

		if status.CurrentCommit != "" {
			s.printf("Current HEAD:   %s\n", status.CurrentCommit)
		}

		if status.Stale {
			s.printf("Mapping is stale: HEAD moved since the last save-commit\n")
		}

		return nil
	}
}

// DisplayCommitSaved confirms the commit marker write.
func (s *SimpleUI) DisplayCommitSaved(ctx context.Context, commit string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Saved commit marker %s\n", commit)

	return nil
}

// BrowseMapping prints the mapping non-interactively, one test per block.
func (s *SimpleUI) BrowseMapping(ctx context.Context, mapping m.Mapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, row := range FlattenMapping(mapping) {
		s.printf("%s\n", row)
	}

	return nil
}

func (s *SimpleUI) encode(value any, format string) error {
	out := s.cmd.OutOrStdout()

	if format == FormatJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	}

	encoder := yaml.NewEncoder(out)
	defer func() { _ = encoder.Close() }()

	return encoder.Encode(value)
}

func renderTable(header []string, rows [][]string, footer []string) string {
	var buffer bytes.Buffer

	table := tablewriter.NewWriter(&buffer)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		table.Append(row)
	}

	if len(footer) > 0 {
		table.SetFooter(footer)
	}

	table.Render()

	return buffer.String()
}

// outPrintf writes formatted output to the underlying cobra command's stdout.
func (s *SimpleUI) printf(format string, args ...any) {
	fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
