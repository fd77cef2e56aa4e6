// Package controller provides output adapters for displaying test selection
// results.
package controller

import (
	"context"

	m "github.com/prism-rts/prism/internal/model"
)

// Output formats accepted by commands that support --format.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// TestSummary describes one recorded test for listing purposes.
type TestSummary struct {
	Test  m.TestID `json:"test"  yaml:"test"`
	Files int      `json:"files" yaml:"files"`
	Lines int      `json:"lines" yaml:"lines"`
}

// StatusInfo is the health snapshot shown by the status command.
type StatusInfo struct {
	StoreDir      m.Path `json:"store"          yaml:"store"`
	Tests         int    `json:"tests"          yaml:"tests"`
	Files         int    `json:"files"          yaml:"files"`
	Lines         int    `json:"lines"          yaml:"lines"`
	StoredCommit  string `json:"stored_commit"  yaml:"stored_commit"`
	CurrentCommit string `json:"current_commit" yaml:"current_commit"`
	Stale         bool   `json:"stale"          yaml:"stale"`
}

// UI defines the interface for presenting results to the user.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	DisplayRecorded(ctx context.Context, test m.TestID, spectra m.Spectra) error
	DisplayBatchRecorded(ctx context.Context, recorded []m.TestID, failed int) error
	DisplayAffected(ctx context.Context, file m.Path, line int, tests []m.TestID, format string) error
	DisplayTests(ctx context.Context, summaries []TestSummary, format string) error
	DisplayStatus(ctx context.Context, status StatusInfo, format string) error
	DisplayCommitSaved(ctx context.Context, commit string) error
	BrowseMapping(ctx context.Context, mapping m.Mapping) error
}
