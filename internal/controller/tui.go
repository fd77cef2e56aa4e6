package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	m "github.com/prism-rts/prism/internal/model"
)

// shortPagerThreshold is the row count below which the browser just prints
// instead of entering the alternate screen.
const shortPagerThreshold = 20

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}

// NewUI picks the UI implementation for the session: an interactive browser
// on a terminal, plain output otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive {
		return &TUI{SimpleUI: NewSimpleUI(cmd), output: cmd.OutOrStdout()}
	}

	return NewSimpleUI(cmd)
}

// TUI behaves like SimpleUI except that browsing the mapping opens a
// scrollable Bubble Tea pager.
type TUI struct {
	*SimpleUI
	output io.Writer
}

// BrowseMapping shows the mapping in a scrollable pager. Small mappings are
// printed directly.
func (t *TUI) BrowseMapping(ctx context.Context, mapping m.Mapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := FlattenMapping(mapping)
	model := newMappingPager(rows, len(mapping))

	if len(rows) <= shortPagerThreshold {
		_, err := fmt.Fprint(t.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// FlattenMapping renders the mapping as display rows: one header row per
// test followed by one indented row per covered file. Tests and files are
// sorted for stable output.
func FlattenMapping(mapping m.Mapping) []string {
	tests := make([]m.TestID, 0, len(mapping))
	for test := range mapping {
		tests = append(tests, test)
	}

	sort.Slice(tests, func(i, j int) bool { return tests[i] < tests[j] })

	var rows []string

	for _, test := range tests {
		spectra := mapping[test]
		rows = append(rows, fmt.Sprintf("%s (%d files, %d lines)", test, spectra.Files(), spectra.Lines()))

		files := make([]m.Path, 0, len(spectra))
		for file := range spectra {
			files = append(files, file)
		}

		sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

		for _, file := range files {
			rows = append(rows, fmt.Sprintf("  %s %s", file, formatLines(spectra[file])))
		}
	}

	return rows
}

// formatLines compacts an ascending line set into comma-separated ranges,
// e.g. [1 2 3 7] -> 1-3,7.
func formatLines(lines []int) string {
	if len(lines) == 0 {
		return ""
	}

	var parts []string

	start := lines[0]
	prev := lines[0]

	flush := func() {
		if start == prev {
			parts = append(parts, fmt.Sprintf("%d", start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}

	for _, line := range lines[1:] {
		if line == prev+1 {
			prev = line
			continue
		}

		flush()

		start = line
		prev = line
	}

	flush()

	return strings.Join(parts, ",")
}

// mappingPager is the Bubble Tea model for scrolling through mapping rows.
type mappingPager struct {
	rows     []string
	tests    int
	height   int
	width    int
	offset   int
	quitting bool
}

func newMappingPager(rows []string, tests int) mappingPager {
	return mappingPager{rows: rows, tests: tests}
}

func (p mappingPager) Init() tea.Cmd {
	return nil
}

func (p mappingPager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.height = msg.Height
		p.width = msg.Width

		return p, nil

	case tea.KeyMsg:
		return p.handleKeyPress(msg)
	}

	return p, nil
}

func (p mappingPager) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		p.quitting = true
		return p, tea.Quit
	default:
	}

	switch msg.String() {
	case "q":
		p.quitting = true
		return p, tea.Quit

	case "down", "j":
		p.offset = min(p.offset+1, p.maxOffset())

	case "up", "k":
		p.offset = max(p.offset-1, 0)

	case "d", "pgdown":
		p.offset = min(p.offset+p.rowsPerPage(), p.maxOffset())

	case "u", "pgup":
		p.offset = max(p.offset-p.rowsPerPage(), 0)

	case "g", "home":
		p.offset = 0

	case "G", "end":
		p.offset = p.maxOffset()
	}

	return p, nil
}

// rowsPerPage is the visible row budget after the header and footer.
func (p mappingPager) rowsPerPage() int {
	reserved := 5
	if p.height <= reserved {
		return 10
	}

	return p.height - reserved
}

func (p mappingPager) maxOffset() int {
	maxOffset := len(p.rows) - p.rowsPerPage()
	if maxOffset < 0 {
		return 0
	}

	return maxOffset
}

func (p mappingPager) View() string {
	if p.quitting {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Prism mapping: %d recorded test(s)\n\n", p.tests)

	if len(p.rows) == 0 {
		b.WriteString("  (nothing recorded yet)\n")
		return b.String()
	}

	end := min(p.offset+p.rowsPerPage(), len(p.rows))

	for _, row := range p.rows[p.offset:end] {
		b.WriteString(row)
		b.WriteString("\n")
	}

	if len(p.rows) > p.rowsPerPage() {
		fmt.Fprintf(&b, "\n%d-%d of %d | j/k scroll, u/d page, q quit\n", p.offset+1, end, len(p.rows))
	}

	return b.String()
}
