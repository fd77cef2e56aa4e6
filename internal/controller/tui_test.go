package controller

import (
	"bytes"
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/prism-rts/prism/internal/model"
)

func TestFlattenMapping(t *testing.T) {
	t.Parallel()

	mapping := m.Mapping{
		"./spec/b": {"/lib/y.go": {2}},
		"./spec/a": {
			"/lib/x.go": {1, 2, 3},
			"/lib/a.go": {5},
		},
	}

	rows := FlattenMapping(mapping)

	expected := []string{
		"./spec/a (2 files, 4 lines)",
		"  /lib/a.go 5",
		"  /lib/x.go 1-3",
		"./spec/b (1 files, 1 lines)",
		"  /lib/y.go 2",
	}
	assert.Equal(t, expected, rows)
}

func TestFlattenMapping_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FlattenMapping(m.Mapping{}))
}

func TestFormatLines(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		lines    []int
		expected string
	}{
		{name: "empty", lines: nil, expected: ""},
		{name: "single", lines: []int{7}, expected: "7"},
		{name: "range", lines: []int{1, 2, 3}, expected: "1-3"},
		{name: "mixed", lines: []int{1, 2, 3, 7}, expected: "1-3,7"},
		{name: "two ranges", lines: []int{1, 2, 5, 6, 9}, expected: "1-2,5-6,9"},
		{name: "no runs", lines: []int{2, 4, 6}, expected: "2,4,6"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expected, formatLines(testCase.lines))
		})
	}
}

func TestNewUI(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}

	_, isTUI := NewUI(cmd, true).(*TUI)
	assert.True(t, isTUI)

	_, isSimple := NewUI(cmd, false).(*SimpleUI)
	assert.True(t, isSimple)
}

func TestTUIBrowseMapping_ShortMappingPrintsDirectly(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}
	buffer := &bytes.Buffer{}
	cmd.SetOut(buffer)

	ui := NewUI(cmd, true)

	mapping := m.Mapping{"./spec/a": {"/lib/x.go": {1, 4}}}
	require.NoError(t, ui.BrowseMapping(context.Background(), mapping))

	out := buffer.String()
	assert.Contains(t, out, "1 recorded test(s)")
	assert.Contains(t, out, "./spec/a (1 files, 2 lines)")
	assert.Contains(t, out, "  /lib/x.go 1,4")
}

func TestMappingPagerScrolling(t *testing.T) {
	t.Parallel()

	rows := make([]string, 30)
	for i := range rows {
		rows[i] = string(rune('a' + i%26))
	}

	var model tea.Model = newMappingPager(rows, 30)

	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 15})
	pager := model.(mappingPager)
	assert.Equal(t, 10, pager.rowsPerPage())
	assert.Equal(t, 0, pager.offset)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, model.(mappingPager).offset)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	assert.Equal(t, 11, model.(mappingPager).offset)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 20, model.(mappingPager).offset)

	// Bottom is clamped.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 20, model.(mappingPager).offset)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, model.(mappingPager).offset)

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, model.(mappingPager).offset)
}

func TestMappingPagerQuit(t *testing.T) {
	t.Parallel()

	var model tea.Model = newMappingPager([]string{"row"}, 1)

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Empty(t, model.View())

	model = newMappingPager([]string{"row"}, 1)
	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
}

func TestMappingPagerView(t *testing.T) {
	t.Parallel()

	pager := newMappingPager([]string{"first", "second"}, 1)
	view := pager.View()

	assert.Contains(t, view, "1 recorded test(s)")
	assert.Contains(t, view, "first")
	assert.Contains(t, view, "second")
	assert.NotContains(t, view, "scroll")

	empty := newMappingPager(nil, 0)
	assert.Contains(t, empty.View(), "nothing recorded yet")
}

func TestMappingPagerView_Paged(t *testing.T) {
	t.Parallel()

	rows := make([]string, 30)
	for i := range rows {
		rows[i] = string(rune('a' + i%26))
	}

	pager := newMappingPager(rows, 30)
	view := pager.View()

	assert.Contains(t, view, "1-10 of 30")
	assert.Contains(t, view, "j/k scroll")
}
