// Package domain holds the test selection logic: deriving spectra from raw
// coverage and answering affected-test queries against the stored mapping.
package domain

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/prism-rts/prism/internal/adapter"
	m "github.com/prism-rts/prism/internal/model"
)

// Selector owns the two mapping operations: recording coverage-derived
// spectra for a test and resolving which tests a changed line affects.
type Selector struct {
	store   adapter.MappingStore
	root    m.Path
	exclude []*regexp.Regexp
}

// NewSelector constructs a Selector over the given store. The root is the
// project root used to filter and normalize coverage paths; exclude patterns
// drop matching root-relative files while recording.
func NewSelector(store adapter.MappingStore, root m.Path, exclude []*regexp.Regexp) (*Selector, error) {
	if strings.TrimSpace(string(root)) == "" {
		return nil, fmt.Errorf("project root is required")
	}

	return &Selector{
		store:   store,
		root:    root,
		exclude: exclude,
	}, nil
}

// BuildSpectra derives a Spectra from raw coverage. Files outside root are
// discarded, remaining paths are rewritten root-relative (leading root
// prefix stripped, separator kept), and only lines with a positive marker
// survive. Files with no hit lines or matching an exclude pattern get no
// entry.
func BuildSpectra(raw m.RawCoverage, root m.Path, exclude []*regexp.Regexp) m.Spectra {
	spectra := m.Spectra{}

	for file, cov := range raw {
		rel, ok := relativizePath(file, root)
		if !ok {
			continue
		}

		if matchesAny(exclude, string(rel)) {
			continue
		}

		lines := cov.HitLines()
		if len(lines) == 0 {
			continue
		}

		spectra[rel] = lines
	}

	return spectra
}

// DeriveSpectra builds a Spectra from raw coverage using the selector's
// root and exclude patterns.
func (s *Selector) DeriveSpectra(raw m.RawCoverage) m.Spectra {
	return BuildSpectra(raw, s.root, s.exclude)
}

// RecordCoverage derives the spectra for test from raw coverage and upserts
// it into the persisted mapping. The entry for test is fully replaced;
// recording never unions with a previous run.
func (s *Selector) RecordCoverage(test m.TestID, raw m.RawCoverage) error {
	if strings.TrimSpace(string(test)) == "" {
		return fmt.Errorf("test identifier is required")
	}

	spectra := s.DeriveSpectra(raw)

	err := s.store.UpdateMapping(func(mapping m.Mapping) error {
		mapping[test] = spectra
		return nil
	})
	if err != nil {
		return fmt.Errorf("record coverage for %s: %w", test, err)
	}

	slog.Debug("Recorded coverage", "test", test, "files", spectra.Files(), "lines", spectra.Lines())

	return nil
}

// AffectedTests returns every test whose recorded spectra contain exactly
// the given line of the given root-relative file. A missing mapping file is
// an empty mapping, so the result is empty, not an error.
func (s *Selector) AffectedTests(file m.Path, line int) ([]m.TestID, error) {
	mapping, err := s.store.LoadMapping()
	if err != nil {
		return nil, err
	}

	var affected []m.TestID

	for test, spectra := range mapping {
		lines, ok := spectra[file]
		if !ok {
			continue
		}

		if containsLine(lines, line) {
			affected = append(affected, test)
		}
	}

	sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })

	return affected, nil
}

// SaveCommitMarker stores the commit identifier the mapping was computed
// against. Record and query never consult it.
func (s *Selector) SaveCommitMarker(commit string) error {
	if strings.TrimSpace(commit) == "" {
		return fmt.Errorf("commit identifier is required")
	}

	return s.store.SaveCommitMarker(commit)
}

// NormalizeQueryPath rewrites an absolute path under root into the stored
// root-relative form. Already-relative paths pass through unchanged apart
// from gaining the leading separator the store uses.
func (s *Selector) NormalizeQueryPath(file string) m.Path {
	if filepath.IsAbs(file) {
		if rel, ok := relativizePath(file, s.root); ok {
			return rel
		}

		return m.Path(file)
	}

	file = strings.TrimPrefix(file, "./")
	if !strings.HasPrefix(file, "/") {
		file = "/" + file
	}

	return m.Path(filepath.FromSlash(file))
}

// containsLine reports whether line is present in the ascending slice. The
// search finds the smallest element >= line; only exact equality counts, so
// [10, 20, 30] contains 20 but neither 15 nor 25.
func containsLine(lines []int, line int) bool {
	idx := sort.SearchInts(lines, line)

	return idx < len(lines) && lines[idx] == line
}

// relativizePath strips the root prefix from an absolute path, keeping the
// leading separator: <root>/lib/a.go becomes /lib/a.go. Paths not under
// root report ok=false.
func relativizePath(file string, root m.Path) (m.Path, bool) {
	rootStr := strings.TrimSuffix(string(root), string(filepath.Separator))

	rel, ok := strings.CutPrefix(file, rootStr+string(filepath.Separator))
	if !ok {
		return "", false
	}

	return m.Path(string(filepath.Separator) + rel), true
}

func matchesAny(patterns []*regexp.Regexp, path string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(path) {
			return true
		}
	}

	return false
}
