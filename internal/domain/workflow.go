package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/prism-rts/prism/internal/adapter"
	"github.com/prism-rts/prism/internal/controller"
	m "github.com/prism-rts/prism/internal/model"
	"github.com/prism-rts/prism/pkg"
)

// RecordArgs contains the arguments for recording one test's coverage.
type RecordArgs struct {
	Test    m.TestID
	Profile string
}

// BatchArgs contains the arguments for recording a manifest of tests.
type BatchArgs struct {
	Manifest string
	Threads  int
}

// AffectedArgs contains the arguments for an affected-tests query.
type AffectedArgs struct {
	File   string
	Line   int
	Format string
}

// BatchEntry is one manifest row: a test identifier and the coverage
// profile produced while running it.
type BatchEntry struct {
	Test    string `yaml:"test"`
	Profile string `yaml:"profile"`
}

type batchManifest struct {
	Tests []BatchEntry `yaml:"tests"`
}

// SpectraRecord is one journal entry of a batch recording run.
type SpectraRecord struct {
	Test    m.TestID
	Spectra m.Spectra
}

// Workflow defines the use cases behind the prism commands.
type Workflow interface {
	Record(ctx context.Context, args RecordArgs) error
	RecordBatch(ctx context.Context, args BatchArgs) error
	Affected(ctx context.Context, args AffectedArgs) error
	Tests(ctx context.Context, format string) error
	Status(ctx context.Context, format string) error
	SaveCommit(ctx context.Context, commit string) error
	View(ctx context.Context) error
}

type workflow struct {
	selector *Selector
	store    adapter.MappingStore
	coverage adapter.CoverageAdapter
	git      adapter.GitAdapter
	ui       controller.UI
	root     m.Path
}

// NewWorkflow creates a Workflow instance with the provided dependencies.
func NewWorkflow(
	selector *Selector,
	store adapter.MappingStore,
	coverage adapter.CoverageAdapter,
	git adapter.GitAdapter,
	ui controller.UI,
	root m.Path,
) Workflow {
	return &workflow{
		selector: selector,
		store:    store,
		coverage: coverage,
		git:      git,
		ui:       ui,
		root:     root,
	}
}

// Record parses one coverage profile and upserts the spectra for one test.
func (w *workflow) Record(ctx context.Context, args RecordArgs) error {
	raw, err := w.coverage.ParseProfile(args.Profile)
	if err != nil {
		return fmt.Errorf("parse profile: %w", err)
	}

	if err := w.selector.RecordCoverage(args.Test, raw); err != nil {
		return err
	}

	return w.ui.DisplayRecorded(ctx, args.Test, w.selector.DeriveSpectra(raw))
}

// RecordBatch ingests every manifest entry: profiles are parsed
// concurrently, derived spectra go through an append journal, and the
// journal is merged into the mapping under a single load-save cycle.
func (w *workflow) RecordBatch(ctx context.Context, args BatchArgs) error {
	entries, err := loadManifest(args.Manifest)
	if err != nil {
		return err
	}

	journal, err := pkg.NewJournal[SpectraRecord]()
	if err != nil {
		return err
	}

	defer func() {
		_ = journal.Close()
		_ = journal.Remove()
	}()

	failed := w.parseIntoJournal(ctx, entries, journal, args.Threads)

	var recorded []m.TestID

	err = w.store.UpdateMapping(func(mapping m.Mapping) error {
		return journal.Range(func(_ uint64, record SpectraRecord) error {
			mapping[record.Test] = record.Spectra
			recorded = append(recorded, record.Test)

			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("merge batch journal: %w", err)
	}

	if err := w.ui.DisplayBatchRecorded(ctx, recorded, failed); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifest entries failed", failed, len(entries))
	}

	return nil
}

// parseIntoJournal fans the profile parsing out over an errgroup and
// appends one SpectraRecord per successful entry. Parse failures are logged
// and counted rather than aborting the batch.
func (w *workflow) parseIntoJournal(ctx context.Context, entries []BatchEntry, journal pkg.Journal[SpectraRecord], threads int) int {
	var (
		failedMutex sync.Mutex
		failed      int
	)

	group, ctx := errgroup.WithContext(ctx)
	if threads > 0 {
		group.SetLimit(threads)
	}

	for _, entry := range entries {
		entry := entry
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := w.coverage.ParseProfile(entry.Profile)
			if err != nil {
				slog.Error("Failed to parse profile", "test", entry.Test, "profile", entry.Profile, "error", err)
				failedMutex.Lock()
				failed++
				failedMutex.Unlock()

				return nil
			}

			record := SpectraRecord{
				Test:    m.TestID(entry.Test),
				Spectra: w.selector.DeriveSpectra(raw),
			}

			return journal.Append(record)
		})
	}

	if err := group.Wait(); err != nil {
		slog.Error("Batch parsing interrupted", "error", err)
	}

	return failed
}

// Affected resolves and displays the tests covering the given line.
func (w *workflow) Affected(ctx context.Context, args AffectedArgs) error {
	if args.Line < 1 {
		return fmt.Errorf("line number must be positive, got %d", args.Line)
	}

	file := w.selector.NormalizeQueryPath(args.File)

	tests, err := w.selector.AffectedTests(file, args.Line)
	if err != nil {
		return err
	}

	return w.ui.DisplayAffected(ctx, file, args.Line, tests, args.Format)
}

// Tests lists every recorded test with its spectra size.
func (w *workflow) Tests(ctx context.Context, format string) error {
	mapping, err := w.store.LoadMapping()
	if err != nil {
		return err
	}

	summaries := make([]controller.TestSummary, 0, len(mapping))
	for test, spectra := range mapping {
		summaries = append(summaries, controller.TestSummary{
			Test:  test,
			Files: spectra.Files(),
			Lines: spectra.Lines(),
		})
	}

	return w.ui.DisplayTests(ctx, summaries, format)
}

// Status reports store location, mapping size, and commit staleness.
func (w *workflow) Status(ctx context.Context, format string) error {
	mapping, err := w.store.LoadMapping()
	if err != nil {
		return err
	}

	marker, err := w.store.LoadCommitMarker()
	if err != nil {
		return err
	}

	head, err := w.git.Head(w.root)
	if err != nil {
		slog.Debug("Failed to resolve HEAD", "root", w.root, "error", err)

		head = ""
	}

	files := map[m.Path]struct{}{}
	lines := 0

	for _, spectra := range mapping {
		for file := range spectra {
			files[file] = struct{}{}
		}

		lines += spectra.Lines()
	}

	status := controller.StatusInfo{
		StoreDir:      w.store.Dir(),
		Tests:         len(mapping),
		Files:         len(files),
		Lines:         lines,
		StoredCommit:  marker,
		CurrentCommit: head,
		Stale:         marker != "" && head != "" && marker != head,
	}

	return w.ui.DisplayStatus(ctx, status, format)
}

// SaveCommit stores the commit marker, defaulting to the current HEAD.
func (w *workflow) SaveCommit(ctx context.Context, commit string) error {
	if commit == "" {
		head, err := w.git.Head(w.root)
		if err != nil {
			return err
		}

		commit = head
	}

	if err := w.selector.SaveCommitMarker(commit); err != nil {
		return err
	}

	return w.ui.DisplayCommitSaved(ctx, commit)
}

// View opens the mapping browser.
func (w *workflow) View(ctx context.Context) error {
	mapping, err := w.store.LoadMapping()
	if err != nil {
		return err
	}

	return w.ui.BrowseMapping(ctx, mapping)
}

func loadManifest(path string) ([]BatchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest batchManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if len(manifest.Tests) == 0 {
		return nil, fmt.Errorf("manifest %s lists no tests", path)
	}

	for i, entry := range manifest.Tests {
		if entry.Test == "" || entry.Profile == "" {
			return nil, fmt.Errorf("manifest %s entry %d: test and profile are required", path, i)
		}
	}

	return manifest.Tests, nil
}
