package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-rts/prism/internal/adapter"
	"github.com/prism-rts/prism/internal/controller"
	m "github.com/prism-rts/prism/internal/model"
)

// fakeUI records every display call for assertions.
type fakeUI struct {
	recorded      []m.TestID
	batchRecorded []m.TestID
	batchFailed   int
	affectedTests []m.TestID
	affectedFile  m.Path
	affectedLine  int
	summaries     []controller.TestSummary
	status        controller.StatusInfo
	commit        string
	browsed       m.Mapping
}

func (f *fakeUI) DisplayRecorded(_ context.Context, test m.TestID, _ m.Spectra) error {
	f.recorded = append(f.recorded, test)
	return nil
}

func (f *fakeUI) DisplayBatchRecorded(_ context.Context, recorded []m.TestID, failed int) error {
	f.batchRecorded = recorded
	f.batchFailed = failed

	return nil
}

func (f *fakeUI) DisplayAffected(_ context.Context, file m.Path, line int, tests []m.TestID, _ string) error {
	f.affectedFile = file
	f.affectedLine = line
	f.affectedTests = tests

	return nil
}

func (f *fakeUI) DisplayTests(_ context.Context, summaries []controller.TestSummary, _ string) error {
	f.summaries = summaries
	return nil
}

func (f *fakeUI) DisplayStatus(_ context.Context, status controller.StatusInfo, _ string) error {
	f.status = status
	return nil
}

func (f *fakeUI) DisplayCommitSaved(_ context.Context, commit string) error {
	f.commit = commit
	return nil
}

func (f *fakeUI) BrowseMapping(_ context.Context, mapping m.Mapping) error {
	f.browsed = mapping
	return nil
}

// fakeGit serves a fixed root and HEAD.
type fakeGit struct {
	root m.Path
	head string
	err  error
}

func (g *fakeGit) ProjectRoot(_ m.Path) (m.Path, error) { return g.root, g.err }
func (g *fakeGit) Head(_ m.Path) (string, error)        { return g.head, g.err }

type workflowFixture struct {
	workflow Workflow
	store    *adapter.LocalMappingStore
	ui       *fakeUI
	git      *fakeGit
	root     string
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/demo\n")

	store, err := adapter.NewLocalMappingStore(m.Path(root), ".prism")
	require.NoError(t, err)

	selector, err := NewSelector(store, m.Path(root), nil)
	require.NoError(t, err)

	ui := &fakeUI{}
	git := &fakeGit{root: m.Path(root), head: "deadbeef"}
	coverage := adapter.NewLocalCoverageAdapter(m.Path(root))

	return &workflowFixture{
		workflow: NewWorkflow(selector, store, coverage, git, ui, m.Path(root)),
		store:    store,
		ui:       ui,
		git:      git,
		root:     root,
	}
}

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()

	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestWorkflowRecord(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)
	profile := writeFile(t, fx.root, "store.cover",
		"mode: set\n"+
			"example.com/demo/internal/store/store.go:3.1,5.2 2 1\n")

	err := fx.workflow.Record(context.Background(), RecordArgs{
		Test:    "./internal/store",
		Profile: profile,
	})
	require.NoError(t, err)
	assert.Equal(t, []m.TestID{"./internal/store"}, fx.ui.recorded)

	mapping, err := fx.store.LoadMapping()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, mapping["./internal/store"][m.Path("/internal/store/store.go")])
}

func TestWorkflowRecord_BadProfile(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	err := fx.workflow.Record(context.Background(), RecordArgs{
		Test:    "./pkg/a",
		Profile: filepath.Join(fx.root, "missing.cover"),
	})
	require.Error(t, err)
	assert.Empty(t, fx.ui.recorded)
}

func TestWorkflowRecordBatch(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	writeFile(t, fx.root, "cover/a.out",
		"mode: set\nexample.com/demo/a.go:1.1,2.2 1 1\n")
	writeFile(t, fx.root, "cover/b.out",
		"mode: set\nexample.com/demo/b.go:4.1,4.9 1 2\n")
	manifest := writeFile(t, fx.root, "coverage.yaml",
		"tests:\n"+
			"  - test: ./pkg/a\n"+
			"    profile: "+filepath.Join(fx.root, "cover", "a.out")+"\n"+
			"  - test: ./pkg/b\n"+
			"    profile: "+filepath.Join(fx.root, "cover", "b.out")+"\n")

	err := fx.workflow.RecordBatch(context.Background(), BatchArgs{Manifest: manifest, Threads: 2})
	require.NoError(t, err)
	assert.Len(t, fx.ui.batchRecorded, 2)
	assert.Zero(t, fx.ui.batchFailed)

	mapping, err := fx.store.LoadMapping()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, mapping["./pkg/a"][m.Path("/a.go")])
	assert.Equal(t, []int{4}, mapping["./pkg/b"][m.Path("/b.go")])
}

func TestWorkflowRecordBatch_PartialFailure(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	writeFile(t, fx.root, "cover/a.out",
		"mode: set\nexample.com/demo/a.go:1.1,1.5 1 1\n")
	manifest := writeFile(t, fx.root, "coverage.yaml",
		"tests:\n"+
			"  - test: ./pkg/a\n"+
			"    profile: "+filepath.Join(fx.root, "cover", "a.out")+"\n"+
			"  - test: ./pkg/missing\n"+
			"    profile: "+filepath.Join(fx.root, "cover", "missing.out")+"\n")

	err := fx.workflow.RecordBatch(context.Background(), BatchArgs{Manifest: manifest, Threads: 1})
	require.Error(t, err)
	assert.Equal(t, 1, fx.ui.batchFailed)

	// The good entry still landed.
	mapping, err := fx.store.LoadMapping()
	require.NoError(t, err)
	assert.Contains(t, mapping, m.TestID("./pkg/a"))
	assert.NotContains(t, mapping, m.TestID("./pkg/missing"))
}

func TestWorkflowRecordBatch_ManifestErrors(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	err := fx.workflow.RecordBatch(context.Background(), BatchArgs{Manifest: filepath.Join(fx.root, "nope.yaml")})
	require.Error(t, err)

	empty := writeFile(t, fx.root, "empty.yaml", "tests: []\n")
	err = fx.workflow.RecordBatch(context.Background(), BatchArgs{Manifest: empty})
	require.Error(t, err)

	incomplete := writeFile(t, fx.root, "incomplete.yaml", "tests:\n  - test: ./pkg/a\n")
	err = fx.workflow.RecordBatch(context.Background(), BatchArgs{Manifest: incomplete})
	require.Error(t, err)
}

func TestWorkflowAffected(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	require.NoError(t, fx.store.SaveMapping(m.Mapping{
		"./pkg/a": {"/lib/x.go": {4, 9}},
	}))

	err := fx.workflow.Affected(context.Background(), AffectedArgs{File: "lib/x.go", Line: 4})
	require.NoError(t, err)
	assert.Equal(t, m.Path("/lib/x.go"), fx.ui.affectedFile)
	assert.Equal(t, 4, fx.ui.affectedLine)
	assert.Equal(t, []m.TestID{"./pkg/a"}, fx.ui.affectedTests)
}

func TestWorkflowAffected_InvalidLine(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	err := fx.workflow.Affected(context.Background(), AffectedArgs{File: "lib/x.go", Line: 0})
	require.Error(t, err)
}

func TestWorkflowTests(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	require.NoError(t, fx.store.SaveMapping(m.Mapping{
		"./pkg/a": {"/lib/x.go": {1, 2}, "/lib/y.go": {3}},
		"./pkg/b": {"/lib/x.go": {9}},
	}))

	require.NoError(t, fx.workflow.Tests(context.Background(), controller.FormatTable))
	require.Len(t, fx.ui.summaries, 2)

	bySummary := map[m.TestID]controller.TestSummary{}
	for _, s := range fx.ui.summaries {
		bySummary[s.Test] = s
	}

	assert.Equal(t, 2, bySummary["./pkg/a"].Files)
	assert.Equal(t, 3, bySummary["./pkg/a"].Lines)
	assert.Equal(t, 1, bySummary["./pkg/b"].Files)
}

func TestWorkflowStatus(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	require.NoError(t, fx.store.SaveMapping(m.Mapping{
		"./pkg/a": {"/lib/x.go": {1, 2}},
		"./pkg/b": {"/lib/x.go": {9}, "/lib/y.go": {1}},
	}))
	require.NoError(t, fx.store.SaveCommitMarker("old-commit"))

	require.NoError(t, fx.workflow.Status(context.Background(), controller.FormatTable))

	assert.Equal(t, 2, fx.ui.status.Tests)
	assert.Equal(t, 2, fx.ui.status.Files)
	assert.Equal(t, 4, fx.ui.status.Lines)
	assert.Equal(t, "old-commit", fx.ui.status.StoredCommit)
	assert.Equal(t, "deadbeef", fx.ui.status.CurrentCommit)
	assert.True(t, fx.ui.status.Stale)
}

func TestWorkflowStatus_FreshMarker(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	require.NoError(t, fx.store.SaveCommitMarker("deadbeef"))
	require.NoError(t, fx.workflow.Status(context.Background(), controller.FormatTable))

	assert.False(t, fx.ui.status.Stale)
}

func TestWorkflowStatus_GitUnavailable(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)
	fx.git.head = ""
	fx.git.err = errors.New("no git")

	require.NoError(t, fx.workflow.Status(context.Background(), controller.FormatTable))
	assert.Empty(t, fx.ui.status.CurrentCommit)
	assert.False(t, fx.ui.status.Stale)
}

func TestWorkflowSaveCommit(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	require.NoError(t, fx.workflow.SaveCommit(context.Background(), "explicit"))
	assert.Equal(t, "explicit", fx.ui.commit)

	commit, err := fx.store.LoadCommitMarker()
	require.NoError(t, err)
	assert.Equal(t, "explicit", commit)
}

func TestWorkflowSaveCommit_DefaultsToHead(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	require.NoError(t, fx.workflow.SaveCommit(context.Background(), ""))
	assert.Equal(t, "deadbeef", fx.ui.commit)
}

func TestWorkflowSaveCommit_HeadUnavailable(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)
	fx.git.err = errors.New("no git")

	require.Error(t, fx.workflow.SaveCommit(context.Background(), ""))
}

func TestWorkflowView(t *testing.T) {
	t.Parallel()

	fx := newWorkflowFixture(t)

	mapping := m.Mapping{"./pkg/a": {"/lib/x.go": {1}}}
	require.NoError(t, fx.store.SaveMapping(mapping))

	require.NoError(t, fx.workflow.View(context.Background()))
	assert.Equal(t, mapping, fx.ui.browsed)
}
