package adapter

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	m "github.com/prism-rts/prism/internal/model"
)

// CoverageAdapter turns coverage-instrumentation output into raw per-line
// execution markers. Running the instrumented tests is the caller's job.
type CoverageAdapter interface {
	// ParseProfile reads a `go test -coverprofile` file and returns raw
	// coverage keyed by absolute file path.
	ParseProfile(path string) (m.RawCoverage, error)
}

// LocalCoverageAdapter parses cover profiles from disk, resolving the
// import-path file names found in profile blocks to absolute paths under the
// project root.
type LocalCoverageAdapter struct {
	root       m.Path
	modulePath string
}

// NewLocalCoverageAdapter constructs a LocalCoverageAdapter for the given
// project root. The module path is read from root/go.mod when present and
// used to translate block file names into paths below root.
func NewLocalCoverageAdapter(root m.Path) *LocalCoverageAdapter {
	return &LocalCoverageAdapter{
		root:       root,
		modulePath: readModulePath(root),
	}
}

// ParseProfile reads one cover profile. Each block line has the shape
//
//	name.go:startLine.startCol,endLine.endCol numStmts count
//
// and marks every line of the block with the block's hit count. Lines never
// mentioned by any block stay nil (not executable).
func (a *LocalCoverageAdapter) ParseProfile(path string) (m.RawCoverage, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Failed to open coverage profile", "path", path, "error", err)

		return nil, fmt.Errorf("open coverage profile: %w", err)
	}

	defer func() { _ = f.Close() }()

	raw := m.RawCoverage{}
	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "mode:") {
			continue
		}

		file, startLine, endLine, count, err := parseProfileBlock(line)
		if err != nil {
			return nil, fmt.Errorf("coverage profile %s line %d: %w", path, lineNo, err)
		}

		absFile := a.resolveBlockFile(file)
		markBlock(raw, absFile, startLine, endLine, count)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read coverage profile: %w", err)
	}

	return raw, nil
}

// parseProfileBlock splits one block line into its file, line range and hit
// count. Statement counts are parsed but not used; only lines matter here.
func parseProfileBlock(line string) (file string, startLine, endLine, count int, err error) {
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		return "", 0, 0, 0, fmt.Errorf("malformed block %q", line)
	}

	file = line[:colon]
	rest := strings.Fields(line[colon+1:])

	if len(rest) != 3 {
		return "", 0, 0, 0, fmt.Errorf("malformed block %q", line)
	}

	positions := strings.Split(rest[0], ",")
	if len(positions) != 2 {
		return "", 0, 0, 0, fmt.Errorf("malformed block range %q", rest[0])
	}

	startLine, err = parsePositionLine(positions[0])
	if err != nil {
		return "", 0, 0, 0, err
	}

	endLine, err = parsePositionLine(positions[1])
	if err != nil {
		return "", 0, 0, 0, err
	}

	count, err = strconv.Atoi(rest[2])
	if err != nil {
		return "", 0, 0, 0, fmt.Errorf("malformed hit count %q", rest[2])
	}

	if startLine < 1 || endLine < startLine {
		return "", 0, 0, 0, fmt.Errorf("malformed block range %q", rest[0])
	}

	return file, startLine, endLine, count, nil
}

// parsePositionLine extracts the line part of a "line.column" position.
func parsePositionLine(pos string) (int, error) {
	dot := strings.Index(pos, ".")
	if dot < 0 {
		return 0, fmt.Errorf("malformed position %q", pos)
	}

	line, err := strconv.Atoi(pos[:dot])
	if err != nil {
		return 0, fmt.Errorf("malformed position %q", pos)
	}

	return line, nil
}

// resolveBlockFile maps a profile block file name to an absolute path.
// Import-path names below the project's module resolve under root; anything
// else outside the module stays as-is and gets filtered out later.
func (a *LocalCoverageAdapter) resolveBlockFile(file string) string {
	if filepath.IsAbs(file) {
		return file
	}

	if a.modulePath != "" {
		if rel, ok := strings.CutPrefix(file, a.modulePath+"/"); ok {
			return filepath.Join(string(a.root), filepath.FromSlash(rel))
		}
	}

	if !strings.Contains(file, "/") || strings.HasPrefix(file, "./") {
		return filepath.Join(string(a.root), filepath.FromSlash(file))
	}

	// Import path of a foreign module; leave it absolute-less so the
	// project filter discards it.
	return file
}

// markBlock records count for every line of the block, keeping the maximum
// when blocks overlap at boundaries.
func markBlock(raw m.RawCoverage, file string, startLine, endLine, count int) {
	cov := raw[file]
	for len(cov) < endLine {
		cov = append(cov, nil)
	}

	for line := startLine; line <= endLine; line++ {
		idx := line - 1
		if cov[idx] == nil || *cov[idx] < count {
			c := count
			cov[idx] = &c
		}
	}

	raw[file] = cov
}

// readModulePath extracts the module directive from root/go.mod. An absent
// or unreadable go.mod just disables import-path resolution.
func readModulePath(root m.Path) string {
	f, err := os.Open(filepath.Join(string(root), "go.mod"))
	if err != nil {
		return ""
	}

	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if module, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(module)
		}
	}

	return ""
}
