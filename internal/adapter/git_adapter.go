package adapter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	m "github.com/prism-rts/prism/internal/model"
)

// GitAdapter abstracts the version-control collaborator. Prism only needs
// two things from it: the project root and the identity of the current
// commit.
type GitAdapter interface {
	// ProjectRoot resolves the root directory of the project containing
	// startPath.
	ProjectRoot(startPath m.Path) (m.Path, error)

	// Head returns the current commit identifier.
	Head(workDir m.Path) (string, error)
}

// LocalGitAdapter shells out to git, falling back to a directory walk when
// git is unavailable.
type LocalGitAdapter struct {
	timeout time.Duration
}

// NewLocalGitAdapter constructs a LocalGitAdapter with a default 10s
// command timeout.
func NewLocalGitAdapter() *LocalGitAdapter {
	return &LocalGitAdapter{
		timeout: 10 * time.Second,
	}
}

// ProjectRoot asks `git rev-parse --show-toplevel`, and on failure walks up
// from startPath looking for a .git directory or a go.mod file.
func (a *LocalGitAdapter) ProjectRoot(startPath m.Path) (m.Path, error) {
	out, err := a.git(startPath, "rev-parse", "--show-toplevel")
	if err == nil && out != "" {
		return m.Path(out), nil
	}

	slog.Debug("git rev-parse failed, walking directories", "startPath", startPath, "error", err)

	return findProjectRoot(startPath)
}

// Head returns the commit identifier of HEAD in workDir.
func (a *LocalGitAdapter) Head(workDir m.Path) (string, error) {
	out, err := a.git(workDir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}

	return out, nil
}

func (a *LocalGitAdapter) git(workDir m.Path, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = string(workDir)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// findProjectRoot searches for a .git directory or go.mod file walking up
// the directory tree from startPath.
func findProjectRoot(startPath m.Path) (m.Path, error) {
	dir := string(startPath)

	if info, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("project root lookup: %w", err)
	} else if !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return m.Path(dir), nil
		}

		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return m.Path(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .git or go.mod found in any parent directory of %s", startPath)
		}

		dir = parent
	}
}
