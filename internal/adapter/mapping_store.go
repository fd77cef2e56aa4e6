// Package adapter contains storage and infrastructure adapters for the
// Prism CLI.
package adapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	m "github.com/prism-rts/prism/internal/model"
)

const (
	mappingFileName = "mapping.json"
	commitFileName  = "commit"

	storeDirPerm  = 0o750
	storeFilePerm = 0o600
)

// ErrCorruptMapping marks a mapping file that exists but cannot be parsed.
// No repair is attempted; callers decide whether to discard the store.
var ErrCorruptMapping = errors.New("corrupt mapping file")

// MappingStore persists and retrieves the test-to-spectra mapping and the
// commit marker. Both live under a hidden subdirectory of the project root;
// absent files are well-formed empty state, never an error.
type MappingStore interface {
	LoadMapping() (m.Mapping, error)
	SaveMapping(mapping m.Mapping) error
	UpdateMapping(fn func(mapping m.Mapping) error) error
	LoadCommitMarker() (string, error)
	SaveCommitMarker(commit string) error
	Dir() m.Path
}

// LocalMappingStore is the on-disk implementation of MappingStore.
//
// A mutex serializes the load-modify-save cycle within one process.
// Concurrent writers from separate processes still race last-write-wins.
type LocalMappingStore struct {
	dir m.Path
	mu  sync.Mutex
}

// NewLocalMappingStore constructs a store rooted at root, keeping its
// artifacts under root/<storeDir>. An empty root or store directory name is
// a configuration error.
func NewLocalMappingStore(root m.Path, storeDir string) (*LocalMappingStore, error) {
	if strings.TrimSpace(string(root)) == "" {
		return nil, fmt.Errorf("project root is required")
	}

	if strings.TrimSpace(storeDir) == "" {
		return nil, fmt.Errorf("store directory name is required")
	}

	return &LocalMappingStore{
		dir: m.Path(filepath.Join(string(root), storeDir)),
	}, nil
}

// Dir returns the directory holding the mapping and commit marker files.
func (s *LocalMappingStore) Dir() m.Path {
	return s.dir
}

// LoadMapping reads the persisted mapping. A missing file yields an empty
// mapping; an unparsable file is surfaced as ErrCorruptMapping.
func (s *LocalMappingStore) LoadMapping() (m.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadMappingLocked()
}

func (s *LocalMappingStore) loadMappingLocked() (m.Mapping, error) {
	path := filepath.Join(string(s.dir), mappingFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m.Mapping{}, nil
		}

		slog.Error("Failed to read mapping file", "path", path, "error", err)

		return nil, fmt.Errorf("read mapping file: %w", err)
	}

	var mapping m.Mapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		slog.Error("Failed to parse mapping file", "path", path, "error", err)

		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptMapping, path, err)
	}

	if mapping == nil {
		mapping = m.Mapping{}
	}

	return mapping, nil
}

// SaveMapping overwrites the mapping artifact with the provided mapping,
// creating the store directory if absent. Write failures are fatal and
// propagated; there is no retry.
func (s *LocalMappingStore) SaveMapping(mapping m.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveMappingLocked(mapping)
}

func (s *LocalMappingStore) saveMappingLocked(mapping m.Mapping) error {
	if err := os.MkdirAll(string(s.dir), storeDirPerm); err != nil {
		slog.Error("Failed to create store directory", "dir", s.dir, "error", err)

		return fmt.Errorf("create store directory: %w", err)
	}

	if mapping == nil {
		mapping = m.Mapping{}
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	path := filepath.Join(string(s.dir), mappingFileName)
	if err := os.WriteFile(path, data, storeFilePerm); err != nil {
		slog.Error("Failed to write mapping file", "path", path, "error", err)

		return fmt.Errorf("write mapping file: %w", err)
	}

	slog.Debug("Saved mapping", "path", path, "tests", len(mapping))

	return nil
}

// UpdateMapping runs fn against the current mapping and persists the result,
// all under one lock, so in-process callers cannot interleave their
// read-modify-write cycles.
func (s *LocalMappingStore) UpdateMapping(fn func(mapping m.Mapping) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping, err := s.loadMappingLocked()
	if err != nil {
		return err
	}

	if err := fn(mapping); err != nil {
		return err
	}

	return s.saveMappingLocked(mapping)
}

// LoadCommitMarker reads the stored commit identifier. A missing marker
// yields an empty string, not an error.
func (s *LocalMappingStore) LoadCommitMarker() (string, error) {
	path := filepath.Join(string(s.dir), commitFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", fmt.Errorf("read commit marker: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// SaveCommitMarker overwrites the commit marker wholesale, creating the
// store directory if missing. The marker is a freestanding value; nothing in
// record or query consults it.
func (s *LocalMappingStore) SaveCommitMarker(commit string) error {
	if err := os.MkdirAll(string(s.dir), storeDirPerm); err != nil {
		slog.Error("Failed to create store directory", "dir", s.dir, "error", err)

		return fmt.Errorf("create store directory: %w", err)
	}

	path := filepath.Join(string(s.dir), commitFileName)
	if err := os.WriteFile(path, []byte(commit), storeFilePerm); err != nil {
		slog.Error("Failed to write commit marker", "path", path, "error", err)

		return fmt.Errorf("write commit marker: %w", err)
	}

	return nil
}
