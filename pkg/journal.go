// Package pkg provides shared utilities for prism.
package pkg

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Journal is a file-backed append log for items of type T. Batch recording
// appends one entry per recorded test and merges the whole journal into the
// mapping afterwards, so a single save covers the entire run.
type Journal[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Range(fn func(index uint64, item T) error) error
	Close() error
	Remove() error
}

type fileJournal[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// NewJournal creates a Journal backed by a temporary gob file.
func NewJournal[T any]() (Journal[T], error) {
	file, err := os.CreateTemp("", "prism-journal-*.gob")
	if err != nil {
		slog.Error("Failed to create journal file", "error", err)

		return nil, fmt.Errorf("create journal file: %w", err)
	}

	slog.Debug("Created journal", "path", file.Name())

	return &fileJournal[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Append encodes item at the end of the journal.
func (j *fileJournal[T]) Append(item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.encoder.Encode(item); err != nil {
		slog.Error("Failed to encode journal item", "path", j.path, "index", j.length, "error", err)

		return fmt.Errorf("encode journal item: %w", err)
	}

	j.length++

	return nil
}

// Len returns the number of appended items.
func (j *fileJournal[T]) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.length
}

// Path returns the location of the backing file.
func (j *fileJournal[T]) Path() string {
	return j.path
}

// Range replays every journal entry in append order. It stops at the first
// callback error.
func (j *fileJournal[T]) Range(fn func(index uint64, item T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		slog.Error("Failed to open journal for replay", "path", j.path, "error", err)

		return fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close journal", "path", j.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := uint64(0); i < j.length; i++ {
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("Failed to decode journal item", "path", j.path, "index", i, "error", err)

			return fmt.Errorf("decode journal item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the backing file.
func (j *fileJournal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	if err := j.file.Close(); err != nil {
		slog.Error("Failed to close journal file", "path", j.path, "error", err)

		return err
	}

	j.file = nil

	return nil
}

// Remove deletes the backing file. Call after Close once the journal has
// been merged.
func (j *fileJournal[T]) Remove() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove journal file: %w", err)
	}

	return nil
}
