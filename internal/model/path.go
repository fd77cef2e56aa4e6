// Package model defines the data structures for test selection.
package model

// Path represents a file system path.
//
// Inside a persisted Mapping, paths are root-relative with the leading
// separator kept: recording <root>/lib/a.go stores it as /lib/a.go.
type Path string

// TestID identifies a recorded test, usually the path of its test file.
type TestID string
