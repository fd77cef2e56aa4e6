package model

// Spectra records, for one test, the executed line numbers of every
// project-owned file it touched. Line numbers within a file are strictly
// increasing, which makes membership checks a binary search.
type Spectra map[Path][]int

// Mapping is the full persisted collection of Spectra, keyed by test
// identifier. At most one entry exists per test; re-recording a test
// replaces its previous entry wholesale.
type Mapping map[TestID]Spectra

// Files returns the number of distinct files across all entries of s.
func (s Spectra) Files() int {
	return len(s)
}

// Lines returns the total number of recorded lines across all files of s.
func (s Spectra) Lines() int {
	total := 0
	for _, lines := range s {
		total += len(lines)
	}

	return total
}
