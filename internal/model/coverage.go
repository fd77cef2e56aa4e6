package model

// FileCoverage holds per-line execution markers for a single source file.
// Index i corresponds to line i+1. A nil element marks a line that is not
// executable, zero marks an executable line that was never hit, and a
// positive value is the hit count.
type FileCoverage []*int

// RawCoverage is the coverage-instrumentation output for one test run,
// keyed by absolute file path.
type RawCoverage map[string]FileCoverage

// HitLines returns the 1-based line numbers with a non-nil, positive marker.
// The result is ascending because line positions are scanned in order.
func (fc FileCoverage) HitLines() []int {
	var lines []int

	for i, hits := range fc {
		if hits != nil && *hits > 0 {
			lines = append(lines, i+1)
		}
	}

	return lines
}
