package diag

import "sort"

// Reporter collects diagnostics during analysis of one method body.
type Reporter struct {
	diagnostics []Diagnostic
	seen        map[string]bool
	muted       int
}

// NewReporter creates a new diagnostic reporter.
func NewReporter() *Reporter {
	return &Reporter{
		diagnostics: make([]Diagnostic, 0),
		seen:        make(map[string]bool),
	}
}

// Mute suppresses reports until the matching Unmute. Calls nest.
func (r *Reporter) Mute() { r.muted++ }

// Unmute undoes one Mute.
func (r *Reporter) Unmute() {
	if r.muted > 0 {
		r.muted--
	}
}

// Muted reports whether reports are currently dropped.
func (r *Reporter) Muted() bool { return r.muted > 0 }

// Add records a prepared diagnostic. Duplicates (same code, position and
// arguments) are dropped.
func (r *Reporter) Add(d Diagnostic) bool {
	if r.muted > 0 {
		return false
	}
	key := d.Key()
	if r.seen[key] {
		return false
	}
	r.seen[key] = true
	r.diagnostics = append(r.diagnostics, d)
	return true
}

// Len returns the number of collected diagnostics.
func (r *Reporter) Len() int { return len(r.diagnostics) }

// Diagnostics returns all collected diagnostics, sorted by position.
func (r *Reporter) Diagnostics() []Diagnostic {
	sorted := make([]Diagnostic, len(r.diagnostics))
	copy(sorted, r.diagnostics)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Filename != sorted[j].Span.Filename {
			return sorted[i].Span.Filename < sorted[j].Span.Filename
		}
		return sorted[i].Span.Before(sorted[j].Span)
	})

	return sorted
}
