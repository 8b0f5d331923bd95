package tracks

import (
	"fmt"
	"time"
)

// Apply narrows candidates according to opts. candidates must already be
// sorted most recent first (as returned by Scan); the order is preserved.
//
// The method filter runs first, then the size filter on whatever survived.
// An error is returned only when the size threshold cannot be parsed.
func Apply(candidates []Candidate, opts Options, now time.Time) ([]Candidate, error) {
	selected := candidates

	switch opts.Method {
	case MethodRecent:
		if opts.RecentSel != nil {
			selected = selectRecent(selected, *opts.RecentSel, opts.RecentSelFirst)
		}
	case MethodTime:
		if opts.TimeSel != nil {
			selected = selectYoungerThan(selected, *opts.TimeSel, now)
		}
	case MethodNone, MethodUnknown:
	}

	if opts.Size && opts.SizeSel != "" {
		limit, err := ParseSizeLimit(opts.SizeSel)
		if err != nil {
			return nil, fmt.Errorf("size filter: %w", err)
		}
		selected = selectSmallerThan(selected, limit)
	}

	return selected, nil
}

// selectRecent keeps the m-th through n-th most recent entries (1-based,
// inclusive). n is clamped into [1, len] and m into [1, n].
func selectRecent(candidates []Candidate, n int, first *int) []Candidate {
	total := len(candidates)
	if total == 0 {
		return []Candidate{}
	}

	m := 1
	if first != nil {
		m = *first
	}
	n = clamp(n, 1, total)
	m = clamp(m, 1, n)

	out := make([]Candidate, n-m+1)
	copy(out, candidates[m-1:n])
	return out
}

// selectYoungerThan keeps entries whose age in hours is strictly below hours.
func selectYoungerThan(candidates []Candidate, hours float64, now time.Time) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		age := now.Sub(c.ModTime).Hours()
		if age < hours {
			out = append(out, c)
		}
	}
	return out
}

// selectSmallerThan keeps entries strictly smaller than limit bytes.
func selectSmallerThan(candidates []Candidate, limit float64) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if float64(c.Size) < limit {
			out = append(out, c)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
