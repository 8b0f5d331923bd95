package tracks

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

// Candidate is a track file found on the device.
type Candidate struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"time"`
	Size    int64     `json:"size"`
}

// Scan walks root recursively and returns every non-hidden file whose name
// ends in ext (case-insensitive), most recently modified first. A missing
// root yields an empty set.
func Scan(root, ext string) ([]Candidate, error) {
	return ScanWithIgnore(root, ext, NewIgnore(nil))
}

// ScanWithIgnore is Scan with a caller-supplied ignore set.
func ScanWithIgnore(root, ext string, ignore *Ignore) ([]Candidate, error) {
	candidates := []Candidate{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		if !hasExt(d.Name(), ext) || ignore.ShouldIgnore(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		candidates = append(candidates, Candidate{
			Path:    path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	SortRecentFirst(candidates)
	return candidates, nil
}

// SortRecentFirst orders candidates by modification time, newest first.
// Ties are broken by path so the order is deterministic.
func SortRecentFirst(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].ModTime.Equal(candidates[j].ModTime) {
			return candidates[i].ModTime.After(candidates[j].ModTime)
		}
		return candidates[i].Path < candidates[j].Path
	})
}

// Paths returns the file paths of candidates in order.
func Paths(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Path
	}
	return out
}
