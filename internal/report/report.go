// Package report builds the views printed by the scan and history commands.
// It reads the device and the journal directly; no host process is involved.
package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/gpsio/gpsio-host/internal/store"
	"github.com/gpsio/gpsio-host/internal/tracks"
	"github.com/gpsio/gpsio-host/internal/transfer"
)

// ScanEntry is one track file found on the device.
type ScanEntry struct {
	Path     string    `json:"path"`
	Rel      string    `json:"rel"`
	ModTime  time.Time `json:"mtime"`
	Size     int64     `json:"size"`
	Selected bool      `json:"selected"`
}

// ScanReport lists the track files on a mass-storage device and which of
// them an import with the given options would send.
type ScanReport struct {
	Mount    string      `json:"mount"`
	Filter   string      `json:"filter"`
	Total    int         `json:"total"`
	Selected int         `json:"selected"`
	Entries  []ScanEntry `json:"entries"`
}

// BuildScan scans the track directory of p under mount and applies opts.
func BuildScan(mount string, p transfer.Profile, opts tracks.Options, now time.Time) (*ScanReport, error) {
	dir := filepath.Join(mount, filepath.FromSlash(p.TrackDir))
	all, err := tracks.Scan(dir, p.Ext)
	if err != nil {
		return nil, err
	}
	selected, err := tracks.Apply(all, opts, now)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(selected))
	for _, c := range selected {
		keep[c.Path] = true
	}

	r := &ScanReport{
		Mount:    mount,
		Filter:   DescribeOptions(opts),
		Total:    len(all),
		Selected: len(selected),
		Entries:  make([]ScanEntry, 0, len(all)),
	}
	for _, c := range all {
		rel, err := filepath.Rel(dir, c.Path)
		if err != nil {
			rel = c.Path
		}
		r.Entries = append(r.Entries, ScanEntry{
			Path:     c.Path,
			Rel:      filepath.ToSlash(rel),
			ModTime:  c.ModTime,
			Size:     c.Size,
			Selected: keep[c.Path],
		})
	}
	return r, nil
}

// DescribeOptions renders opts the way the extension's options page
// phrases them.
func DescribeOptions(opts tracks.Options) string {
	desc := "all files"
	switch opts.Method {
	case tracks.MethodRecent:
		if opts.RecentSel != nil {
			first := 1
			if opts.RecentSelFirst != nil {
				first = *opts.RecentSelFirst
			}
			if first > 1 {
				desc = fmt.Sprintf("most recent files %d through %d", first, *opts.RecentSel)
			} else {
				desc = fmt.Sprintf("%d most recent files", *opts.RecentSel)
			}
		}
	case tracks.MethodTime:
		if opts.TimeSel != nil {
			desc = fmt.Sprintf("files modified in the last %g hours", *opts.TimeSel)
		}
	}
	if opts.Size && opts.SizeSel != "" {
		desc += ", smaller than " + opts.SizeSel
	}
	return desc
}

// HistoryReport holds recent journal entries.
type HistoryReport struct {
	Total       int64            `json:"total"`
	DBSizeBytes int64            `json:"db_size_bytes"`
	Transfers   []store.Transfer `json:"transfers"`
}

// GenerateHistory reads the journal at dbPath.
func GenerateHistory(dbPath string, limit int) (*HistoryReport, error) {
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	return GenerateHistoryFromStore(s, limit)
}

// GenerateHistoryFromStore reads recent transfers from an open store.
func GenerateHistoryFromStore(s *store.Store, limit int) (*HistoryReport, error) {
	total, err := s.TransferCount()
	if err != nil {
		return nil, fmt.Errorf("count transfers: %w", err)
	}
	size, err := s.DBSizeBytes()
	if err != nil {
		return nil, fmt.Errorf("db size: %w", err)
	}
	rows, err := s.RecentTransfers(limit)
	if err != nil {
		return nil, err
	}
	return &HistoryReport{Total: total, DBSizeBytes: size, Transfers: rows}, nil
}
