package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gpsio/gpsio-host/internal/store"
	"github.com/gpsio/gpsio-host/internal/tracks"
	"github.com/gpsio/gpsio-host/internal/transfer"
)

var baseTime = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

// setupVolume creates a device volume with three GPX files, one, two and
// three days old, of 1, 2 and 3 KiB.
func setupVolume(t *testing.T) string {
	t.Helper()
	vol := t.TempDir()
	gpx := filepath.Join(vol, "Garmin", "GPX")
	if err := os.MkdirAll(filepath.Join(gpx, "Archive"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := []string{"Current.gpx", "Track_Ridge.gpx", "Archive/Old.gpx"}
	for i, name := range files {
		path := filepath.Join(gpx, filepath.FromSlash(name))
		if err := os.WriteFile(path, make([]byte, 1024*(i+1)), 0o644); err != nil {
			t.Fatal(err)
		}
		mtime := baseTime.Add(-time.Duration(i+1) * 24 * time.Hour)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	return vol
}

func TestBuildScan(t *testing.T) {
	vol := setupVolume(t)
	n := 2
	opts := tracks.Options{Method: tracks.MethodRecent, RecentSel: &n, Size: true, SizeSel: "1.5kb"}

	r, err := BuildScan(vol, transfer.Garmin, opts, baseTime)
	if err != nil {
		t.Fatalf("BuildScan: %v", err)
	}
	if r.Total != 3 || r.Selected != 1 {
		t.Fatalf("total/selected = %d/%d, want 3/1", r.Total, r.Selected)
	}
	want := []struct {
		rel      string
		selected bool
	}{
		{"Current.gpx", true},
		{"Track_Ridge.gpx", false},
		{"Archive/Old.gpx", false},
	}
	for i, w := range want {
		e := r.Entries[i]
		if e.Rel != w.rel || e.Selected != w.selected {
			t.Errorf("entry %d = %s selected=%v, want %s selected=%v", i, e.Rel, e.Selected, w.rel, w.selected)
		}
	}
	if r.Filter != "2 most recent files, smaller than 1.5kb" {
		t.Errorf("filter = %q", r.Filter)
	}
}

func TestBuildScanBadSize(t *testing.T) {
	vol := setupVolume(t)
	_, err := BuildScan(vol, transfer.Garmin, tracks.Options{Size: true, SizeSel: "1e9"}, baseTime)
	if err == nil {
		t.Fatal("expected error for unparseable size")
	}
}

func TestDescribeOptions(t *testing.T) {
	n, m, h := 5, 2, 72.0
	cases := []struct {
		opts tracks.Options
		want string
	}{
		{tracks.Options{}, "all files"},
		{tracks.Options{Method: tracks.MethodRecent, RecentSel: &n, RecentSelFirst: &m}, "most recent files 2 through 5"},
		{tracks.Options{Method: tracks.MethodTime, TimeSel: &h}, "files modified in the last 72 hours"},
		{tracks.Options{Method: tracks.MethodUnknown, Size: true, SizeSel: "10MB"}, "all files, smaller than 10MB"},
	}
	for _, tc := range cases {
		if got := DescribeOptions(tc.opts); got != tc.want {
			t.Errorf("DescribeOptions(%+v) = %q, want %q", tc.opts, got, tc.want)
		}
	}
}

func TestFormatScan(t *testing.T) {
	vol := setupVolume(t)
	r, err := BuildScan(vol, transfer.Garmin, tracks.Options{}, baseTime)
	if err != nil {
		t.Fatal(err)
	}

	out := FormatScan(r, baseTime, Style{})
	for _, want := range []string{"Selected: 3 of 3 GPX file(s)", "* Current.gpx", "1 day ago", "3.0 KiB", "6.0 KiB selected"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("plain style must not emit escape codes")
	}
	if !strings.Contains(FormatScan(r, baseTime, Style{Color: true}), green) {
		t.Error("color style should highlight selected files")
	}
}

func TestGenerateHistoryAndFormat(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	rows := []store.Transfer{
		{Cmd: "import", Target: "garmin", Strategy: "mass-storage", Outcome: "ok",
			TotalFiles: 9, SelectedFiles: 2, ResponseBytes: 2048, CreatedAt: baseTime.Add(-2 * time.Hour)},
		{Cmd: "export", Target: "garmin", Strategy: "converter", Outcome: "error-no-device",
			Message: "no GPS was found", CreatedAt: baseTime.Add(-time.Hour)},
	}
	for _, row := range rows {
		if _, err := s.InsertTransfer(row); err != nil {
			t.Fatal(err)
		}
	}
	s.Close()

	r, err := GenerateHistory(dbPath, 10)
	if err != nil {
		t.Fatalf("GenerateHistory: %v", err)
	}
	if r.Total != 2 || len(r.Transfers) != 2 {
		t.Fatalf("total = %d, rows = %d", r.Total, len(r.Transfers))
	}
	if r.Transfers[0].Cmd != "export" {
		t.Errorf("newest first, got %s", r.Transfers[0].Cmd)
	}

	out := FormatHistory(r, baseTime, Style{})
	for _, want := range []string{"Transfers:   2", "1 hour ago", "error-no-device", "no GPS was found", "2/9", "2.0 KiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	var decoded HistoryReport
	if err := json.Unmarshal([]byte(FormatJSON(r)), &decoded); err != nil {
		t.Fatalf("FormatJSON output is not JSON: %v", err)
	}
	if decoded.Total != 2 {
		t.Errorf("decoded total = %d", decoded.Total)
	}
}

func TestFormatHistoryEmpty(t *testing.T) {
	out := FormatHistory(&HistoryReport{}, baseTime, Style{})
	if !strings.Contains(out, "No transfers recorded.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
