package tracks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrack(t *testing.T, path string, size int, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestScanFindsTracksRecursively(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Garmin", "GPX")
	base := time.Now().Add(-24 * time.Hour).Truncate(time.Second)

	writeTrack(t, filepath.Join(root, "Waypoints_01-JUN-24.gpx"), 10, base.Add(3*time.Hour))
	writeTrack(t, filepath.Join(root, "Archive", "old.GPX"), 20, base)
	writeTrack(t, filepath.Join(root, "Current", "Current.Gpx"), 30, base.Add(5*time.Hour))
	writeTrack(t, filepath.Join(root, "._Current.gpx"), 40, base.Add(9*time.Hour))
	writeTrack(t, filepath.Join(root, "notes.txt"), 50, base.Add(9*time.Hour))
	writeTrack(t, filepath.Join(root, "route.gpx.bak"), 50, base.Add(9*time.Hour))

	got, err := Scan(root, ".gpx")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, filepath.Join(root, "Current", "Current.Gpx"), got[0].Path)
	assert.Equal(t, filepath.Join(root, "Waypoints_01-JUN-24.gpx"), got[1].Path)
	assert.Equal(t, filepath.Join(root, "Archive", "old.GPX"), got[2].Path)

	assert.Equal(t, int64(30), got[0].Size)
	assert.True(t, got[0].ModTime.Equal(base.Add(5*time.Hour)))
}

func TestScanMissingRoot(t *testing.T) {
	got, err := Scan(filepath.Join(t.TempDir(), "nope"), ".gpx")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSortRecentFirstTieBreak(t *testing.T) {
	ts := time.Now()
	c := []Candidate{
		{Path: "b.gpx", ModTime: ts},
		{Path: "a.gpx", ModTime: ts},
		{Path: "c.gpx", ModTime: ts.Add(time.Second)},
	}
	SortRecentFirst(c)
	assert.Equal(t, []string{"c.gpx", "a.gpx", "b.gpx"}, Paths(c))
}

func TestIgnoreCustomPatterns(t *testing.T) {
	ig := NewIgnore([]string{"Track_*", ".*"})

	cases := []struct {
		path string
		want bool
	}{
		{"/v/Garmin/GPX/.hidden.gpx", true},
		{"/v/Garmin/GPX/Track_Morning.gpx", true},
		{"/v/Garmin/GPX/Route_2024.gpx", false},
		{"/v/.Trashes/Route_2024.gpx", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ig.ShouldIgnore(tc.path), tc.path)
	}
	assert.Len(t, ig.patterns, 2)
}
