// Package device locates a GPS unit that is mounted as a mass-storage
// volume, identified by a marker file at a fixed path under its root.
package device

import (
	"os"
	"path/filepath"
)

// VolumeEnumerator lists the mount points that may hold a device.
type VolumeEnumerator interface {
	Volumes() ([]string, error)
}

// Watchable is implemented by enumerators whose volumes appear as entries
// of a few parent directories that can be watched for changes.
type Watchable interface {
	WatchRoots() []string
}

// FindMassStorage returns the first volume containing marker (a path
// relative to the volume root). Not finding one is not an error.
func FindMassStorage(enum VolumeEnumerator, marker string) (string, bool) {
	volumes, err := enum.Volumes()
	if err != nil {
		return "", false
	}
	for _, vol := range volumes {
		if isFile(filepath.Join(vol, filepath.FromSlash(marker))) {
			return vol, true
		}
	}
	return "", false
}

// MountRoots enumerates each root directory and its immediate
// subdirectories, e.g. "/Volumes" yields "/Volumes", "/Volumes/GARMIN", ...
type MountRoots struct {
	Roots []string
}

// Volumes implements VolumeEnumerator. Missing roots are skipped.
func (m MountRoots) Volumes() ([]string, error) {
	var out []string
	for _, root := range m.Roots {
		if !isDir(root) {
			continue
		}
		out = append(out, root)

		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			path := filepath.Join(root, e.Name())
			if e.IsDir() || isDir(path) { // mounts may show up as symlinks
				out = append(out, path)
			}
		}
	}
	return out, nil
}

// WatchRoots implements Watchable.
func (m MountRoots) WatchRoots() []string {
	var out []string
	for _, root := range m.Roots {
		if isDir(root) {
			out = append(out, root)
		}
	}
	return out
}

// ForRoots returns an enumerator over the configured roots, or the platform
// default when none are configured.
func ForRoots(roots []string) VolumeEnumerator {
	if len(roots) > 0 {
		return MountRoots{Roots: roots}
	}
	return Platform()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
