//go:build !windows && !darwin

package device

import (
	"os"
	"os/user"
	"path/filepath"
)

// Platform returns the enumerator over the usual removable-media mount
// points: /media/$USER, /run/media/$USER (udisks), /media and /mnt.
func Platform() VolumeEnumerator {
	var roots []string
	if name := currentUser(); name != "" {
		roots = append(roots,
			filepath.Join("/media", name),
			filepath.Join("/run/media", name),
		)
	}
	roots = append(roots, "/media", "/mnt")
	return MountRoots{Roots: roots}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
