//go:build darwin

package device

// Platform returns the enumerator over /Volumes.
func Platform() VolumeEnumerator {
	return MountRoots{Roots: []string{"/Volumes"}}
}
