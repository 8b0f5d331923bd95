//go:build windows

package device

// DriveLetters enumerates lettered drive roots.
type DriveLetters struct {
	First, Last byte
}

// Volumes implements VolumeEnumerator.
func (d DriveLetters) Volumes() ([]string, error) {
	var out []string
	for c := d.First; c <= d.Last; c++ {
		root := string([]byte{c, ':', '\\'})
		if isDir(root) {
			out = append(out, root)
		}
	}
	return out, nil
}

// Platform returns the drive letters C: through Z:.
func Platform() VolumeEnumerator {
	return DriveLetters{First: 'C', Last: 'Z'}
}
