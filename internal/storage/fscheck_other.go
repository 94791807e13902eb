//go:build !darwin && !linux

package storage

// detectFilesystemType cannot inspect mounts here; the path is assumed local.
func detectFilesystemType(path string) (string, error) {
	return "unknown", nil
}
