//go:build !windows

package store

import "os"

// replaceFile relies on rename being atomic within one filesystem.
func replaceFile(tmpPath, finalPath string) error {
	return os.Rename(tmpPath, finalPath)
}
