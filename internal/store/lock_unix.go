//go:build !windows

package store

import "golang.org/x/sys/unix"

// processAlive reports whether pid still exists, via a signal-0 probe.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM
}
