//go:build !windows

package indexer

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number from os.FileInfo on POSIX systems,
// mirroring the teacher's platform-specific syscall pattern in
// internal/sync/safety_linux.go/safety_darwin.go.
func inodeOf(info os.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}

	return uint64(stat.Ino), true //nolint:gosec // kernel guarantees non-negative
}
