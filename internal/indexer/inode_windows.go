//go:build windows

package indexer

import "os"

// inodeOf has no portable equivalent on Windows; Entry identity there
// relies on model.Entry.PathHash alone, same as every platform.
func inodeOf(info os.FileInfo) (uint64, bool) {
	return 0, false
}
