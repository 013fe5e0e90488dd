//go:build !linux

package action

import "os"

// sameDevice has no portable stat-device-number comparison outside the
// syscall.Stat_t layout Linux/most POSIX systems share; darwin actually
// has it too, but this engine only special-cases Linux for reflink, so a
// conservative "never the same device" keeps FileCopy on the safe
// streamed-copy path elsewhere.
func sameDevice(_, _ os.FileInfo) (bool, error) {
	return false, nil
}

// tryReflink has no portable copy-on-write clone outside Linux's FICLONE
// ioctl in this dependency pack; always falls back to streamCopy.
func tryReflink(_, _ string) error {
	return errReflinkUnsupported
}

var errReflinkUnsupported = os.ErrInvalid
