//go:build linux

package volume

import (
	"os"
	"strconv"
	"strings"

	"github.com/spacedriveapp/sdcore/internal/model"
)

// classifyDiskType reads /sys/block/<dev>/queue/rotational: "0" for SSD/NVMe,
// "1" for spinning disks. No pack library wraps this narrow a syscall —
// gopsutil's disk package stops at partitions/usage — so this is a direct
// stdlib file read, justified in DESIGN.md.
func classifyDiskType(devicePath string) model.DiskType {
	dev := baseBlockDevice(devicePath)
	if dev == "" {
		return model.DiskTypeUnknown
	}

	data, err := os.ReadFile("/sys/block/" + dev + "/queue/rotational")
	if err != nil {
		return model.DiskTypeUnknown
	}

	switch strings.TrimSpace(string(data)) {
	case "0":
		return model.DiskTypeSSD
	case "1":
		return model.DiskTypeHDD
	default:
		return model.DiskTypeUnknown
	}
}

// baseBlockDevice strips a partition number and /dev prefix from a device
// path, e.g. "/dev/sda1" -> "sda", "/dev/nvme0n1p2" -> "nvme0n1".
func baseBlockDevice(devicePath string) string {
	name := strings.TrimPrefix(devicePath, "/dev/")
	if name == devicePath || name == "" {
		return ""
	}

	if strings.HasPrefix(name, "nvme") {
		if idx := strings.Index(name, "p"); idx > 0 && isAllDigits(name[idx+1:]) {
			return name[:idx]
		}

		return name
	}

	// sdX, vdX, hdX: trim trailing digits.
	end := len(name)
	for end > 0 && name[end-1] >= '0' && name[end-1] <= '9' {
		end--
	}

	return name[:end]
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}

	_, err := strconv.Atoi(s)

	return err == nil
}
