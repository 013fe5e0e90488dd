package volume

import (
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/spacedriveapp/sdcore/internal/model"
)

// networkFilesystems are reported by gopsutil's Fstype field for
// remote-mounted shares.
var networkFilesystems = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true,
	"smb3": true, "afpfs": true, "fuse.sshfs": true,
}

// virtualFilesystems never back real user data; they're pseudo-filesystems
// the kernel synthesizes.
var virtualFilesystems = map[string]bool{
	"tmpfs": true, "devtmpfs": true, "proc": true, "sysfs": true,
	"devpts": true, "cgroup": true, "cgroup2": true, "overlay": true,
	"squashfs": true, "autofs": true, "debugfs": true, "tracefs": true,
	"securityfs": true, "pstore": true, "mqueue": true, "hugetlbfs": true,
}

// classifyMountType heuristically buckets a partition by how it's
// attached. Best-effort: gopsutil exposes fstype and mount options, not an
// authoritative "this is external media" flag on every platform.
func classifyMountType(p disk.PartitionStat) model.MountType {
	fstype := strings.ToLower(p.Fstype)

	switch {
	case networkFilesystems[fstype]:
		return model.MountTypeNetwork
	case virtualFilesystems[fstype]:
		return model.MountTypeVirtual
	case p.Mountpoint == "/" || strings.HasPrefix(p.Mountpoint, "/boot") ||
		strings.EqualFold(p.Mountpoint, `C:\`):
		return model.MountTypeSystem
	default:
		return model.MountTypeExternal
	}
}

// classifyVolumeType maps the same heuristics to spec.md's VolumeType.
// Cloud volumes are never produced by Detect — they're registered
// explicitly when a cloud-backed Location is added (sdpath.KindCloud) —
// so this only ever returns Primary, External, or Virtual.
func classifyVolumeType(p disk.PartitionStat) model.VolumeType {
	switch classifyMountType(p) {
	case model.MountTypeVirtual:
		return model.VolumeTypeVirtual
	case model.MountTypeSystem:
		return model.VolumeTypePrimary
	default:
		return model.VolumeTypeExternal
	}
}
