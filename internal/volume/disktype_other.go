//go:build !linux

package volume

import "github.com/spacedriveapp/sdcore/internal/model"

// classifyDiskType has no portable SSD/HDD signal on darwin or windows
// through any library in the dependency pack; spec.md accepts Unknown as
// the fallback for this one attribute on those platforms.
func classifyDiskType(_ string) model.DiskType {
	return model.DiskTypeUnknown
}
