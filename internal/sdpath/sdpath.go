// Package sdpath implements SdPath, the universal path scheme from
// spec.md §3: a value that addresses a file by (device, path),
// (cloud provider, path), or (content-hash). Go has no native sum type, so
// SdPath is modeled as a single struct carrying a Kind discriminant plus
// the fields relevant to that kind — the same shape the teacher uses to
// compose identity types in internal/driveid (e.g. ItemKey pairing
// DriveID + ItemID), extended here to three variants instead of two.
package sdpath

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind discriminates the SdPath variant.
type Kind string

// SdPath variants per spec.md §3.
const (
	KindPhysical Kind = "physical"
	KindCloud    Kind = "cloud"
	KindContent  Kind = "content"
)

// SdPath is the universal path value. The zero value is invalid; construct
// with Physical, Cloud, or Content.
type SdPath struct {
	kind       Kind
	deviceID   string
	path       string
	provider   string
	contentID  string
}

// Physical constructs a Physical{device_id, path} SdPath.
func Physical(deviceID, path string) SdPath {
	return SdPath{kind: KindPhysical, deviceID: deviceID, path: path}
}

// Cloud constructs a Cloud{device_id, provider, path} SdPath.
func Cloud(deviceID, provider, path string) SdPath {
	return SdPath{kind: KindCloud, deviceID: deviceID, provider: provider, path: path}
}

// Content constructs a Content{content_id} SdPath.
func Content(contentID string) SdPath {
	return SdPath{kind: KindContent, contentID: contentID}
}

// Kind reports which variant p is.
func (p SdPath) Kind() Kind { return p.kind }

// DeviceID returns the device component. Valid for Physical and Cloud.
func (p SdPath) DeviceID() string { return p.deviceID }

// Path returns the filesystem or cloud object path. Valid for Physical and
// Cloud.
func (p SdPath) Path() string { return p.path }

// Provider returns the cloud provider name. Valid for Cloud only.
func (p SdPath) Provider() string { return p.provider }

// ContentID returns the content identity UUID. Valid for Content only.
func (p SdPath) ContentID() string { return p.contentID }

// IsZero reports whether p is the uninitialized zero value.
func (p SdPath) IsZero() bool { return p.kind == "" }

// ToURI renders p as a canonical "sd://" URI. The inverse of FromURI, so
// that FromURI(p.ToURI()) == p for all well-formed p (spec.md §8 SdPath
// round-trip invariant).
func (p SdPath) ToURI() string {
	switch p.kind {
	case KindPhysical:
		return fmt.Sprintf("sd://physical/%s%s", p.deviceID, ensureLeadingSlash(p.path))
	case KindCloud:
		return fmt.Sprintf("sd://cloud/%s/%s%s", p.deviceID, p.provider, ensureLeadingSlash(p.path))
	case KindContent:
		return fmt.Sprintf("sd://content/%s", p.contentID)
	default:
		return ""
	}
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}

	return "/" + p
}

// FromURI parses the ToURI() form back into an SdPath.
func FromURI(uri string) (SdPath, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return SdPath{}, fmt.Errorf("sdpath: parsing %q: %w", uri, err)
	}

	if u.Scheme != "sd" {
		return SdPath{}, fmt.Errorf("sdpath: %q: unsupported scheme %q", uri, u.Scheme)
	}

	switch u.Host {
	case string(KindPhysical):
		deviceID, path, err := splitDeviceAndPath(u.Path)
		if err != nil {
			return SdPath{}, fmt.Errorf("sdpath: %q: %w", uri, err)
		}

		return Physical(deviceID, path), nil
	case string(KindCloud):
		deviceID, rest, err := splitDeviceAndPath(u.Path)
		if err != nil {
			return SdPath{}, fmt.Errorf("sdpath: %q: %w", uri, err)
		}

		provider, path, found := strings.Cut(rest, "/")
		if !found {
			return SdPath{}, fmt.Errorf("sdpath: %q: missing cloud provider segment", uri)
		}

		return Cloud(deviceID, provider, "/"+path), nil
	case string(KindContent):
		contentID := strings.TrimPrefix(u.Path, "/")
		if contentID == "" {
			return SdPath{}, fmt.Errorf("sdpath: %q: missing content id", uri)
		}

		return Content(contentID), nil
	default:
		return SdPath{}, fmt.Errorf("sdpath: %q: unknown variant %q", uri, u.Host)
	}
}

// splitDeviceAndPath splits "/<device_id>/<rest...>" into device_id and
// "/<rest...>".
func splitDeviceAndPath(urlPath string) (deviceID, path string, err error) {
	trimmed := strings.TrimPrefix(urlPath, "/")

	deviceID, rest, found := strings.Cut(trimmed, "/")
	if !found || deviceID == "" {
		return "", "", fmt.Errorf("missing device id segment in %q", urlPath)
	}

	return deviceID, "/" + rest, nil
}

// String implements fmt.Stringer via ToURI, for log messages.
func (p SdPath) String() string { return p.ToURI() }
