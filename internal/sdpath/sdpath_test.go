package sdpath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhysicalURIRoundTrip(t *testing.T) {
	p := Physical("device-a", "/home/alice/Documents/report.pdf")

	parsed, err := FromURI(p.ToURI())
	require.NoError(t, err)
	require.Equal(t, p, parsed)
	require.Equal(t, KindPhysical, parsed.Kind())
}

func TestCloudURIRoundTrip(t *testing.T) {
	p := Cloud("device-a", "dropbox", "/Photos/2024/beach.jpg")

	parsed, err := FromURI(p.ToURI())
	require.NoError(t, err)
	require.Equal(t, p, parsed)
	require.Equal(t, "dropbox", parsed.Provider())
}

func TestContentURIRoundTrip(t *testing.T) {
	p := Content("3f29a9c4-3b1a-4e2e-8b0a-1f6b9a2c9d10")

	parsed, err := FromURI(p.ToURI())
	require.NoError(t, err)
	require.Equal(t, p, parsed)
	require.Equal(t, KindContent, parsed.Kind())
}

func TestFromURIRejectsUnknownScheme(t *testing.T) {
	_, err := FromURI("http://physical/device-a/home")
	require.Error(t, err)
}

func TestFromURIRejectsUnknownVariant(t *testing.T) {
	_, err := FromURI("sd://ghost/device-a/home")
	require.Error(t, err)
}

func TestFromURIRejectsMissingDeviceSegment(t *testing.T) {
	_, err := FromURI("sd://physical/")
	require.Error(t, err)
}

func TestIsZero(t *testing.T) {
	var p SdPath
	require.True(t, p.IsZero())
	require.False(t, Physical("d", "/x").IsZero())
}
