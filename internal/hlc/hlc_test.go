package hlc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) NowFunc {
	return func() int64 { return ms }
}

func TestTickMonotonicSameDevice(t *testing.T) {
	c := New("device-a", fixedClock(1000))

	first := c.Tick()
	second := c.Tick()

	require.True(t, first.Before(second), "second tick must strictly exceed first")
}

func TestTickAdvancesWithWallClock(t *testing.T) {
	wall := int64(1000)
	c := New("device-a", func() int64 { return wall })

	first := c.Tick()
	wall = 2000
	second := c.Tick()

	require.Equal(t, int64(2000), second.PhysicalMS)
	require.Equal(t, uint32(0), second.Counter)
	require.True(t, first.Before(second))
}

func TestObserveAdvancesPastRemote(t *testing.T) {
	c := New("device-b", fixedClock(1000))

	remote := Timestamp{PhysicalMS: 5000, Counter: 3, DeviceID: "device-a"}
	c.Observe(remote)

	next := c.Tick()
	require.True(t, next.After(remote), "local clock must strictly exceed observed remote timestamp")
}

func TestCompareTiebreakByDeviceID(t *testing.T) {
	a := Timestamp{PhysicalMS: 1000, Counter: 0, DeviceID: "device-a"}
	b := Timestamp{PhysicalMS: 1000, Counter: 0, DeviceID: "device-b"}

	require.True(t, a.Before(b))
	require.True(t, b.After(a))
}

func TestParseRoundTrip(t *testing.T) {
	ts := Timestamp{PhysicalMS: 123456, Counter: 7, DeviceID: "dev-1"}

	parsed, err := Parse(ts.String())
	require.NoError(t, err)
	require.Equal(t, ts, parsed)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-timestamp")
	require.Error(t, err)
}
