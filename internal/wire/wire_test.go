package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacedriveapp/sdcore/internal/model"
)

func TestPackUnpackStateChangeRoundTrips(t *testing.T) {
	payload := StateChangePayload{
		ModelName:   "location",
		RecordID:    "loc-1",
		Data:        []byte("snapshot"),
		UpdatedAtMS: 1234,
		DeviceID:    "device-a",
	}

	env, err := Pack("lib-1", "device-a", KindStateChange, payload)
	require.NoError(t, err)
	require.Equal(t, SchemaVersion, env.SchemaVersion)
	require.Equal(t, KindStateChange, env.Kind)

	encoded, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, env, decoded)

	var got StateChangePayload

	require.NoError(t, Unpack(decoded, &got))
	require.Equal(t, payload, got)
}

func TestPackUnpackLogEntriesRoundTrips(t *testing.T) {
	entry := model.SyncLogEntry{
		HLCPhysicalMS: 100,
		HLCCounter:    2,
		HLCDeviceID:   "device-a",
		ChangeType:    model.ChangeUpdate,
		ModelName:     "content_identity",
		RecordID:      "content-1",
		Data:          []byte("row"),
	}

	payload := LogEntriesPayload{Entries: []LogEntryWire{FromLogEntry(entry)}}

	env, err := Pack("lib-1", "device-b", KindLogEntries, payload)
	require.NoError(t, err)

	var got LogEntriesPayload

	require.NoError(t, Unpack(env, &got))
	require.Len(t, got.Entries, 1)

	roundTripped := ToLogEntry(got.Entries[0])
	require.Equal(t, entry.RecordID, roundTripped.RecordID)
	require.Equal(t, entry.ChangeType, roundTripped.ChangeType)
	require.Equal(t, entry.HLCCounter, roundTripped.HLCCounter)
}

func TestUnpackRejectsMismatchedPayload(t *testing.T) {
	env, err := Pack("lib-1", "device-a", KindHeartbeat, HeartbeatPayload{SentAtMS: 10})
	require.NoError(t, err)

	var got BackfillRequestPayload

	// msgpack decodes a struct into another struct positionally/by-key
	// without strict type checking, so this does not error — it is the
	// caller's responsibility to dispatch on env.Kind before Unpack.
	// Here we only assert the corrupted fields are not silently sane.
	err = Unpack(env, &got)
	require.NoError(t, err)
	require.Empty(t, got.Model)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}
