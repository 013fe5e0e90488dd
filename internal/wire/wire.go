// Package wire defines the on-the-wire envelope and message kinds exchanged
// between paired devices over internal/transport. Every message carries
// (library_id, sender_device_id, message_kind, payload) per spec.md §6;
// payloads are serialized with msgpack, the self-describing binary format
// the canonical-lxd and openshift-kni-oran-o2ims examples use for the same
// job. SchemaVersion lets a future field addition be detected by an older
// peer instead of silently misparsed.
package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// SchemaVersion is the current envelope wire format version.
const SchemaVersion = 1

// Kind identifies the payload carried by an Envelope.
type Kind string

// Message kinds, per spec.md §6.
const (
	KindStateChange     Kind = "state_change"
	KindLogEntries      Kind = "log_entries"
	KindBackfillRequest Kind = "backfill_request"
	KindBackfillBatch   Kind = "backfill_batch"
	KindPairingRequest  Kind = "pairing_request"
	KindPairingResponse Kind = "pairing_response"
	KindComplete        Kind = "complete"
	KindHeartbeat       Kind = "heartbeat"
)

// Envelope is the outermost frame of every message passed over a peer
// connection. Payload is the msgpack encoding of one of the Kind-specific
// payload structs in this package, chosen by Kind.
type Envelope struct {
	SchemaVersion  int    `msgpack:"schema_version"`
	LibraryID      string `msgpack:"library_id"`
	SenderDeviceID string `msgpack:"sender_device_id"`
	Kind           Kind   `msgpack:"message_kind"`
	Payload        []byte `msgpack:"payload"`
}

// Encode packs an Envelope for transmission.
func Encode(env Envelope) ([]byte, error) {
	b, err := msgpack.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}

	return b, nil
}

// Decode unpacks a transmitted Envelope.
func Decode(b []byte) (Envelope, error) {
	var env Envelope

	if err := msgpack.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}

	return env, nil
}

// Pack encodes payload with msgpack and wraps it in an Envelope of the
// given kind, stamped with the current SchemaVersion.
func Pack(libraryID, senderDeviceID string, kind Kind, payload any) (Envelope, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: encode %s payload: %w", kind, err)
	}

	return Envelope{
		SchemaVersion:  SchemaVersion,
		LibraryID:      libraryID,
		SenderDeviceID: senderDeviceID,
		Kind:           kind,
		Payload:        b,
	}, nil
}

// Unpack decodes an Envelope's Payload into dst, which must be a pointer
// to the payload struct matching env.Kind.
func Unpack(env Envelope, dst any) error {
	if err := msgpack.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("wire: decode %s payload: %w", env.Kind, err)
	}

	return nil
}
