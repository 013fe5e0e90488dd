package wire

// StateChangePayload carries one state-based upsert of a device-owned
// resource (Device, Volume, Location, Entry). ModelName/RecordID/Data
// mirror model.SyncLogEntry's shape so the same apply path can service
// both state- and log-based mutations. UpdatedAtMS/DeviceID are the LWW
// tiebreak fields compared against the local row before applying.
type StateChangePayload struct {
	ModelName   string `msgpack:"model_name"`
	RecordID    string `msgpack:"record_id"`
	Data        []byte `msgpack:"data"` // msgpack-encoded row snapshot
	UpdatedAtMS int64  `msgpack:"updated_at_ms"`
	DeviceID    string `msgpack:"device_id"` // LWW tiebreak
	Deleted     bool   `msgpack:"deleted"`
}

// LogEntryWire is the wire form of model.SyncLogEntry: the HLC components
// are carried flat rather than as a nested hlc.Timestamp so the wire
// package has no import dependency on internal/hlc.
type LogEntryWire struct {
	HLCPhysicalMS int64  `msgpack:"hlc_physical_ms"`
	HLCCounter    uint32 `msgpack:"hlc_counter"`
	HLCDeviceID   string `msgpack:"hlc_device_id"`
	ChangeType    string `msgpack:"change_type"`
	ModelName     string `msgpack:"model_name"`
	RecordID      string `msgpack:"record_id"`
	Data          []byte `msgpack:"data"`
}

// LogEntriesPayload batches one or more append-only log mutations, sent
// either as a live push (Ready devices) or as part of a BackfillBatch
// response for a log-synced model.
type LogEntriesPayload struct {
	Entries []LogEntryWire `msgpack:"entries"`
}

// BackfillRequestPayload asks a peer for every row of Model created at or
// after Cursor, in dependency order (devices, volumes, locations, entries,
// content identities, sidecars). An empty Cursor requests from the start.
type BackfillRequestPayload struct {
	Model  string `msgpack:"model"`
	Cursor string `msgpack:"cursor"` // opaque resume cursor, e.g. "updated_at_ms.uuid"
}

// BackfillBatchPayload answers a BackfillRequest with one page of rows.
// NextCursor is empty once Model is fully drained.
type BackfillBatchPayload struct {
	Model      string   `msgpack:"model"`
	Rows       [][]byte `msgpack:"rows"` // each a msgpack-encoded row snapshot
	NextCursor string   `msgpack:"next_cursor"`
}

// PairingRequestPayload opens a pairing handshake: the initiating device
// presents its long-term public key and a freshly generated challenge for
// the peer to sign, proving possession of its own private key.
type PairingRequestPayload struct {
	DeviceID     string `msgpack:"device_id"`
	Slug         string `msgpack:"slug"`
	Platform     string `msgpack:"platform"`
	PublicKeyHex string `msgpack:"public_key_hex"` // Ed25519 public key, hex-encoded
	ChallengeHex string `msgpack:"challenge_hex"`  // random nonce for the peer to sign
}

// PairingResponsePayload answers a PairingRequest: the responder signs the
// initiator's challenge and issues its own challenge in turn, both wrapped
// in a golang-jwt/jwt/v5 claim set so the signature carries standard exp/iat
// claims alongside the Ed25519 signature over the challenge.
type PairingResponsePayload struct {
	DeviceID     string `msgpack:"device_id"`
	Slug         string `msgpack:"slug"`
	Platform     string `msgpack:"platform"`
	PublicKeyHex string `msgpack:"public_key_hex"`
	SignatureJWT string `msgpack:"signature_jwt"` // signs the initiator's challenge
	ChallengeHex string `msgpack:"challenge_hex"` // responder's own challenge, for mutual auth
}

// CompletePayload closes a handshake or a backfill/log exchange. Success
// false with a non-empty Reason aborts the exchange (e.g. signature
// mismatch during pairing).
type CompletePayload struct {
	Success bool   `msgpack:"success"`
	Reason  string `msgpack:"reason"`
}

// HeartbeatPayload is sent periodically on an idle connection to detect a
// dead peer faster than TCP's own keepalive, and carries the sender's
// current device-state-machine phase so the receiving side's
// BackfillCoordinator can re-score this peer without a separate query.
type HeartbeatPayload struct {
	DeviceState string `msgpack:"device_state"`
	SentAtMS    int64  `msgpack:"sent_at_ms"`
}
