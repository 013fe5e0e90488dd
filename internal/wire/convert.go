package wire

import "github.com/spacedriveapp/sdcore/internal/model"

// FromLogEntry converts a stored log entry to its wire form.
func FromLogEntry(e model.SyncLogEntry) LogEntryWire {
	return LogEntryWire{
		HLCPhysicalMS: e.HLCPhysicalMS,
		HLCCounter:    e.HLCCounter,
		HLCDeviceID:   e.HLCDeviceID,
		ChangeType:    string(e.ChangeType),
		ModelName:     e.ModelName,
		RecordID:      e.RecordID,
		Data:          e.Data,
	}
}

// ToLogEntry converts a wire log entry back to the store's shape. ID and
// CreatedAt are left zero; the receiving store assigns them on insert.
func ToLogEntry(w LogEntryWire) model.SyncLogEntry {
	return model.SyncLogEntry{
		HLCPhysicalMS: w.HLCPhysicalMS,
		HLCCounter:    w.HLCCounter,
		HLCDeviceID:   w.HLCDeviceID,
		ChangeType:    model.ChangeType(w.ChangeType),
		ModelName:     w.ModelName,
		RecordID:      w.RecordID,
		Data:          w.Data,
	}
}
