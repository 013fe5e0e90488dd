package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateDevice_CreatesOnFirstRun(t *testing.T) {
	dataDir := t.TempDir()

	dev, err := loadOrCreateDevice(dataDir)
	require.NoError(t, err)
	assert.NotEmpty(t, dev.ID)
	assert.NotEmpty(t, dev.Slug)
	assert.NotEmpty(t, dev.Platform)
	assert.False(t, dev.Paired)
	assert.Positive(t, dev.CreatedAt)
}

func TestLoadOrCreateDevice_PersistsAcrossCalls(t *testing.T) {
	dataDir := t.TempDir()

	first, err := loadOrCreateDevice(dataDir)
	require.NoError(t, err)

	second, err := loadOrCreateDevice(dataDir)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Slug, second.Slug)
}

func TestTouchDevice_UpdatesLastSeenAt(t *testing.T) {
	dataDir := t.TempDir()

	dev, err := loadOrCreateDevice(dataDir)
	require.NoError(t, err)

	original := dev.LastSeenAt
	dev.LastSeenAt = 1

	require.NoError(t, touchDevice(dataDir, dev))

	reloaded, err := loadOrCreateDevice(dataDir)
	require.NoError(t, err)
	assert.NotEqual(t, original, reloaded.LastSeenAt)
	assert.Equal(t, dev.LastSeenAt, reloaded.LastSeenAt)
}

func TestReadDeviceFile_MissingReturnsNilNil(t *testing.T) {
	dev, err := readDeviceFile(filepath.Join(t.TempDir(), "device.json"))
	require.NoError(t, err)
	assert.Nil(t, dev)
}
