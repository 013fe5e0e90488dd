package indexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentIdentityIDIsDeterministic(t *testing.T) {
	hash := "blake3:abc123"

	require.Equal(t, contentIdentityID(hash), contentIdentityID(hash))
}

func TestContentIdentityIDDiffersForDifferentHashes(t *testing.T) {
	require.NotEqual(t, contentIdentityID("blake3:abc123"), contentIdentityID("blake3:def456"))
}
