package sdcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	err := NonCritical("indexer.process", "/tmp/broken-symlink", errors.New("no such file"))

	require.True(t, Is(err, KindNonCritical))
	require.False(t, Is(err, KindFatal))
}

func TestIsFalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), KindFatal))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Fatal("store.insert", "entry-123", cause)

	require.ErrorIs(t, err, cause)
}

func TestErrorMessageIncludesSubject(t *testing.T) {
	err := Validation("location.add", "not-a-uuid", fmt.Errorf("malformed"))
	require.Contains(t, err.Error(), "not-a-uuid")
	require.Contains(t, err.Error(), "validation")
}
