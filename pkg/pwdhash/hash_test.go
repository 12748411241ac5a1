package pwdhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyV1(t *testing.T) {
	h := HashPassword("pw-abcdefgh")
	require.True(t, Verify("ignored-salt", "pw-abcdefgh", h))
	require.False(t, Verify("ignored-salt", "pw-wrong000", h))

	// Salts are random, so two hashes of the same password differ
	require.NotEqual(t, h, HashPassword("pw-abcdefgh"))
}

func TestVerifyLegacy(t *testing.T) {
	stored := LegacyHash("global-salt", "pw-abcdefgh")
	require.Len(t, stored, 64)
	require.True(t, Verify("global-salt", "pw-abcdefgh", stored))
	require.False(t, Verify("global-salt", "pw-wrong000", stored))
	require.False(t, Verify("other-salt", "pw-abcdefgh", stored))
}

func TestVerifyGarbage(t *testing.T) {
	require.False(t, Verify("salt", "password", ""))
	require.False(t, Verify("salt", "password", "not-a-hash"))
}
