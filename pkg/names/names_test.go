package names

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	require.Equal(t, "alice1-hello", Canonical("alice1", "hello"))
	require.Equal(t, "u7x2k9-my-app", Canonical("u7x2k9", "my-app"))
}

func TestValidateProjectName(t *testing.T) {
	good := []string{"hello", "a", "my-app", "app-2-final", "x0"}
	for _, name := range good {
		require.NoError(t, ValidateProjectName(name, 32), name)
	}

	bad := map[string]string{
		"":                                  "empty",
		"Hello World":                       "disallowed characters",
		"hello_world":                       "disallowed characters",
		"-hello":                            "start or end",
		"hello-":                            "start or end",
		"he--llo":                           "consecutive hyphens",
		"this-name-is-way-too-long-for-the": "longer than 32",
	}
	for name, wantSubstr := range bad {
		err := ValidateProjectName(name, 32)
		require.Error(t, err, name)
		require.Contains(t, err.Error(), wantSubstr, name)
	}
}

func TestValidateProjectNameNamesOffendingChars(t *testing.T) {
	err := ValidateProjectName("Hello World", 32)
	require.Error(t, err)
	require.Contains(t, err.Error(), "'H'")
	require.Contains(t, err.Error(), "'W'")
	require.Contains(t, err.Error(), "' '")
}

func TestFirstSegmentOwnedBy(t *testing.T) {
	require.True(t, FirstSegmentOwnedBy("/alice1-hello.git/info/refs", "alice1"))
	require.True(t, FirstSegmentOwnedBy("/alice1-hello", "alice1"))
	require.False(t, FirstSegmentOwnedBy("/bob42-proj.git/info/refs", "alice1"))
	// A login that is a prefix of another login must not authorize its repos.
	require.False(t, FirstSegmentOwnedBy("/alice12-hello.git/info/refs", "alice1"))
	require.False(t, FirstSegmentOwnedBy("/alice1.git/info/refs", "alice1"))
	require.False(t, FirstSegmentOwnedBy("alice1-hello.git", "alice1"))
	require.False(t, FirstSegmentOwnedBy("/", "alice1"))
	require.False(t, FirstSegmentOwnedBy("", "alice1"))
	require.False(t, FirstSegmentOwnedBy("/alice1-hello.git", ""))
}
