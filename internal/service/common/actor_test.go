//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectUser ensures username and home are detected and $HOME is honoured.
func TestDetectUser(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	u, err := DetectUser()
	require.NoError(t, err)
	require.NotEmpty(t, u.Username)
	require.Equal(t, home, u.HomeDir)
}
