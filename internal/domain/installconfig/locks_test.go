package installconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocks_MissingFileReturnsEmpty(t *testing.T) {
	entries, err := LoadLocks(filepath.Join(t.TempDir(), "locks.yaml"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveLoadLocks_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks.yaml")
	want := []LockEntry{
		{Path: "/sim/Aircraft/B738", Reason: "custom liveries installed by hand"},
		{Path: "/sim/Custom Scenery/MyOverlay"},
	}
	require.NoError(t, SaveLocks(path, want))

	got, err := LoadLocks(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"/sim/Aircraft/B738", "/sim/Custom Scenery/MyOverlay"}, Paths(got))
}
