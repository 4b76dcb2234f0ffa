package archivechain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/addonctl/internal/ports"
)

func TestScope_NewTempDirAndCloseRemovesEverything(t *testing.T) {
	t.Parallel()

	fs := ports.NewMockFileSystem()
	scope, err := NewScope(fs, "/sim", nil)
	require.NoError(t, err)

	dir, err := scope.NewTempDir()
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(dir+"/payload.txt", []byte("x"), 0o644))
	assert.True(t, fs.Exists(dir))

	path := scope.NewTempFilePath(".7z")
	require.NoError(t, fs.WriteFile(path, []byte("y"), 0o600))
	assert.True(t, fs.Exists(path))

	require.NoError(t, scope.Close())
	assert.False(t, fs.Exists(dir))
	assert.False(t, fs.Exists(path))
}

func TestScope_CloseClosesTrackedReadersAndIsIdempotent(t *testing.T) {
	t.Parallel()

	fs := ports.NewMockFileSystem()
	scope, err := NewScope(fs, "/sim", nil)
	require.NoError(t, err)

	r := newFakeArchive()
	scope.TrackReader(r)

	require.NoError(t, scope.Close())
	assert.True(t, r.closed)

	require.NoError(t, scope.Close()) // idempotent
}

func TestScope_TempPathsAreUniqueAndScoped(t *testing.T) {
	t.Parallel()

	fs := ports.NewMockFileSystem()
	scope, err := NewScope(fs, "/sim", nil)
	require.NoError(t, err)
	defer func() { _ = scope.Close() }()

	a := scope.NewTempFilePath(".zip")
	b := scope.NewTempFilePath(".zip")
	assert.NotEqual(t, a, b)
}
