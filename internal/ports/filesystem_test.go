package ports

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockFileSystem_WriteReadRoundTrip(t *testing.T) {
	fs := NewMockFileSystem()

	require.NoError(t, fs.WriteFile("/sim/Aircraft/A330/A330.acf", []byte("acf"), 0o644))

	data, err := fs.ReadFile("/sim/Aircraft/A330/A330.acf")
	require.NoError(t, err)
	assert.Equal(t, []byte("acf"), data)

	assert.True(t, fs.Exists("/sim/Aircraft/A330/A330.acf"))
	assert.True(t, fs.IsDir("/sim/Aircraft/A330"))
	assert.False(t, fs.IsDir("/sim/Aircraft/A330/A330.acf"))
}

func TestMockFileSystem_RenameDirectoryMovesChildren(t *testing.T) {
	fs := NewMockFileSystem()
	fs.AddFile("/sim/Aircraft/A330/A330.acf", []byte("acf"))
	fs.AddFile("/sim/Aircraft/A330/liveries/Alpha/tex.png", []byte("tex"))

	require.NoError(t, fs.Rename("/sim/Aircraft/A330", "/sim/Aircraft/A330.origin.abc"))

	assert.False(t, fs.Exists("/sim/Aircraft/A330/A330.acf"))
	data, err := fs.ReadFile("/sim/Aircraft/A330.origin.abc/liveries/Alpha/tex.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("tex"), data)
}

func TestMockFileSystem_RemoveAllDeletesSubtree(t *testing.T) {
	fs := NewMockFileSystem()
	fs.AddFile("/sim/x/a.txt", []byte("a"))
	fs.AddFile("/sim/x/y/b.txt", []byte("b"))

	require.NoError(t, fs.RemoveAll("/sim/x"))

	assert.False(t, fs.Exists("/sim/x/a.txt"))
	assert.False(t, fs.Exists("/sim/x/y/b.txt"))
	assert.False(t, fs.Exists("/sim/x"))
}

func TestMockFileSystem_ReadDirListsImmediateChildrenOnly(t *testing.T) {
	fs := NewMockFileSystem()
	fs.AddFile("/sim/Custom Scenery/A/apt.dat", []byte("1000 Version"))
	fs.AddDir("/sim/Custom Scenery/B")

	entries, err := fs.ReadDir("/sim/Custom Scenery")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "B", entries[1].Name)
	assert.True(t, entries[1].IsDir)
}

func TestMockFileSystem_ReadMissingFileIsNotExist(t *testing.T) {
	fs := NewMockFileSystem()
	_, err := fs.ReadFile("/nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMockFileSystem_SymlinkRoundTrip(t *testing.T) {
	fs := NewMockFileSystem()
	require.NoError(t, fs.CreateSymlink("/real/dir", "/sim/Custom Scenery/Link"))

	isLink, target := fs.IsSymlink("/sim/Custom Scenery/Link")
	assert.True(t, isLink)
	assert.Equal(t, "/real/dir", target)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandPath("~"))
	assert.Contains(t, ExpandPath("~/x-plane"), home)
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
