package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/addonctl/internal/adapters/logging"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

func seedScenery(fs *ports.MockFileSystem) {
	fs.AddFile("/sim/Custom Scenery/KSEA_Demo/Earth nav data/apt.dat", []byte("I\n1000 Version\n"))
	fs.AddFile("/sim/Custom Scenery/OpenSAM_Library/library.txt", []byte("A\n800\nLIBRARY\n"))
	fs.AddFile("/sim/Custom Scenery/zzz_mesh/Earth nav data/+50-130/+52-123.dsf", []byte("binary"))
}

func TestStore_RebuildThenSnapshot(t *testing.T) {
	fs := ports.NewMockFileSystem()
	seedScenery(fs)

	store := NewStore(fs, logging.NewNopLogger(), "/data/scenery_index.json", "/sim/Custom Scenery", 4)
	require.NoError(t, store.Rebuild(context.Background()))

	snap := store.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "Airport", string(snap["KSEA_Demo"].Category))
	assert.Equal(t, "FixedHighPriority", string(snap["OpenSAM_Library"].Category))
	assert.Equal(t, "Mesh", string(snap["zzz_mesh"].Category))

	assert.True(t, fs.Exists("/data/scenery_index.json"))
	assert.False(t, fs.Exists("/data/scenery_index.json.tmp"))
}

func TestStore_LoadRoundTrip(t *testing.T) {
	fs := ports.NewMockFileSystem()
	seedScenery(fs)

	store := NewStore(fs, logging.NewNopLogger(), "/data/scenery_index.json", "/sim/Custom Scenery", 2)
	require.NoError(t, store.Rebuild(context.Background()))

	store2 := NewStore(fs, logging.NewNopLogger(), "/data/scenery_index.json", "/sim/Custom Scenery", 2)
	require.NoError(t, store2.Load(context.Background()))
	assert.Equal(t, store.Snapshot(), store2.Snapshot())
}

func TestStore_UpdateIsIncrementalAndDropsRemoved(t *testing.T) {
	fs := ports.NewMockFileSystem()
	seedScenery(fs)

	store := NewStore(fs, logging.NewNopLogger(), "/data/scenery_index.json", "/sim/Custom Scenery", 4)
	require.NoError(t, store.Rebuild(context.Background()))

	before, ok := store.Get("KSEA_Demo")
	require.True(t, ok)

	// Remove one package and touch another.
	require.NoError(t, fs.RemoveAll("/sim/Custom Scenery/zzz_mesh"))
	fs.AddFile("/sim/Custom Scenery/NewAirport/Earth nav data/apt.dat", []byte("I\n1000 Version\n"))
	fs.SetModTime("/sim/Custom Scenery/NewAirport", time.Now().Add(time.Hour))

	require.NoError(t, store.Update(context.Background()))

	snap := store.Snapshot()
	_, stillThere := snap["zzz_mesh"]
	assert.False(t, stillThere)
	_, newOne := snap["NewAirport"]
	assert.True(t, newOne)

	after, ok := store.Get("KSEA_Demo")
	require.True(t, ok)
	assert.Equal(t, before.IndexedAt, after.IndexedAt, "unchanged folder should not be reclassified")
}

func TestStore_UpdateEquivalentToRebuild(t *testing.T) {
	fs := ports.NewMockFileSystem()
	seedScenery(fs)

	a := NewStore(fs, logging.NewNopLogger(), "/data/a.json", "/sim/Custom Scenery", 4)
	require.NoError(t, a.Rebuild(context.Background()))

	b := NewStore(fs, logging.NewNopLogger(), "/data/b.json", "/sim/Custom Scenery", 4)
	require.NoError(t, b.Update(context.Background()))

	snapA, snapB := a.Snapshot(), b.Snapshot()
	require.Len(t, snapA, len(snapB))
	for name, sigA := range snapA {
		sigB, ok := snapB[name]
		require.True(t, ok)
		assert.Equal(t, sigA.Category, sigB.Category)
		assert.Equal(t, sigA.MissingLibraries, sigB.MissingLibraries)
	}
}
