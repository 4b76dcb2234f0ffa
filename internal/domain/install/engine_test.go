package install

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/addonctl/internal/adapters/logging"
	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/archivechain"
	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

func newTestEngine(fs ports.FileSystem, opts Options) (*Engine, *events.Bus) {
	bus := events.NewBus()
	openers := map[archivechain.Format]ports.ArchiveOpener{}
	return NewEngine(fs, openers, "/sim/.install-temp-root", bus, logging.NewNopLogger(), opts), bus
}

func freshPluginTask(targetPath string) *addon.InstallTask {
	return &addon.InstallTask{
		ID:         uuid.NewString(),
		Kind:       addon.Plugin,
		SourceRoot: addon.SourceRoot{Dir: "/src/MyPlug"},
		TargetPath: targetPath,
		Conflict:   addon.ConflictNone,
		Strategy:   addon.StrategyFresh,
		Enabled:    true,
	}
}

// S1 — fresh install: no prior content, commit is a single rename, and
// no staging or .origin.* directory remains afterward.
func TestEngineRun_FreshInstall(t *testing.T) {
	fs := ports.NewMockFileSystem()
	fs.AddFile("/src/MyPlug/plugins/win_x64/MyPlug.xpl", []byte("binary"))

	engine, _ := newTestEngine(fs, Options{Workers: 1})
	task := freshPluginTask("/sim/Resources/plugins/MyPlug")

	results := engine.Run(context.Background(), []*addon.InstallTask{task}, events.NewControl())
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, StateDone, results[0].State)

	content, err := fs.ReadFile("/sim/Resources/plugins/MyPlug/plugins/win_x64/MyPlug.xpl")
	require.NoError(t, err)
	assert.Equal(t, "binary", string(content))

	assert.False(t, fs.Exists("/sim/Resources/plugins/MyPlug.origin."))
	entries, err := fs.ReadDir("/sim/Resources/plugins")
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name, ".install-temp-")
	}
}

// S2 — clean aircraft install preserves liveries the new archive
// didn't ship, while the new install's own files win.
func TestEngineRun_CleanInstallPreservesLiveries(t *testing.T) {
	fs := ports.NewMockFileSystem()
	fs.AddFile("/sim/Aircraft/A330/A330.acf", []byte("old"))
	fs.AddFile("/sim/Aircraft/A330/liveries/Alpha/tex1.png", []byte("a1"))
	fs.AddFile("/sim/Aircraft/A330/liveries/Alpha/tex2.png", []byte("a2"))
	fs.AddFile("/sim/Aircraft/A330/liveries/Alpha/tex3.png", []byte("a3"))

	fs.AddFile("/src/A330/A330.acf", []byte("new"))
	fs.AddFile("/src/A330/liveries/Beta/tex1.png", []byte("b1"))
	fs.AddFile("/src/A330/liveries/Beta/tex2.png", []byte("b2"))

	engine, _ := newTestEngine(fs, Options{Workers: 1})
	task := &addon.InstallTask{
		ID:           uuid.NewString(),
		Kind:         addon.Aircraft,
		SourceRoot:   addon.SourceRoot{Dir: "/src/A330"},
		TargetPath:   "/sim/Aircraft/A330",
		Conflict:     addon.ConflictExists,
		Strategy:     addon.StrategyClean,
		BackupPolicy: addon.BackupPolicy{Liveries: true},
		Enabled:      true,
	}

	results := engine.Run(context.Background(), []*addon.InstallTask{task}, events.NewControl())
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, StateDone, results[0].State)

	acf, err := fs.ReadFile("/sim/Aircraft/A330/A330.acf")
	require.NoError(t, err)
	assert.Equal(t, "new", string(acf))

	for _, f := range []string{"tex1.png", "tex2.png", "tex3.png"} {
		_, err := fs.ReadFile("/sim/Aircraft/A330/liveries/Alpha/" + f)
		assert.NoError(t, err, "Alpha livery file %s should survive", f)
	}
	for _, f := range []string{"tex1.png", "tex2.png"} {
		_, err := fs.ReadFile("/sim/Aircraft/A330/liveries/Beta/" + f)
		assert.NoError(t, err, "Beta livery file %s should be installed", f)
	}

	entries, err := fs.ReadDir("/sim/Aircraft")
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name, ".origin.")
	}
}

func TestEngineRun_LockedTargetRejectedEvenIfEnabled(t *testing.T) {
	fs := ports.NewMockFileSystem()
	fs.AddFile("/src/MyPlug/plugins/win_x64/MyPlug.xpl", []byte("binary"))
	fs.AddDir("/sim/Resources/plugins/MyPlug")

	engine, _ := newTestEngine(fs, Options{Workers: 1})
	task := freshPluginTask("/sim/Resources/plugins/MyPlug")
	task.Conflict = addon.ConflictExistsLocked
	task.Strategy = addon.StrategyClean
	// Defence in depth: the UI incorrectly flipped this back on.
	task.Enabled = true

	results := engine.Run(context.Background(), []*addon.InstallTask{task}, events.NewControl())
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Equal(t, StateFailing, results[0].State)
}

func TestEngineRun_DisabledTaskNeverTouchesFilesystem(t *testing.T) {
	fs := ports.NewMockFileSystem()
	fs.AddFile("/src/MyPlug/plugins/win_x64/MyPlug.xpl", []byte("binary"))

	engine, _ := newTestEngine(fs, Options{Workers: 1})
	task := freshPluginTask("/sim/Resources/plugins/MyPlug")
	task.Enabled = false

	results := engine.Run(context.Background(), []*addon.InstallTask{task}, events.NewControl())
	require.Len(t, results, 1)
	assert.Equal(t, StateRolledBack, results[0].State)
	assert.False(t, fs.Exists("/sim/Resources/plugins/MyPlug"))
}

func TestEngineRun_OverwriteRejectedWithoutOptIn(t *testing.T) {
	fs := ports.NewMockFileSystem()
	fs.AddFile("/src/Beta/tex1.png", []byte("b1"))
	fs.AddDir("/sim/Aircraft/A330/liveries/Beta")

	engine, _ := newTestEngine(fs, Options{Workers: 1, AllowOverwrite: false})
	task := &addon.InstallTask{
		ID:         uuid.NewString(),
		Kind:       addon.Livery,
		SourceRoot: addon.SourceRoot{Dir: "/src/Beta"},
		TargetPath: "/sim/Aircraft/A330/liveries/Beta",
		Conflict:   addon.ConflictExists,
		Strategy:   addon.StrategyOverwrite,
		Enabled:    true,
	}

	results := engine.Run(context.Background(), []*addon.InstallTask{task}, events.NewControl())
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Equal(t, StateFailing, results[0].State)
}

func TestEngineRun_InsufficientSpaceFailsBeforeStaging(t *testing.T) {
	fs := ports.NewMockFileSystem()
	fs.AddFile("/src/MyPlug/plugins/win_x64/MyPlug.xpl", make([]byte, 1<<20))
	fs.FreeBytes = 100 // far below the 1 GiB floor

	engine, _ := newTestEngine(fs, Options{Workers: 1})
	task := freshPluginTask("/sim/Resources/plugins/MyPlug")

	results := engine.Run(context.Background(), []*addon.InstallTask{task}, events.NewControl())
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Equal(t, StateFailing, results[0].State)
	assert.False(t, fs.Exists("/sim/Resources/plugins/MyPlug"))
}

func TestEngineRun_MultipleTasksDisjointPrefixesConcurrent(t *testing.T) {
	fs := ports.NewMockFileSystem()
	fs.AddFile("/src/A/file.txt", []byte("a"))
	fs.AddFile("/src/B/file.txt", []byte("b"))

	engine, _ := newTestEngine(fs, Options{Workers: 2})
	tasks := []*addon.InstallTask{
		freshPluginTask("/sim/Resources/plugins/A"),
		freshPluginTask("/sim/Resources/plugins/B"),
	}
	tasks[0].SourceRoot = addon.SourceRoot{Dir: "/src/A"}
	tasks[1].SourceRoot = addon.SourceRoot{Dir: "/src/B"}

	results := engine.Run(context.Background(), tasks, events.NewControl())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, StateDone, r.State)
	}
}
