package installconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_MissingFileReturnsDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "addonctl.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestSaveLoadSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addonctl.toml")
	want := Settings{
		ParallelWorkers:    8,
		MemoryThresholdMiB: 512,
		BackupConfigGlobs:  []string{"*.ini"},
		AutoSortScenery:    false,
	}
	require.NoError(t, SaveSettings(path, want))

	got, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadSettings_PartialFileFillsDefaultsForRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addonctl.toml")
	require.NoError(t, os.WriteFile(path, []byte("parallelWorkers = 1\n"), 0o644))

	got, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ParallelWorkers)
	assert.Equal(t, DefaultSettings().AutoSortScenery, got.AutoSortScenery)
	assert.Equal(t, DefaultSettings().BackupConfigGlobs, got.BackupConfigGlobs)
}
