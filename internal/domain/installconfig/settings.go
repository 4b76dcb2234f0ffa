// Package installconfig loads the two user-editable configuration
// files the CLI reads before building an install plan: addonctl.toml
// (flat run-time settings) and locks.yaml (the user's lock-entry
// list).
package installconfig

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the flat addonctl.toml document.
type Settings struct {
	ParallelWorkers    int      `toml:"parallelWorkers"`
	MemoryThresholdMiB int64    `toml:"memoryThresholdMiB"`
	BackupConfigGlobs  []string `toml:"backupConfigGlobs"`
	AutoSortScenery    bool     `toml:"autoSortScenery"`
}

// DefaultSettings returns the settings used when addonctl.toml is
// absent. Only MemoryThresholdMiB matches the install engine's own
// zero-value default; the engine alone runs one worker and backs up no
// config globs.
func DefaultSettings() Settings {
	return Settings{
		ParallelWorkers:    4,
		MemoryThresholdMiB: 200,
		BackupConfigGlobs:  []string{"*.ini", "*.prf"},
		AutoSortScenery:    true,
	}
}

// LoadSettings reads and parses addonctl.toml at path. A missing file
// is not an error; it returns DefaultSettings().
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}

	settings := DefaultSettings()
	if err := toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// SaveSettings writes s to path as TOML.
func SaveSettings(path string, s Settings) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
