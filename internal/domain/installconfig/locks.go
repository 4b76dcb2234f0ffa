package installconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LockEntry is one user-declared locked target path, with an optional
// reason surfaced in the UI (§4.E "Locked targets").
type LockEntry struct {
	Path   string `yaml:"path"`
	Reason string `yaml:"reason,omitempty"`
}

// lockDocument is the on-disk shape of locks.yaml.
type lockDocument struct {
	Locks []LockEntry `yaml:"locks"`
}

// LoadLocks reads locks.yaml at path. A missing file returns an empty
// slice, not an error.
func LoadLocks(path string) ([]LockEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc lockDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Locks, nil
}

// SaveLocks writes entries to path as locks.yaml.
func SaveLocks(path string, entries []LockEntry) error {
	data, err := yaml.Marshal(lockDocument{Locks: entries})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Paths extracts the bare target paths from entries, for handing to
// planner.Options.Locks.
func Paths(entries []LockEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}
