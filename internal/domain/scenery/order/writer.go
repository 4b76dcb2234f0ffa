package order

import (
	"time"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// Options configures one Rewrite pass.
type Options struct {
	// AutoDisableDependents, if true, additionally disables any entry
	// whose RequiredLibraries includes a folder that is itself
	// disabled. Left off by default per §9's open-question resolution
	// (see DESIGN.md): the source sometimes does this, sometimes
	// doesn't, so this repo defaults to off and exposes the choice
	// explicitly rather than guessing.
	AutoDisableDependents bool
	// Now, if non-zero, fixes the backup filename's timestamp (for
	// deterministic tests). Zero means time.Now().
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Rewrite reads manifestPath, reorders its entries against signatures,
// backs up the original to manifestPath+".backup."+timestamp, and
// atomically writes the reordered manifest back (§4.I "Write
// atomicity"). It returns the Manifest that was written.
func Rewrite(fs ports.FileSystem, manifestPath string, signatures map[string]scenery.Signature, opts Options) (Manifest, error) {
	raw, err := fs.ReadFile(manifestPath)
	if err != nil {
		return Manifest{}, addonerr.New(addonerr.Internal, "failed to read scenery manifest").WithPath(manifestPath).Wrap(err)
	}

	parsed, err := Parse(string(raw))
	if err != nil {
		return Manifest{}, err
	}

	reordered := Reorder(parsed, signatures)
	if opts.AutoDisableDependents {
		applyAutoDisableDependents(&reordered, signatures)
	}

	backupPath := manifestPath + ".backup." + BackupSuffix(opts.now())
	if err := fs.WriteFile(backupPath, raw, 0o644); err != nil {
		return Manifest{}, addonerr.New(addonerr.Internal, "failed to write scenery manifest backup").WithPath(backupPath).Wrap(err)
	}

	out := Serialize(reordered)
	tmpPath := manifestPath + ".tmp"
	if err := fs.WriteFile(tmpPath, []byte(out), 0o644); err != nil {
		return Manifest{}, addonerr.New(addonerr.Internal, "failed to write scenery manifest temp file").WithPath(tmpPath).Wrap(err)
	}
	if err := fs.Rename(tmpPath, manifestPath); err != nil {
		return Manifest{}, addonerr.New(addonerr.Internal, "failed to finalize scenery manifest").WithPath(manifestPath).Wrap(err)
	}

	return reordered, nil
}

// applyAutoDisableDependents disables any enabled line whose package
// requires a library that is itself disabled in m. A required library
// with no line in m does not disable its dependent.
func applyAutoDisableDependents(m *Manifest, signatures map[string]scenery.Signature) {
	disabled := make(map[string]bool, len(m.Lines))
	for _, l := range m.Lines {
		if !l.IsGlobalDefault && !l.Enabled {
			disabled[l.FolderName] = true
		}
	}
	for i, l := range m.Lines {
		if l.IsGlobalDefault || !l.Enabled {
			continue
		}
		sig, ok := signatures[l.FolderName]
		if !ok {
			continue
		}
		for _, req := range sig.RequiredLibraries {
			if disabled[req] {
				m.Lines[i].Enabled = false
				break
			}
		}
	}
}
