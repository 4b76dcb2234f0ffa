// Package index implements the persistent scenery classification
// index (§4.H): a folderName → scenery.Signature document rebuilt or
// incrementally updated from the scenery directory, written atomically
// (write-temp-then-rename) so a crash mid-write never leaves a
// partially-updated document (§7 IndexCorrupt's documented remediation
// is "rebuild", which only makes sense if a corrupt read never masks a
// half-written one).
package index

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery/classify"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// DocumentVersion is the on-disk schema version written by this
// package (§6: "{version:1, lastUpdated, packages: {...}}").
const DocumentVersion = 1

// document is the on-disk shape of scenery_index.json.
type document struct {
	Version     int                          `json:"version"`
	LastUpdated time.Time                    `json:"lastUpdated"`
	Packages    map[string]scenery.Signature `json:"packages"`
}

// Classifier abstracts classify.Classify's signature so Store can be
// given a fake in tests without touching the filesystem.
type Classifier func(folderName string, entries []classify.Entry, probe classify.DSFProbe) scenery.Signature

// Store owns one scenery_index.json document: the current in-memory
// snapshot plus the two mutating operations, Rebuild and Update
// (§4.H). Reads (Snapshot) may proceed concurrently with either, by
// always returning a shallow copy of the last-written document rather
// than a reference into it.
type Store struct {
	fs         ports.FileSystem
	logger     ports.Logger
	path       string
	sceneryDir string
	classifier Classifier
	// ClassifyWorkers bounds the CPU-bound classification pool used
	// during Rebuild/Update (§5's "rayon-style pool"); zero means a
	// single-worker pool.
	classifyWorkers int64

	mu  sync.Mutex
	doc document
}

// NewStore creates a Store backed by indexPath, reading the scenery
// package listing from sceneryDir. An empty document is assumed until
// Load or Rebuild is called.
func NewStore(fs ports.FileSystem, logger ports.Logger, indexPath, sceneryDir string, classifyWorkers int) *Store {
	if classifyWorkers < 1 {
		classifyWorkers = 1
	}
	return &Store{
		fs:              fs,
		logger:          logger,
		path:            indexPath,
		sceneryDir:      sceneryDir,
		classifier:      classify.Classify,
		classifyWorkers: int64(classifyWorkers),
		doc:             document{Version: DocumentVersion, Packages: map[string]scenery.Signature{}},
	}
}

// Load reads the persisted document from disk. A missing file is not
// an error — it means no index has ever been built. A file that fails
// to parse is IndexCorrupt; the caller's documented remediation is to
// call Rebuild.
func (s *Store) Load(ctx context.Context) error {
	if !s.fs.Exists(s.path) {
		return nil
	}
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return addonerr.New(addonerr.Internal, "failed to read scenery index").WithPath(s.path).Wrap(err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return addonerr.New(addonerr.IndexCorrupt, "scenery index is unreadable; rebuild required").WithPath(s.path).WithSuggestion("run a full rebuild").Wrap(err)
	}
	if doc.Packages == nil {
		doc.Packages = map[string]scenery.Signature{}
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Snapshot returns every currently indexed signature, keyed by folder
// name. It is a defensive copy: mutating the result never affects the
// Store's own state.
func (s *Store) Snapshot() map[string]scenery.Signature {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]scenery.Signature, len(s.doc.Packages))
	for k, v := range s.doc.Packages {
		out[k] = v
	}
	return out
}

// Get returns the signature for one folder, if indexed.
func (s *Store) Get(folderName string) (scenery.Signature, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.doc.Packages[folderName]
	return sig, ok
}

// Rebuild walks the scenery directory from scratch, resolving
// shortcuts, classifying every package in parallel, and atomically
// replacing the whole document (§4.H "Rebuild").
func (s *Store) Rebuild(ctx context.Context) error {
	folders, err := s.listSceneryFolders()
	if err != nil {
		return err
	}

	packages, err := s.classifyAll(ctx, folders, nil)
	if err != nil {
		return err
	}
	recomputeMissingLibraries(packages)

	return s.persist(document{
		Version:     DocumentVersion,
		LastUpdated: time.Now().UTC(),
		Packages:    packages,
	})
}

// Update reclassifies only folders whose lastModified changed (or that
// are new), drops folders no longer present, and recomputes
// MissingLibraries across the resulting full set, then atomically
// replaces the document (§4.H "Update": "Must not leave the index
// partially updated").
func (s *Store) Update(ctx context.Context) error {
	folders, err := s.listSceneryFolders()
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(folders))
	for _, f := range folders {
		present[f.name] = true
	}

	s.mu.Lock()
	previous := make(map[string]scenery.Signature, len(s.doc.Packages))
	for k, v := range s.doc.Packages {
		previous[k] = v
	}
	s.mu.Unlock()

	var toClassify []sceneryFolder
	unchanged := make(map[string]scenery.Signature)
	for _, f := range folders {
		prev, ok := previous[f.name]
		if ok && !f.lastModified.After(prev.LastModified) {
			unchanged[f.name] = prev
			continue
		}
		toClassify = append(toClassify, f)
	}

	classified, err := s.classifyAll(ctx, toClassify, nil)
	if err != nil {
		return err
	}

	merged := make(map[string]scenery.Signature, len(unchanged)+len(classified))
	for k, v := range unchanged {
		merged[k] = v
	}
	for k, v := range classified {
		merged[k] = v
	}
	recomputeMissingLibraries(merged)

	return s.persist(document{
		Version:     DocumentVersion,
		LastUpdated: time.Now().UTC(),
		Packages:    merged,
	})
}

type sceneryFolder struct {
	name         string
	resolvedDir  string
	lastModified time.Time
}

// listSceneryFolders enumerates the top-level directories of the
// scenery directory, resolving shortcuts to their real target for
// classification while keeping the on-disk name for everything else
// (§4.I "Shortcut resolution").
func (s *Store) listSceneryFolders() ([]sceneryFolder, error) {
	entries, err := s.fs.ReadDir(s.sceneryDir)
	if err != nil {
		return nil, addonerr.New(addonerr.Internal, "failed to read scenery directory").WithPath(s.sceneryDir).Wrap(err)
	}
	out := make([]sceneryFolder, 0, len(entries))
	for _, e := range entries {
		path := s.sceneryDir + "/" + e.Name
		resolved := path
		if isLink, target := s.fs.IsSymlink(path); isLink && target != "" {
			resolved = target
		}
		if !s.fs.IsDir(resolved) {
			continue
		}
		info, err := s.fs.GetFileInfo(resolved)
		if err != nil {
			continue
		}
		out = append(out, sceneryFolder{name: e.Name, resolvedDir: resolved, lastModified: info.ModTime})
	}
	return out, nil
}

// classifyAll runs classify.Classify for every folder concurrently,
// bounded by classifyWorkers (§5's CPU-bound classification pool).
func (s *Store) classifyAll(ctx context.Context, folders []sceneryFolder, probe classify.DSFProbe) (map[string]scenery.Signature, error) {
	result := make(map[string]scenery.Signature, len(folders))
	if len(folders) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(s.classifyWorkers)
	var wg sync.WaitGroup
	var firstErr error

	for _, f := range folders {
		f := f
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			entries, err := s.listEntries(f.resolvedDir, "")
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			sig := s.classifier(f.name, entries, probe)
			sig.LastModified = f.lastModified
			sig.IndexedAt = time.Now().UTC()

			libTxt, _ := s.fs.ReadFile(f.resolvedDir + "/library.txt")
			sig.RequiredLibraries = classify.ReferencedLibraries(libTxt, nil, nil)

			mu.Lock()
			result[f.name] = sig
			mu.Unlock()
		}()
	}
	wg.Wait()
	return result, firstErr
}

// listEntries recursively lists every file/directory under root,
// relative paths using forward slashes, for classify.Classify.
func (s *Store) listEntries(root, relPrefix string) ([]classify.Entry, error) {
	full := root
	if relPrefix != "" {
		full = root + "/" + relPrefix
	}
	dirEntries, err := s.fs.ReadDir(full)
	if err != nil {
		return nil, addonerr.New(addonerr.Internal, "failed to read scenery package directory").WithPath(full).Wrap(err)
	}
	var out []classify.Entry
	for _, e := range dirEntries {
		rel := e.Name
		if relPrefix != "" {
			rel = relPrefix + "/" + e.Name
		}
		out = append(out, classify.Entry{Path: rel, IsDir: e.IsDir})
		if e.IsDir {
			sub, err := s.listEntries(root, rel)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// recomputeMissingLibraries computes each package's MissingLibraries
// against the full set of folder names actually present in packages,
// since any indexed folder is by definition an available library
// (§4.G "compared against the set of all known library folder names").
func recomputeMissingLibraries(packages map[string]scenery.Signature) {
	known := make(map[string]bool, len(packages))
	for name := range packages {
		known[name] = true
	}
	for name, sig := range packages {
		sig.MissingLibraries = classify.MissingLibraries(sig.RequiredLibraries, known)
		packages[name] = sig
	}
}

// persist atomically replaces the on-disk document: write to the
// fixed temp path s.path+".tmp", then rename over the real path, so a
// reader never observes a half-written file (§4.H).
func (s *Store) persist(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return addonerr.New(addonerr.Internal, "failed to marshal scenery index").Wrap(err)
	}
	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0o644); err != nil {
		return addonerr.New(addonerr.Internal, "failed to write scenery index temp file").WithPath(tmp).Wrap(err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return addonerr.New(addonerr.Internal, "failed to finalize scenery index").WithPath(s.path).Wrap(err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// FolderNames returns every folder name currently indexed, sorted.
func (s *Store) FolderNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.doc.Packages))
	for name := range s.doc.Packages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
