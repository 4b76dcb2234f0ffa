// Package analyzer walks a user-supplied input — a loose directory or
// a (possibly nested) archive — and emits one InstallTask per
// classified addon root (§4.D). It never fully extracts an archive at
// analysis time; it reads only entry metadata, plus the occasional
// small file needed for a content probe (the Navdata AIRAC cycle).
package analyzer

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/archivechain"
	"github.com/felixgeelhaar/addonctl/internal/domain/classify"
	"github.com/felixgeelhaar/addonctl/internal/domain/planner"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// Options configures one analysis run.
type Options struct {
	// SimRoot is used only to compute a provisional TargetPath for
	// cross-source dedup (§4.D); the Planner resolves the real one.
	SimRoot string
}

// Analyzer produces InstallTasks from user-supplied input paths.
type Analyzer struct {
	fs     ports.FileSystem
	cursor *archivechain.Cursor
	logger ports.Logger
	opts   Options
}

// New creates an Analyzer. cursor must be configured with every
// format opener the installer supports.
func New(fs ports.FileSystem, cursor *archivechain.Cursor, logger ports.Logger, opts Options) *Analyzer {
	return &Analyzer{fs: fs, cursor: cursor, logger: logger, opts: opts}
}

// AnalyzeInputs runs AnalyzePath over every path and returns the
// combined task list with target-path dedup applied across all of
// them (§4.D).
func (a *Analyzer) AnalyzeInputs(ctx context.Context, paths []string, passwords archivechain.PasswordMap) ([]*addon.InstallTask, error) {
	var all []*addon.InstallTask
	for _, p := range paths {
		tasks, err := a.AnalyzePath(ctx, p, passwords)
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	a.dedupeTargetPaths(all)
	return all, nil
}

func (a *Analyzer) dedupeTargetPaths(tasks []*addon.InstallTask) {
	seen := make(map[string]int, len(tasks))
	provisional := make([]string, len(tasks))
	for i, t := range tasks {
		tp := planner.TargetPathFor(a.opts.SimRoot, t.Kind, t.DisplayName, t.LiveryAircraftRef)
		provisional[i] = tp
		if tp != "" {
			seen[tp]++
		}
	}
	for i, t := range tasks {
		if provisional[i] != "" && seen[provisional[i]] > 1 {
			t.TargetPathConflict = true
		}
	}
}

// AnalyzePath classifies one user-supplied path, which may be a loose
// directory or an archive file.
func (a *Analyzer) AnalyzePath(ctx context.Context, inputPath string, passwords archivechain.PasswordMap) ([]*addon.InstallTask, error) {
	if !a.fs.Exists(inputPath) {
		return nil, addonerr.New(addonerr.BadInputPath, "input path does not exist").WithPath(inputPath)
	}
	if a.fs.IsDir(inputPath) {
		return a.analyzeDir(inputPath)
	}
	return a.analyzeArchiveFile(ctx, inputPath, passwords)
}

func (a *Analyzer) analyzeDir(root string) ([]*addon.InstallTask, error) {
	entries, err := walkDir(a.fs, root)
	if err != nil {
		return nil, addonerr.New(addonerr.BadInputPath, "failed to walk input directory").WithPath(root).Wrap(err)
	}
	read := func(rel string) ([]byte, error) {
		return a.fs.ReadFile(root + "/" + rel)
	}
	roots := findRoots(entries, read, 0)
	if len(roots) == 0 {
		return []*addon.InstallTask{a.newTask(classify.Result{Kind: addon.Unrecognized}, addon.SourceRoot{Dir: root}, filepath.Base(root))}, nil
	}
	tasks := make([]*addon.InstallTask, 0, len(roots))
	for _, c := range roots {
		srcDir := root
		if c.prefix != "" {
			srcDir = root + "/" + c.prefix
		}
		name := displayNameFromResult(c.result, srcDir)
		tasks = append(tasks, a.newTask(c.result, addon.SourceRoot{Dir: srcDir}, name))
	}
	a.resolveLiveryAircraft(tasks)
	return tasks, nil
}

func displayNameFromResult(r classify.Result, srcDir string) string {
	if r.InternalRoot != "" {
		return path.Base(srcDir + "/" + r.InternalRoot)
	}
	return path.Base(srcDir)
}

func (a *Analyzer) newTask(r classify.Result, source addon.SourceRoot, displayName string) *addon.InstallTask {
	return &addon.InstallTask{
		ID:                 uuid.NewString(),
		Kind:               r.Kind,
		SourceRoot:         source,
		DisplayName:        displayName,
		InternalRoot:       r.InternalRoot,
		Navdata:            r.Navdata,
		LiveryAircraftRef:  r.LiveryAircraftRef,
		CompanionArtifacts: r.CompanionArtifacts,
		AircraftFound:      addon.AircraftFoundUnknown,
	}
}

// resolveLiveryAircraft checks, for every Livery task, whether its
// referenced aircraft folder already exists in the destination (§4.D).
// SimRoot empty (e.g. archive-only analysis with no known install
// target yet) leaves AircraftFoundUnknown rather than guessing.
func (a *Analyzer) resolveLiveryAircraft(tasks []*addon.InstallTask) {
	if a.opts.SimRoot == "" {
		return
	}
	for _, t := range tasks {
		if t.Kind != addon.Livery {
			continue
		}
		if t.LiveryAircraftRef == "" {
			t.AircraftFound = addon.AircraftFoundNo
			continue
		}
		aircraftPath := filepath.Join(a.opts.SimRoot, "Aircraft", t.LiveryAircraftRef)
		if a.fs.Exists(aircraftPath) && a.fs.IsDir(aircraftPath) {
			t.AircraftFound = addon.AircraftFoundYes
		} else {
			t.AircraftFound = addon.AircraftFoundNo
		}
	}
}

// archiveNode pairs an open reader with the chain and format that
// produced it, so nested descent can keep building the chain.
type archiveNode struct {
	reader ports.ArchiveReader
	format archivechain.Format
	chain  archivechain.Chain
}

func (a *Analyzer) analyzeArchiveFile(ctx context.Context, outerPath string, passwords archivechain.PasswordMap) ([]*addon.InstallTask, error) {
	format, ok := archivechain.DetectFormat(outerPath)
	if !ok {
		return nil, addonerr.New(addonerr.UnsupportedFormat, "unrecognized archive extension").WithPath(outerPath)
	}
	node := archivechain.NewNode(outerPath, format)
	chain, err := archivechain.NewChain(node)
	if err != nil {
		return nil, err
	}
	reader, err := a.cursor.OpenWithPasswords(node, passwords)
	if err != nil {
		return nil, err
	}

	scope, err := archivechain.NewScope(a.fs, filepath.Dir(outerPath), a.logger)
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	scope.TrackReader(reader)

	return a.resolveChain(ctx, scope, archiveNode{reader: reader, format: format, chain: chain}, passwords, 0)
}

// resolveChain enumerates the current archive node's entries, looking
// for either a classifiable addon root or further nested archives to
// descend into, per §4.B/§4.D.
func (a *Analyzer) resolveChain(ctx context.Context, scope *archivechain.Scope, an archiveNode, passwords archivechain.PasswordMap, depth int) ([]*addon.InstallTask, error) {
	if depth >= archivechain.MaxDepth {
		return nil, addonerr.New(addonerr.ArchiveBomb, "archive nesting exceeds maximum depth").WithPath(an.chain.Innermost().Path())
	}

	entries, nestedEntries, err := enumerate(an.reader)
	if err != nil {
		return nil, err
	}

	roots := findRoots(entries, nil, 0)
	if len(roots) > 0 {
		tasks := make([]*addon.InstallTask, 0, len(roots))
		for _, c := range roots {
			name := displayNameFromResult(c.result, an.chain.Innermost().Path())
			t := a.newTask(c.result, addon.SourceRoot{Chain: &an.chain}, name)
			t.InternalRoot = joinRel(c.prefix, c.result.InternalRoot)
			tasks = append(tasks, t)
		}
		return tasks, nil
	}

	if len(nestedEntries) == 0 {
		return []*addon.InstallTask{a.newTask(classify.Result{Kind: addon.Unrecognized}, addon.SourceRoot{Chain: &an.chain}, filepath.Base(an.chain.Outermost().Path()))}, nil
	}

	var all []*addon.InstallTask
	for _, nested := range nestedEntries {
		if ctx.Err() != nil {
			return nil, addonerr.New(addonerr.Cancelled, "analysis cancelled").Wrap(ctx.Err())
		}
		innerFormat, _ := archivechain.DetectFormat(nested.Name)
		pw := passwordFor(passwords, nested.Name)

		// enumerate() above drained an.reader to find this candidate, so
		// a fresh reader on the same outer node is opened for the actual
		// descent: StrategyMemory/StrategySpoolFile need it positioned
		// exactly at nested's bytes, StrategyExtractDir needs it wholly
		// unconsumed so the whole outer archive extracts, not just the
		// tail past nested.
		outerNode := an.chain.Innermost()
		descReader, err := a.cursor.Open(outerNode, outerNode.Password())
		if err != nil {
			return nil, err
		}
		scope.TrackReader(descReader)
		descEntry := nested
		if an.format == archivechain.FormatZip {
			descEntry, err = advanceToEntry(descReader, nested.Name)
			if err != nil {
				return nil, err
			}
		}

		nextReader, extractedDir, err := a.cursor.Descend(scope, descReader, an.format, descEntry, pw)
		if err != nil {
			return nil, err
		}

		nextNode := archivechain.NewNode(an.chain.Innermost().Path()+"!"+nested.Name, innerFormat).WithPassword(pw)
		nextChain, err := archivechain.NewChain(append(an.chain.Nodes(), nextNode)...)
		if err != nil {
			return nil, err
		}

		if extractedDir != "" {
			// The outer archive (7z/RAR) was fully extracted; the nested
			// archive file now sits on disk and may itself contain more
			// nested archives or be a loose addon tree alongside it.
			dirTasks, err := a.analyzeExtractedDir(ctx, scope, extractedDir, nextChain, passwords, depth+1)
			if err != nil {
				return nil, err
			}
			all = append(all, dirTasks...)
			continue
		}

		sub, err := a.resolveChain(ctx, scope, archiveNode{reader: nextReader, format: innerFormat, chain: nextChain}, passwords, depth+1)
		if err != nil {
			return nil, err
		}
		all = append(all, sub...)
	}
	return all, nil
}

// analyzeExtractedDir handles the StrategyExtractDir case: the outer
// 7z/RAR archive has already been fully extracted to a real directory,
// so the rest of the chain is resolved with ordinary filesystem
// classification, except any archive file found on disk is itself
// opened and chained further.
func (a *Analyzer) analyzeExtractedDir(ctx context.Context, scope *archivechain.Scope, dir string, chain archivechain.Chain, passwords archivechain.PasswordMap, depth int) ([]*addon.InstallTask, error) {
	entries, err := walkDir(a.fs, dir)
	if err != nil {
		return nil, addonerr.New(addonerr.ArchiveCorrupt, "failed to read extracted archive contents").WithPath(dir).Wrap(err)
	}

	var nestedFiles []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if _, ok := archivechain.DetectFormat(e.Path); ok {
			nestedFiles = append(nestedFiles, e.Path)
		}
	}

	read := func(rel string) ([]byte, error) { return a.fs.ReadFile(dir + "/" + rel) }
	roots := findRoots(entries, read, 0)
	if len(roots) > 0 {
		tasks := make([]*addon.InstallTask, 0, len(roots))
		for _, c := range roots {
			srcDir := dir
			if c.prefix != "" {
				srcDir = dir + "/" + c.prefix
			}
			name := displayNameFromResult(c.result, srcDir)
			tasks = append(tasks, a.newTask(c.result, addon.SourceRoot{Dir: srcDir}, name))
		}
		return tasks, nil
	}

	var all []*addon.InstallTask
	for _, nf := range nestedFiles {
		if depth >= archivechain.MaxDepth {
			return nil, addonerr.New(addonerr.ArchiveBomb, "archive nesting exceeds maximum depth").WithPath(nf)
		}
		format, _ := archivechain.DetectFormat(nf)
		fullPath := dir + "/" + nf
		pw := passwordFor(passwords, nf)
		reader, err := a.cursor.Open(archivechain.NewNode(fullPath, format), pw)
		if err != nil {
			return nil, err
		}
		scope.TrackReader(reader)
		node := archivechain.NewNode(fullPath, format).WithPassword(pw)
		nextChain, err := archivechain.NewChain(append(chain.Nodes(), node)...)
		if err != nil {
			return nil, err
		}
		sub, err := a.resolveChain(ctx, scope, archiveNode{reader: reader, format: format, chain: nextChain}, passwords, depth+1)
		if err != nil {
			return nil, err
		}
		all = append(all, sub...)
	}
	if len(nestedFiles) == 0 {
		all = append(all, a.newTask(classify.Result{Kind: addon.Unrecognized}, addon.SourceRoot{Dir: dir}, filepath.Base(dir)))
	}
	return all, nil
}

func passwordFor(passwords archivechain.PasswordMap, name string) string {
	candidates := passwords.CandidatesFor(name)
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

// enumerate drains reader fully, returning every entry (files and
// implied directories) and, separately, the entries recognized as
// nested archive files. It never reads entry bodies except to skip
// past them, since Next() itself advances past the previous entry's
// content.
func enumerate(reader ports.ArchiveReader) ([]classify.Entry, []ports.ArchiveEntry, error) {
	var entries []classify.Entry
	var nested []ports.ArchiveEntry
	seenDirs := make(map[string]bool)
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, addonerr.New(addonerr.ArchiveCorrupt, "failed to enumerate archive entries").Wrap(err)
		}
		name := strings.TrimRight(strings.ReplaceAll(entry.Name, "\\", "/"), "/")
		if name == "" {
			continue
		}
		for _, d := range impliedDirs(name) {
			if !seenDirs[d] {
				seenDirs[d] = true
				entries = append(entries, classify.Entry{Path: d, IsDir: true})
			}
		}
		entries = append(entries, classify.Entry{Path: name, IsDir: entry.IsDir})
		if !entry.IsDir {
			if _, ok := archivechain.DetectFormat(name); ok {
				nested = append(nested, ports.ArchiveEntry{Name: name, IsDir: false, UncompressedSize: entry.UncompressedSize})
			}
		}
	}
	return entries, nested, nil
}

// advanceToEntry steps a freshly (re)opened zip reader forward until it
// reaches the entry named name, so Descend's StrategyMemory and
// StrategySpoolFile paths — which read whatever entry the reader is
// currently positioned at — read the right one. Safe for zip: Next()
// only ever closes the previous entry and opens the following one, so
// entries skipped along the way are never read.
func advanceToEntry(reader ports.ArchiveReader, name string) (ports.ArchiveEntry, error) {
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return ports.ArchiveEntry{}, addonerr.New(addonerr.ArchiveCorrupt, "nested archive entry vanished on reopen").WithPath(name)
		}
		if err != nil {
			return ports.ArchiveEntry{}, addonerr.New(addonerr.ArchiveCorrupt, "failed to re-enumerate archive entries").Wrap(err)
		}
		entryName := strings.TrimRight(strings.ReplaceAll(entry.Name, "\\", "/"), "/")
		if entryName == name {
			return entry, nil
		}
	}
}

func impliedDirs(name string) []string {
	parts := strings.Split(name, "/")
	var out []string
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], "/"))
	}
	return out
}

func joinRel(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "/" + b
}
