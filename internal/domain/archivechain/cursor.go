package archivechain

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/pathsafety"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// Strategy is the per-node descent strategy chosen when one archive
// contains another, per spec §4.B.
type Strategy int

const (
	// StrategyMemory buffers a nested ZIP-in-ZIP entirely in memory
	// when its declared size is within the configured threshold.
	StrategyMemory Strategy = iota
	// StrategySpoolFile writes a nested entry to a uniquely-named
	// temporary file and reopens it there; used for ZIP-in-ZIP above
	// the memory threshold, and always for a non-ZIP format nested
	// inside a ZIP (those decoders require file-backed access).
	StrategySpoolFile
	// StrategyExtractDir fully extracts the current archive to a
	// sandboxed temporary directory before looking for the nested
	// archive inside it; used whenever the outer archive is 7z or
	// RAR, since neither library exposes the random, partial access
	// ZIP does.
	StrategyExtractDir
)

// ChooseStrategy picks the descent strategy for nesting innerFormat
// inside an archive of outerFormat, given the nested entry's declared
// uncompressed size and the configured in-memory threshold M.
func ChooseStrategy(outerFormat, innerFormat Format, declaredSize, memThreshold int64) Strategy {
	switch outerFormat {
	case FormatZip:
		if innerFormat == FormatZip && declaredSize <= memThreshold {
			return StrategyMemory
		}
		return StrategySpoolFile
	case FormatSevenZip, FormatRar:
		return StrategyExtractDir
	default:
		return StrategySpoolFile
	}
}

// Cursor opens chain nodes against a registry of format-specific
// openers, applying the §4.B descent strategies when moving from one
// node to the next.
type Cursor struct {
	fs           ports.FileSystem
	openers      map[Format]ports.ArchiveOpener
	memThreshold int64
	logger       ports.Logger
}

// NewCursor creates a Cursor. memThreshold is M, the in-memory
// ZIP-in-ZIP buffering limit in bytes (default 200 MiB, see spec
// §4.B).
func NewCursor(fs ports.FileSystem, openers map[Format]ports.ArchiveOpener, memThreshold int64, logger ports.Logger) *Cursor {
	return &Cursor{fs: fs, openers: openers, memThreshold: memThreshold, logger: logger}
}

// Open opens node's own archive file directly with the given
// password, without any nesting considerations.
func (c *Cursor) Open(node Node, password string) (ports.ArchiveReader, error) {
	opener, ok := c.openers[node.Format()]
	if !ok {
		return nil, addonerr.New(addonerr.UnsupportedFormat, "no reader registered for format "+string(node.Format())).WithPath(node.Path())
	}
	r, err := opener.Open(node.Path(), password)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// OpenWithPasswords tries every password candidate for node.Path() in
// order (see PasswordMap.CandidatesFor), returning the first
// successful reader. If every candidate fails with WrongPassword, the
// last such error is returned so the caller can prompt for a new one.
func (c *Cursor) OpenWithPasswords(node Node, passwords PasswordMap) (ports.ArchiveReader, error) {
	var lastErr error
	for _, pw := range passwords.CandidatesFor(node.Path()) {
		r, err := c.Open(node, pw)
		if err == nil {
			return r, nil
		}
		lastErr = err
		if !errors.Is(err, addonerr.ErrWrongPassword) {
			return nil, err
		}
	}
	return nil, lastErr
}

// Descend opens the nested archive described by nextEntry, found
// inside the archive currently being read through reader (of
// outerFormat), applying the appropriate strategy. scope owns every
// temporary resource Descend allocates.
//
// For StrategyMemory and StrategySpoolFile, reader must already be
// positioned at nextEntry (i.e. the caller's most recent Next() call
// returned it) — Descend reads that entry's bytes via io.ReadAll.
// For StrategyExtractDir, reader must instead be completely
// unconsumed: the whole archive is drained entry-by-entry into a
// fresh temp directory, and extractedDir is returned alongside the
// nested reader so the caller (the analyzer) can also inspect sibling
// files in the same directory if the addon root spans more than the
// one nested archive.
func (c *Cursor) Descend(scope *Scope, reader ports.ArchiveReader, outerFormat Format, nextEntry ports.ArchiveEntry, password string) (next ports.ArchiveReader, extractedDir string, err error) {
	innerFormat, ok := DetectFormat(nextEntry.Name)
	if !ok {
		return nil, "", addonerr.New(addonerr.UnsupportedFormat, "nested entry is not a recognized archive format").WithPath(nextEntry.Name)
	}
	opener, ok := c.openers[innerFormat]
	if !ok {
		return nil, "", addonerr.New(addonerr.UnsupportedFormat, "no reader registered for format "+string(innerFormat)).WithPath(nextEntry.Name)
	}

	switch ChooseStrategy(outerFormat, innerFormat, nextEntry.UncompressedSize, c.memThreshold) {
	case StrategyMemory:
		data, rerr := io.ReadAll(reader)
		if rerr != nil {
			return nil, "", addonerr.New(addonerr.ArchiveCorrupt, "failed to buffer nested archive in memory").WithPath(nextEntry.Name).Wrap(rerr)
		}
		r, oerr := opener.OpenMemory(data, password)
		if oerr != nil {
			// Fall back to spooling to disk on resource exhaustion or
			// an opener that has no in-memory path.
			return c.spoolBytesAndOpen(scope, data, innerFormat, opener, password, nextEntry.Name)
		}
		scope.TrackReader(r)
		return r, "", nil

	case StrategySpoolFile:
		return c.spoolReaderAndOpen(scope, reader, innerFormat, opener, password, nextEntry.Name)

	case StrategyExtractDir:
		dir, derr := scope.NewTempDir()
		if derr != nil {
			return nil, "", derr
		}
		if err := c.ExtractAll(reader, dir); err != nil {
			return nil, "", err
		}
		nestedPath := filepath.Join(dir, filepath.FromSlash(nextEntry.Name))
		r, oerr := opener.Open(nestedPath, password)
		if oerr != nil {
			return nil, dir, oerr
		}
		scope.TrackReader(r)
		return r, dir, nil

	default:
		return nil, "", addonerr.New(addonerr.Internal, "unreachable descent strategy")
	}
}

// OpenChain opens every node of chain in turn, descending from the
// outermost archive down to chain.Innermost(), and returns a reader
// positioned at the innermost node's own content. Every intermediate
// reader Descend opens is tracked on scope for cleanup; the outermost
// reader is tracked here since Open does not track on the caller's
// behalf. It assumes each non-outermost node's Path was composed as
// parent.Path()+"!"+entryName (see the analyzer's chain construction),
// so the nested entry name at each level is recovered by trimming the
// parent's path prefix.
func (c *Cursor) OpenChain(scope *Scope, chain Chain) (ports.ArchiveReader, error) {
	nodes := chain.Nodes()
	reader, err := c.Open(nodes[0], nodes[0].Password())
	if err != nil {
		return nil, err
	}
	scope.TrackReader(reader)
	outerFormat := nodes[0].Format()

	for i := 1; i < len(nodes); i++ {
		entryName := strings.TrimPrefix(nodes[i].Path(), nodes[i-1].Path()+"!")
		entry := ports.ArchiveEntry{Name: entryName}
		// StrategyExtractDir (outer is 7z/RAR) only ever needs the
		// entry's Name, read back off disk after a full extraction, so
		// the reader is left completely unconsumed. StrategyMemory and
		// StrategySpoolFile (outer is ZIP) instead read whatever the
		// reader is currently positioned at, so the matching entry must
		// be located first.
		if outerFormat == FormatZip {
			entry, err = c.advanceToNamedEntry(reader, entryName)
			if err != nil {
				return nil, err
			}
		}
		next, _, err := c.Descend(scope, reader, outerFormat, entry, nodes[i].Password())
		if err != nil {
			return nil, err
		}
		reader = next
		outerFormat = nodes[i].Format()
	}
	return reader, nil
}

func (c *Cursor) advanceToNamedEntry(reader ports.ArchiveReader, name string) (ports.ArchiveEntry, error) {
	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return ports.ArchiveEntry{}, addonerr.New(addonerr.ArchiveCorrupt, "nested archive entry not found while reopening chain").WithPath(name)
		}
		if err != nil {
			return ports.ArchiveEntry{}, addonerr.New(addonerr.ArchiveCorrupt, "failed to enumerate archive entries").Wrap(err)
		}
		entryName := strings.TrimRight(strings.ReplaceAll(entry.Name, "\\", "/"), "/")
		if entryName == name {
			return entry, nil
		}
	}
}

func (c *Cursor) spoolBytesAndOpen(scope *Scope, data []byte, format Format, opener ports.ArchiveOpener, password, entryName string) (ports.ArchiveReader, string, error) {
	return c.spoolReaderAndOpen(scope, bytes.NewReader(data), format, opener, password, entryName)
}

func (c *Cursor) spoolReaderAndOpen(scope *Scope, src io.Reader, format Format, opener ports.ArchiveOpener, password, entryName string) (ports.ArchiveReader, string, error) {
	tmpPath := scope.NewTempFilePath(filepath.Ext(entryName))
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", addonerr.New(addonerr.ArchiveCorrupt, "failed to read nested archive for spooling").WithPath(entryName).Wrap(err)
	}
	if err := c.fs.WriteFile(tmpPath, data, 0o600); err != nil {
		return nil, "", addonerr.New(addonerr.Internal, "failed to spool nested archive to a temp file").WithPath(entryName).Wrap(err)
	}
	r, err := opener.Open(tmpPath, password)
	if err != nil {
		return nil, "", err
	}
	scope.TrackReader(r)
	return r, "", nil
}

// ExtractAll drains reader entirely into destDir, sanitizing every
// entry name against path traversal. It buffers each file fully in
// memory before writing — acceptable here because StrategyExtractDir
// is reserved for the comparatively rare case of an archive nested
// inside 7z/RAR, not the hot path of ordinary installs.
func (c *Cursor) ExtractAll(reader ports.ArchiveReader, destDir string) error {
	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return addonerr.New(addonerr.ArchiveCorrupt, "failed to enumerate archive entries").Wrap(err)
		}
		if entry.IsDir {
			continue
		}
		safePath, err := pathsafety.SanitizeEntryName(entry.Name, destDir)
		if err != nil {
			return err
		}
		if err := c.fs.MkdirAll(filepath.Dir(safePath), 0o755); err != nil {
			return addonerr.New(addonerr.Internal, "failed to create extraction parent directory").WithPath(safePath).Wrap(err)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return addonerr.New(addonerr.ArchiveCorrupt, "failed to read archive entry").WithPath(entry.Name).Wrap(err)
		}
		if err := c.fs.WriteFile(safePath, data, 0o644); err != nil {
			return addonerr.New(addonerr.Internal, "failed to write extracted file").WithPath(safePath).Wrap(err)
		}
	}
}
