package archivechain

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// Scope tracks every temporary file, directory, and opened reader
// acquired while walking one archive chain, and guarantees their
// release on Close regardless of how the walk ended (success, error,
// cancellation, or a recovered panic in the caller's defer chain).
type Scope struct {
	fs      ports.FileSystem
	baseDir string
	logger  ports.Logger

	mu      sync.Mutex
	dirs    []string
	files   []string
	readers []ports.ArchiveReader
	closed  bool
}

// NewScope creates a Scope rooted under baseDir (itself created if
// missing); every temp path it hands out lives under a unique
// subdirectory of baseDir so concurrent scopes never collide.
func NewScope(fs ports.FileSystem, baseDir string, logger ports.Logger) (*Scope, error) {
	root := baseDir + "/.install-temp-" + uuid.NewString()
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir %q: %w", root, err)
	}
	return &Scope{fs: fs, baseDir: root, logger: logger}, nil
}

// NewTempFilePath returns a unique path under the scope for a spooled
// archive, tagged with suffix (typically the nested archive's
// extension, since some decoders sniff by extension).
func (s *Scope) NewTempFilePath(suffix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := fmt.Sprintf("%s/spool-%s%s", s.baseDir, uuid.NewString(), suffix)
	s.files = append(s.files, path)
	return path
}

// NewTempDir creates and returns a unique sandboxed extraction
// directory under the scope.
func (s *Scope) NewTempDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := fmt.Sprintf("%s/extract-%s", s.baseDir, uuid.NewString())
	if err := s.fs.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create extraction dir %q: %w", path, err)
	}
	s.dirs = append(s.dirs, path)
	return path, nil
}

// TrackReader registers a reader to be closed when the scope closes,
// for callers that open nested readers before knowing whether the
// overall chain walk will succeed.
func (s *Scope) TrackReader(r ports.ArchiveReader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers = append(s.readers, r)
}

// Close releases every resource acquired through the scope: open
// readers first (some hold file handles on the temp files below),
// then the scope's root directory, whose removal also removes every
// temp file and temp directory nested under it.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	ctx := context.Background()
	for _, r := range s.readers {
		if err := r.Close(); err != nil && s.logger != nil {
			s.logger.Warn(ctx, "archive reader close failed during scope cleanup", ports.F("error", err.Error()))
		}
	}
	if err := s.fs.RemoveAll(s.baseDir); err != nil && s.logger != nil {
		s.logger.Warn(ctx, "scratch dir cleanup failed", ports.F("path", s.baseDir), ports.F("error", err.Error()))
	}
	return nil
}
