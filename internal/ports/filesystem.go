// Package ports defines interfaces for external dependencies so domain
// packages can be tested against in-memory fakes instead of the real OS
// or network.
package ports

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo is a platform-neutral snapshot of file metadata.
type FileInfo struct {
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

// DirEntry is one child of a directory listing.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem provides every file system operation the install and
// scenery-indexing pipelines need. Implementations must never follow
// symlinks implicitly when the caller asks about the link itself
// (IsSymlink, Remove) — see spec §4.F "Symlinks".
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	IsDir(path string) bool
	IsSymlink(path string) (isLink bool, target string)

	// CreateSymlink recreates a file symlink pointing at target.
	CreateSymlink(target, link string) error
	// CreateLink recreates a link to target, choosing the
	// platform-appropriate mechanism for a directory vs. a file target
	// (see adapters/filesystem for the Windows junction fallback).
	CreateLink(target, link string) error

	Remove(path string) error
	RemoveAll(path string) error
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldPath, newPath string) error
	CopyFile(src, dest string) error
	FileHash(path string) (string, error)
	GetFileInfo(path string) (FileInfo, error)
	ReadDir(path string) ([]DirEntry, error)

	// SameVolume reports whether a and b live on the same filesystem
	// volume, i.e. whether os.Rename between them can be atomic.
	SameVolume(a, b string) (bool, error)
	// DiskFreeBytes returns free space on the volume containing path.
	DiskFreeBytes(path string) (uint64, error)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// MockFileSystem is an in-memory FileSystem test double. It models
// directories explicitly (empty directories are first-class, matching
// the real OS) and tracks symlinks separately from regular files.
type MockFileSystem struct {
	files    map[string][]byte
	modes    map[string]os.FileMode
	modTimes map[string]time.Time
	symlinks map[string]string
	dirs     map[string]bool
	// SameVolumeFunc, when set, overrides the default same-volume answer
	// (true) — use it to simulate cross-device staging in tests.
	SameVolumeFunc func(a, b string) (bool, error)
	// FreeBytes is returned by DiskFreeBytes for every path, unless
	// FreeBytesFunc is set.
	FreeBytes     uint64
	FreeBytesFunc func(path string) (uint64, error)
}

// NewMockFileSystem creates an empty MockFileSystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files:     make(map[string][]byte),
		modes:     make(map[string]os.FileMode),
		modTimes:  make(map[string]time.Time),
		symlinks:  make(map[string]string),
		dirs:      map[string]bool{"/": true},
		FreeBytes: 100 << 30, // 100 GiB default headroom
	}
}

func clean(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// AddFile seeds a file with content, creating parent directories.
func (fs *MockFileSystem) AddFile(path string, content []byte) {
	path = clean(path)
	fs.ensureParents(path)
	fs.files[path] = content
	if _, ok := fs.modTimes[path]; !ok {
		fs.modTimes[path] = time.Now()
	}
	if _, ok := fs.modes[path]; !ok {
		fs.modes[path] = 0o644
	}
}

// AddDir seeds an empty directory, creating parents.
func (fs *MockFileSystem) AddDir(path string) {
	path = clean(path)
	fs.dirs[path] = true
	fs.ensureParents(path)
}

// AddSymlink seeds a symlink.
func (fs *MockFileSystem) AddSymlink(link, target string) {
	link = clean(link)
	fs.ensureParents(link)
	fs.symlinks[link] = target
}

// SetModTime overrides the recorded modification time of path.
func (fs *MockFileSystem) SetModTime(path string, t time.Time) {
	fs.modTimes[clean(path)] = t
}

func (fs *MockFileSystem) ensureParents(path string) {
	dir := filepath.ToSlash(filepath.Dir(path))
	for dir != "." && dir != "/" && dir != "" {
		fs.dirs[dir] = true
		next := filepath.ToSlash(filepath.Dir(dir))
		if next == dir {
			break
		}
		dir = next
	}
}

func (fs *MockFileSystem) ReadFile(path string) ([]byte, error) {
	path = clean(path)
	if content, ok := fs.files[path]; ok {
		return content, nil
	}
	return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

func (fs *MockFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	path = clean(path)
	fs.ensureParents(path)
	cp := make([]byte, len(data))
	copy(cp, data)
	fs.files[path] = cp
	fs.modes[path] = perm
	fs.modTimes[path] = time.Now()
	return nil
}

func (fs *MockFileSystem) Exists(path string) bool {
	path = clean(path)
	_, isFile := fs.files[path]
	_, isLink := fs.symlinks[path]
	_, isDir := fs.dirs[path]
	return isFile || isLink || isDir
}

func (fs *MockFileSystem) IsDir(path string) bool {
	return fs.dirs[clean(path)]
}

func (fs *MockFileSystem) IsSymlink(path string) (bool, string) {
	if target, ok := fs.symlinks[clean(path)]; ok {
		return true, target
	}
	return false, ""
}

func (fs *MockFileSystem) CreateSymlink(target, link string) error {
	fs.AddSymlink(link, target)
	return nil
}

func (fs *MockFileSystem) CreateLink(target, link string) error {
	return fs.CreateSymlink(target, link)
}

func (fs *MockFileSystem) Remove(path string) error {
	path = clean(path)
	if !fs.Exists(path) {
		return fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	delete(fs.files, path)
	delete(fs.symlinks, path)
	delete(fs.modes, path)
	delete(fs.modTimes, path)
	delete(fs.dirs, path)
	return nil
}

func (fs *MockFileSystem) RemoveAll(path string) error {
	path = clean(path)
	prefix := path + "/"
	for p := range fs.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.files, p)
			delete(fs.modes, p)
			delete(fs.modTimes, p)
		}
	}
	for p := range fs.symlinks {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.symlinks, p)
		}
	}
	for p := range fs.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.dirs, p)
		}
	}
	return nil
}

func (fs *MockFileSystem) MkdirAll(path string, _ os.FileMode) error {
	fs.AddDir(path)
	return nil
}

func (fs *MockFileSystem) Rename(oldPath, newPath string) error {
	oldPath, newPath = clean(oldPath), clean(newPath)
	fs.ensureParents(newPath)

	moved := false
	if content, ok := fs.files[oldPath]; ok {
		fs.files[newPath] = content
		fs.modes[newPath] = fs.modes[oldPath]
		fs.modTimes[newPath] = fs.modTimes[oldPath]
		delete(fs.files, oldPath)
		delete(fs.modes, oldPath)
		delete(fs.modTimes, oldPath)
		moved = true
	}
	if target, ok := fs.symlinks[oldPath]; ok {
		fs.symlinks[newPath] = target
		delete(fs.symlinks, oldPath)
		moved = true
	}
	if fs.dirs[oldPath] {
		prefix := oldPath + "/"
		for p := range fs.files {
			if strings.HasPrefix(p, prefix) {
				np := newPath + "/" + strings.TrimPrefix(p, prefix)
				fs.files[np] = fs.files[p]
				fs.modes[np] = fs.modes[p]
				fs.modTimes[np] = fs.modTimes[p]
				delete(fs.files, p)
				delete(fs.modes, p)
				delete(fs.modTimes, p)
			}
		}
		for p := range fs.dirs {
			if p == oldPath || strings.HasPrefix(p, prefix) {
				np := newPath + strings.TrimPrefix(p, oldPath)
				fs.dirs[np] = true
				delete(fs.dirs, p)
			}
		}
		moved = true
	}
	if !moved {
		return fmt.Errorf("%s: %w", oldPath, os.ErrNotExist)
	}
	return nil
}

func (fs *MockFileSystem) CopyFile(src, dest string) error {
	content, err := fs.ReadFile(src)
	if err != nil {
		return err
	}
	perm := fs.modes[clean(src)]
	if perm == 0 {
		perm = 0o644
	}
	return fs.WriteFile(dest, content, perm)
}

func (fs *MockFileSystem) FileHash(path string) (string, error) {
	content, err := fs.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mock:%x:%x", len(content), content), nil
}

func (fs *MockFileSystem) GetFileInfo(path string) (FileInfo, error) {
	path = clean(path)
	if fs.dirs[path] {
		return FileInfo{IsDir: true, Mode: os.ModeDir | 0o755, ModTime: fs.modTimes[path]}, nil
	}
	if content, ok := fs.files[path]; ok {
		mode := fs.modes[path]
		if mode == 0 {
			mode = 0o644
		}
		return FileInfo{Size: int64(len(content)), Mode: mode, ModTime: fs.modTimes[path]}, nil
	}
	return FileInfo{}, fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

func (fs *MockFileSystem) ReadDir(path string) ([]DirEntry, error) {
	path = clean(path)
	if !fs.dirs[path] {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	seen := make(map[string]bool)
	var entries []DirEntry
	prefix := path + "/"
	if path == "/" {
		prefix = "/"
	}
	collect := func(p string, isDir bool) {
		if p == path || !strings.HasPrefix(p, prefix) {
			return
		}
		rest := strings.TrimPrefix(p, prefix)
		name := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			name = rest[:idx]
			isDir = true
		}
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		entries = append(entries, DirEntry{Name: name, IsDir: isDir})
	}
	for p := range fs.files {
		collect(p, false)
	}
	for p := range fs.symlinks {
		collect(p, false)
	}
	for p := range fs.dirs {
		collect(p, true)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (fs *MockFileSystem) SameVolume(a, b string) (bool, error) {
	if fs.SameVolumeFunc != nil {
		return fs.SameVolumeFunc(a, b)
	}
	return true, nil
}

func (fs *MockFileSystem) DiskFreeBytes(path string) (uint64, error) {
	if fs.FreeBytesFunc != nil {
		return fs.FreeBytesFunc(path)
	}
	return fs.FreeBytes, nil
}

var _ FileSystem = (*MockFileSystem)(nil)
