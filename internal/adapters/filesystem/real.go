// Package filesystem provides the production ports.FileSystem adapter
// backed by the real operating system.
package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// RealFileSystem implements ports.FileSystem using actual OS calls.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

func (fs *RealFileSystem) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}

func (fs *RealFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (fs *RealFileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsSymlink reports whether path is itself a symlink, without
// following it, and returns its raw target.
func (fs *RealFileSystem) IsSymlink(path string) (bool, string) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return false, ""
	}
	target, err := os.Readlink(path)
	if err != nil {
		return true, ""
	}
	return true, target
}

func (fs *RealFileSystem) CreateSymlink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("symlink %q -> %q: %w", link, target, err)
	}
	return nil
}

func (fs *RealFileSystem) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove all %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("mkdir %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("rename %q -> %q: %w", oldPath, newPath, err)
	}
	return nil
}

// CopyFile copies a regular file's bytes and permission bits. Callers
// are responsible for routing symlinks through CreateLink instead —
// CopyFile never dereferences a link on the caller's behalf beyond
// what os.Open/os.Stat already do for a path that is itself a file.
func (fs *RealFileSystem) CopyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %q: open source: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copy %q: stat source: %w", src, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("copy %q: open dest %q: %w", src, dest, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %q -> %q: %w", src, dest, err)
	}
	return out.Sync()
}

func (fs *RealFileSystem) FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (fs *RealFileSystem) GetFileInfo(path string) (ports.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ports.FileInfo{}, fmt.Errorf("stat %q: %w", path, err)
	}
	return ports.FileInfo{
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

func (fs *RealFileSystem) ReadDir(path string) ([]ports.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("readdir %q: %w", path, err)
	}
	out := make([]ports.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ports.DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Note: SameVolume, DiskFreeBytes, IsJunction, CreateJunction, and
// CreateLink are implemented in real_unix.go and real_windows.go with
// build constraints, since they need raw platform syscalls.

var _ ports.FileSystem = (*RealFileSystem)(nil)

// EnsureParentDir is a small helper used by callers that are about to
// write a file whose parent directory may not exist yet.
func EnsureParentDir(fsys ports.FileSystem, path string, perm os.FileMode) error {
	return fsys.MkdirAll(filepath.Dir(path), perm)
}
