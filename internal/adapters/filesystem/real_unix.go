//go:build !windows

package filesystem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// IsJunction checks if path is a directory symlink. Unix has no
// junction concept distinct from a regular symlink.
func (fs *RealFileSystem) IsJunction(path string) (bool, string) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return false, ""
	}
	target, err := os.Readlink(path)
	if err != nil {
		return false, ""
	}
	if targetInfo, err := os.Stat(path); err == nil && targetInfo.IsDir() {
		return true, target
	}
	return false, ""
}

// CreateJunction is a symlink on Unix; junctions are Windows-only.
func (fs *RealFileSystem) CreateJunction(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("symlink (junction) %q -> %q: %w", link, target, err)
	}
	return nil
}

// CreateLink creates a symlink, which works uniformly for files and
// directories on Unix.
func (fs *RealFileSystem) CreateLink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("symlink %q -> %q: %w", link, target, err)
	}
	return nil
}

// SameVolume compares device IDs from stat(2); both paths must exist
// (or their nearest existing ancestor is used by the caller).
func (fs *RealFileSystem) SameVolume(a, b string) (bool, error) {
	var sa, sb unix.Stat_t
	if err := unix.Stat(a, &sa); err != nil {
		return false, fmt.Errorf("stat %q: %w", a, err)
	}
	if err := unix.Stat(b, &sb); err != nil {
		return false, fmt.Errorf("stat %q: %w", b, err)
	}
	return sa.Dev == sb.Dev, nil
}

// DiskFreeBytes returns the space available to an unprivileged caller
// (statfs(2) f_bavail, excluding root-reserved blocks) on the volume
// containing path.
func (fs *RealFileSystem) DiskFreeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %q: %w", path, err)
	}
	// #nosec G115 -- block counts/sizes are always non-negative on supported platforms
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
