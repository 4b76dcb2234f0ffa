package analyzer

import (
	"path"
	"sort"
	"strings"

	"github.com/felixgeelhaar/addonctl/internal/domain/classify"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// walkDir recursively lists every entry under root, relative to root,
// using forward slashes regardless of host OS.
func walkDir(fs ports.FileSystem, root string) ([]classify.Entry, error) {
	var entries []classify.Entry
	var recurse func(relPrefix, absDir string) error
	recurse = func(relPrefix, absDir string) error {
		children, err := fs.ReadDir(absDir)
		if err != nil {
			return err
		}
		for _, c := range children {
			rel := c.Name
			if relPrefix != "" {
				rel = relPrefix + "/" + c.Name
			}
			entries = append(entries, classify.Entry{Path: rel, IsDir: c.IsDir})
			if c.IsDir {
				if err := recurse(rel, absDir+"/"+c.Name); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := recurse("", strings.TrimRight(root, "/")); err != nil {
		return nil, err
	}
	return entries, nil
}

// candidateRoot is one classified addon root found while searching a
// tree of entries, at some prefix relative to the original input.
type candidateRoot struct {
	prefix string // relative path from the input root to the addon root's parent
	result classify.Result
}

// maxRootSearchDepth bounds how many levels of subdirectory the
// root-finder descends looking for nested addon roots inside a bundle
// (e.g. an archive containing several aircraft side by side).
const maxRootSearchDepth = 4

// findRoots searches entries (already relative to some base) for one
// or more classified addon roots, descending into subdirectories when
// the top level does not resolve to a known kind, or resolves to one
// whose root lies in a subdirectory — this is how a bundle archive
// containing several aircraft yields one task per aircraft (§4.D).
// When the descent finds at most one root, the top-level result is
// kept.
func findRoots(entries []classify.Entry, read classify.ContentReader, depth int) []candidateRoot {
	result := classify.Classify(entries, read)
	recognized := result.Kind != "" && result.Kind != "Unrecognized"
	if recognized && result.InternalRoot == "" {
		return []candidateRoot{{prefix: "", result: result}}
	}
	if depth >= maxRootSearchDepth {
		if recognized {
			return []candidateRoot{{prefix: "", result: result}}
		}
		return nil
	}

	topDirs := topLevelDirs(entries)
	sort.Strings(topDirs)

	var out []candidateRoot
	for _, d := range topDirs {
		sub := subset(entries, d)
		subRead := rebaseReader(read, d)
		for _, c := range findRoots(sub, subRead, depth+1) {
			full := d
			if c.prefix != "" {
				full = d + "/" + c.prefix
			}
			out = append(out, candidateRoot{prefix: full, result: c.result})
		}
	}
	if recognized && len(out) <= 1 {
		return []candidateRoot{{prefix: "", result: result}}
	}
	return out
}

func topLevelDirs(entries []classify.Entry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		if strings.Contains(e.Path, "/") {
			continue
		}
		if !seen[e.Path] {
			seen[e.Path] = true
			out = append(out, e.Path)
		}
	}
	return out
}

func subset(entries []classify.Entry, prefix string) []classify.Entry {
	p := prefix + "/"
	var out []classify.Entry
	for _, e := range entries {
		if e.Path == prefix {
			continue
		}
		if strings.HasPrefix(e.Path, p) {
			out = append(out, classify.Entry{Path: strings.TrimPrefix(e.Path, p), IsDir: e.IsDir})
		}
	}
	return out
}

func rebaseReader(read classify.ContentReader, prefix string) classify.ContentReader {
	if read == nil {
		return nil
	}
	return func(relPath string) ([]byte, error) {
		return read(path.Join(prefix, relPath))
	}
}
