// Package archivechain models a chain of nested archives — from the
// outermost user-provided file down to the innermost archive that
// actually contains an addon root — and drives the strategy-per-node
// extraction rules of a uniform streaming Cursor over ZIP, 7z, and RAR.
package archivechain

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// Format re-exports ports.ArchiveFormat so domain callers do not need
// to import ports just to name a format.
type Format = ports.ArchiveFormat

const (
	FormatZip      = ports.FormatZip
	FormatSevenZip = ports.FormatSevenZip
	FormatRar      = ports.FormatRar
)

// MaxDepth bounds how many archives may be nested inside one another.
// The spec requires chains to never cycle and to have bounded depth;
// this is the bound.
const MaxDepth = 8

// DetectFormat identifies an archive's format from its file name
// extension. It never inspects content — magic-byte sniffing happens
// once the file is actually opened, where a mismatch surfaces as
// ArchiveCorrupt rather than UnsupportedFormat.
func DetectFormat(name string) (Format, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, true
	case strings.HasSuffix(lower, ".7z"):
		return FormatSevenZip, true
	case strings.HasSuffix(lower, ".rar"):
		return FormatRar, true
	default:
		return "", false
	}
}

// Node is one link in a Chain: one archive file, optionally password
// protected, optionally rooted at an internal subdirectory rather than
// its own top level.
type Node struct {
	path         string
	format       Format
	password     string
	internalRoot string
}

// NewNode creates a Node for path in the given format.
func NewNode(path string, format Format) Node {
	return Node{path: path, format: format}
}

// Path returns the node's archive path (or, for a non-outermost node,
// a synthetic descriptor such as "outer.zip!inner.7z").
func (n Node) Path() string { return n.path }

// Format returns the node's archive format.
func (n Node) Format() Format { return n.format }

// Password returns the node's password, if any.
func (n Node) Password() string { return n.password }

// InternalRoot returns the path within this archive that is the
// actual addon root, if narrower than the archive's own top level.
func (n Node) InternalRoot() string { return n.internalRoot }

// WithPassword returns a copy of n with password set.
func (n Node) WithPassword(password string) Node {
	n.password = password
	return n
}

// WithInternalRoot returns a copy of n with internalRoot set.
func (n Node) WithInternalRoot(root string) Node {
	n.internalRoot = root
	return n
}

// Chain is an ordered list of nested archives, outermost first.
type Chain struct {
	nodes []Node
}

// NewChain validates and constructs a Chain. It rejects chains deeper
// than MaxDepth and chains that revisit the same (path, format) pair,
// which is the cycle guard the spec requires.
func NewChain(nodes ...Node) (Chain, error) {
	if len(nodes) == 0 {
		return Chain{}, addonerr.New(addonerr.Internal, "archive chain must have at least one node")
	}
	if len(nodes) > MaxDepth {
		return Chain{}, addonerr.New(addonerr.ArchiveBomb,
			fmt.Sprintf("archive nesting depth %d exceeds maximum %d", len(nodes), MaxDepth))
	}
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		key := n.path + "|" + string(n.format)
		if seen[key] {
			return Chain{}, addonerr.New(addonerr.ArchiveCorrupt, "archive chain revisits the same node: "+n.path)
		}
		seen[key] = true
	}
	out := make([]Node, len(nodes))
	copy(out, nodes)
	return Chain{nodes: out}, nil
}

// Nodes returns the chain's nodes, outermost first.
func (c Chain) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Depth reports how many archives deep the chain is.
func (c Chain) Depth() int { return len(c.nodes) }

// Outermost returns the first (user-provided) node.
func (c Chain) Outermost() Node { return c.nodes[0] }

// Innermost returns the last node, whose content is the addon root.
func (c Chain) Innermost() Node { return c.nodes[len(c.nodes)-1] }

// PasswordMap is the caller-supplied archivePath → password mapping,
// plus an optional unified password attempted first against any node
// that still fails without it.
type PasswordMap struct {
	unified string
	byPath  map[string]string
}

// NewPasswordMap creates an empty PasswordMap.
func NewPasswordMap() PasswordMap {
	return PasswordMap{byPath: make(map[string]string)}
}

// WithUnified returns a copy with the unified password set.
func (m PasswordMap) WithUnified(password string) PasswordMap {
	m.unified = password
	return m
}

// WithPath returns a copy with a per-archive password set.
func (m PasswordMap) WithPath(path, password string) PasswordMap {
	next := make(map[string]string, len(m.byPath)+1)
	for k, v := range m.byPath {
		next[k] = v
	}
	next[path] = password
	return PasswordMap{unified: m.unified, byPath: next}
}

// CandidatesFor returns the passwords to try for path, in order: the
// path-specific password first (if any), then the unified password
// (if any and different), then finally an empty string so unprotected
// archives still open.
func (m PasswordMap) CandidatesFor(path string) []string {
	var out []string
	if pw, ok := m.byPath[path]; ok {
		out = append(out, pw)
	}
	if m.unified != "" && m.unified != m.byPath[path] {
		out = append(out, m.unified)
	}
	out = append(out, "")
	return out
}
