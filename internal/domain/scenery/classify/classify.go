// Package classify implements the scenery-package classifier (§4.G):
// given one candidate scenery directory's file listing and DSF header
// probes, decide which of scenery.Category it belongs to, its
// tie-breaking sub-priority, and its library references.
package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/felixgeelhaar/addonctl/internal/domain/scenery"
)

// Entry is one file or directory under a candidate scenery root, with
// Path relative to that root using forward slashes.
type Entry struct {
	Path  string
	IsDir bool
}

// DSFHeader is the string key/value property set read from one DSF
// tile's header (e.g. "sim/overlay", "sim/creation_agent"). Parsing
// the DSF binary format itself is outside this package — callers
// supply a DSFProbe that already did that.
type DSFHeader map[string]string

// DSFProbe reads and parses the header properties of the DSF tile at
// relPath, returning ok=false if relPath isn't a DSF file or its
// header couldn't be read. A nil probe simply disables the
// header-dependent signals (creation_agent/overlay), still producing
// the file-listing-derived signals correctly.
type DSFProbe func(relPath string) (DSFHeader, bool)

var (
	dsfRe        = regexp.MustCompile(`(?i)\.dsf$`)
	aptDatRe     = regexp.MustCompile(`(?i)^Earth nav data/apt\.dat$`)
	terrainDefRe = regexp.MustCompile(`(?i)TERRAIN_DEF`)
	wordSplitRe  = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// Classify decides folderName's scenery.Category, sub-priority and
// flags from its file listing, applying the §4.G signals in their
// documented first-match-wins order.
func Classify(folderName string, entries []Entry, probeDSF DSFProbe) scenery.Signature {
	sig := scenery.Signature{FolderName: folderName}

	var files []string
	for _, e := range entries {
		if !e.IsDir {
			files = append(files, normalizePath(e.Path))
		}
	}

	sig.Flags = scanFlags(files)
	dsfTiles := dsfFiles(files)

	switch {
	case sig.Flags.HasLibraryTxt && !hasEarthNavData(files):
		sig.Category = scenery.Library
		if containsStandaloneWord(folderName, "sam") {
			sig.Category = scenery.FixedHighPriority
		}

	case sig.Flags.HasAptDat || dsfHeaderMatches(dsfTiles, probeDSF, "sim/creation_agent", "WorldEditor"):
		sig.Category = scenery.Airport

	case dsfHeaderMatches(dsfTiles, probeDSF, "sim/overlay", "1"):
		sig.Category = scenery.Overlay

	case hasEarthNavData(files) && len(dsfTiles) > 0 && !sig.Flags.HasAptDat:
		sig.Category = scenery.Mesh
		sig.SubPriority = meshSubPriority(folderName, dsfTiles, probeDSF)

	case containsAnyBase(files, terrainDefRe):
		sig.Category = scenery.Mesh
		sig.SubPriority = scenery.MeshSubGeneric

	default:
		sig.Category = scenery.Other
	}

	return sig
}

func scanFlags(files []string) scenery.Flags {
	var f scenery.Flags
	for _, p := range files {
		lower := strings.ToLower(p)
		switch {
		case aptDatRe.MatchString(p):
			f.HasAptDat = true
		case dsfRe.MatchString(p):
			f.HasDSF = true
		case strings.EqualFold(baseName(p), "library.txt"):
			f.HasLibraryTxt = true
		case strings.Contains(lower, "/textures/") || strings.HasPrefix(lower, "textures/"):
			f.HasTextures = true
		case strings.Contains(lower, "/objects/") || strings.HasPrefix(lower, "objects/"):
			f.HasObjects = true
		}
	}
	return f
}

func hasEarthNavData(files []string) bool {
	for _, p := range files {
		if strings.Contains(strings.ToLower(p), "earth nav data/") {
			return true
		}
	}
	return false
}

func dsfFiles(files []string) []string {
	var out []string
	for _, p := range files {
		if dsfRe.MatchString(p) {
			out = append(out, p)
		}
	}
	return out
}

func dsfHeaderMatches(dsfTiles []string, probe DSFProbe, key, value string) bool {
	if probe == nil {
		return false
	}
	for _, tile := range dsfTiles {
		header, ok := probe(tile)
		if !ok {
			continue
		}
		if v, ok := header[key]; ok && strings.HasPrefix(v, value) {
			return true
		}
	}
	return false
}

// meshSubPriority breaks ties within the Mesh category (§4.I): an
// Ortho4XP-authored tile sorts first, a folder name containing "xpme"
// sorts last, everything else in between.
func meshSubPriority(folderName string, dsfTiles []string, probe DSFProbe) int {
	if containsStandaloneWord(folderName, "xpme") {
		return scenery.MeshSubXpme
	}
	if probe != nil {
		for _, tile := range dsfTiles {
			if header, ok := probe(tile); ok {
				if agent, ok := header["sim/creation_agent"]; ok && strings.Contains(agent, "Ortho4XP") {
					return scenery.MeshSubOrtho
				}
			}
		}
	}
	return scenery.MeshSubGeneric
}

func containsAnyBase(files []string, re *regexp.Regexp) bool {
	for _, p := range files {
		if re.MatchString(baseName(p)) {
			return true
		}
	}
	return false
}

// containsStandaloneWord reports whether token appears as a whole
// word in s once split on non-alphanumeric separators and on
// lower-to-upper case changes, so e.g. "SAM" matches "OpenSAM_Library"
// but "samurai" does not (§4.G signal 1).
func containsStandaloneWord(s, token string) bool {
	for _, word := range wordSplitRe.Split(s, -1) {
		start := 0
		for i := 1; i <= len(word); i++ {
			if i < len(word) && !(word[i-1] >= 'a' && word[i-1] <= 'z' && word[i] >= 'A' && word[i] <= 'Z') {
				continue
			}
			if strings.EqualFold(word[start:i], token) {
				return true
			}
			start = i
		}
	}
	return false
}

func normalizePath(p string) string {
	return strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/")
}

func baseName(p string) string {
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

// ReferencedLibraries extracts the library folder names a package
// depends on, by matching tokens from its library.txt declarations and
// its DSF object/terrain resource paths against known library folder
// names as whole leading path segments (§4.G "Library references are
// collected from library.txt and scenery DSF object/terrain
// references").
func ReferencedLibraries(libraryTxt []byte, dsfResourcePaths []string, known map[string]bool) []string {
	seen := make(map[string]bool)
	add := func(ref string) {
		ref = normalizePath(ref)
		for name := range known {
			if ref == name || strings.HasPrefix(ref, name+"/") {
				seen[name] = true
			}
		}
	}
	for _, line := range strings.Split(string(libraryTxt), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Fields(line) {
			add(field)
		}
	}
	for _, p := range dsfResourcePaths {
		add(p)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MissingLibraries returns the subset of required not present in
// known, sorted for deterministic output.
func MissingLibraries(required []string, known map[string]bool) []string {
	var out []string
	for _, r := range required {
		if !known[r] {
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}
