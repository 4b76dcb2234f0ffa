// Package classify implements the addon-kind classifier (§4.C): given
// the flat file listing of one candidate directory — whether that
// directory sits on a real filesystem or inside an archive chain
// cursor — decide which AddonKind it is, in the spec's first-match-wins
// signal order.
package classify

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/felixgeelhaar/addonctl/internal/domain/addon"
)

// Entry is one file or directory under a candidate root, with Path
// relative to that root using forward slashes.
type Entry struct {
	Path  string
	IsDir bool
}

// ContentReader reads the content of a file at a root-relative path,
// for the handful of signals that need to look inside a file rather
// than just see its name (the Navdata AIRAC cycle probe). It is
// optional — a nil reader simply skips those probes, still returning
// the correct Kind.
type ContentReader func(relPath string) ([]byte, error)

// Result is the classifier's verdict plus whatever per-kind metadata
// it could extract from the listing alone.
type Result struct {
	Kind addon.Kind
	// InternalRoot is the path, relative to the candidate root, that is
	// the actual addon root (e.g. the parent of the .acf file). Empty
	// means the candidate root itself is the addon root.
	InternalRoot string

	Navdata            *addon.NavdataCycle
	LiveryAircraftRef  string
	CompanionArtifacts []string
}

var (
	acfRe     = regexp.MustCompile(`(?i)\.acf$`)
	xplRe     = regexp.MustCompile(`(?i)\.xpl$`)
	dsfRe     = regexp.MustCompile(`(?i)\.dsf$`)
	luaRe     = regexp.MustCompile(`(?i)\.lua$`)
	textureRe = regexp.MustCompile(`(?i)\.(png|dds|bmp|tga)$`)
)

// Classify decides the AddonKind of the candidate root described by
// entries, applying the spec §4.C signals in order.
func Classify(entries []Entry, read ContentReader) Result {
	files := make([]string, 0, len(entries))
	dirSet := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir {
			dirSet[normDir(e.Path)] = true
			continue
		}
		files = append(files, e.Path)
	}
	sort.Strings(files)

	if root, ok := firstMatch(files, acfRe); ok {
		return Result{Kind: addon.Aircraft, InternalRoot: dirOf(root)}
	}

	if hasPlugin(files) {
		return Result{Kind: addon.Plugin}
	}

	if hasNavdata(files) {
		return Result{Kind: addon.Navdata, Navdata: probeCycle(files, read)}
	}

	if containsBase(files, "library.txt") {
		return Result{Kind: addon.SceneryLibrary}
	}

	if isSceneryShaped(files) {
		return Result{Kind: addon.Scenery}
	}

	if ref, ok := liveryHeuristic(files); ok {
		return Result{Kind: addon.Livery, LiveryAircraftRef: ref}
	}

	if scriptRoot, ok := firstMatch(files, luaRe); ok {
		return Result{
			Kind:               addon.Script,
			InternalRoot:       dirOf(scriptRoot),
			CompanionArtifacts: companionsOf(files, scriptRoot),
		}
	}

	return Result{Kind: addon.Unrecognized}
}

// dirOf is path.Dir, except that a file at the candidate root itself
// yields "" rather than ".".
func dirOf(p string) string {
	if d := path.Dir(p); d != "." {
		return d
	}
	return ""
}

func firstMatch(files []string, re *regexp.Regexp) (string, bool) {
	for _, f := range files {
		if re.MatchString(f) {
			return f, true
		}
	}
	return "", false
}

func containsBase(files []string, base string) bool {
	for _, f := range files {
		if strings.EqualFold(path.Base(f), base) {
			return true
		}
	}
	return false
}

func normDir(p string) string {
	return strings.Trim(path.Clean(p), "/")
}

func hasPlugin(files []string) bool {
	for _, f := range files {
		if !xplRe.MatchString(f) {
			continue
		}
		if strings.Contains(strings.ToLower(f), "plugins/") || !strings.Contains(f, "/") {
			return true
		}
	}
	return false
}

// navTableNames are the standalone navigation-database table files
// (waypoints, airways, navaids, …). apt.dat deliberately excluded: it
// carries airport layout data and belongs to the Scenery signal (§4.C
// signal 5), not a navdata package.
var navTableNames = map[string]bool{
	"earth_fix.dat": true, "earth_awy.dat": true, "earth_nav.dat": true,
	"earth_mora.dat": true, "earth_hold.dat": true, "earth_msa.dat": true,
	"earth_455.dat": true, "nav.dat": true, "fix.dat": true, "awy.dat": true,
}

func hasNavdata(files []string) bool {
	for _, f := range files {
		lower := strings.ToLower(f)
		if strings.Contains(lower, "earth nav data/") && navTableNames[path.Base(lower)] {
			return true
		}
	}
	return false
}

// probeCycle looks for an AIRAC cycle identifier in the header lines
// of an Earth nav data table file (apt.dat/nav.dat/earth_fix.dat/...).
// It returns nil when no ContentReader is available or no recognizable
// header is found — the Kind is still reported correctly either way.
func probeCycle(files []string, read ContentReader) *addon.NavdataCycle {
	if read == nil {
		return nil
	}
	for _, f := range files {
		lower := strings.ToLower(f)
		if !strings.Contains(lower, "earth nav data/") {
			continue
		}
		data, err := read(f)
		if err != nil {
			continue
		}
		if cycle, ok := parseCycleHeader(data); ok {
			return &addon.NavdataCycle{Cycle: cycle}
		}
	}
	return nil
}

var cycleRe = regexp.MustCompile(`(?i)(\d{4})\s*Version.*?[-,]?\s*(?:data\s*cycle\s*)?(\d{4})`)

func parseCycleHeader(data []byte) (string, bool) {
	lines := strings.SplitN(string(data), "\n", 6)
	for _, line := range lines {
		if m := cycleRe.FindStringSubmatch(line); m != nil {
			return m[2], true
		}
	}
	return "", false
}

func isSceneryShaped(files []string) bool {
	for _, f := range files {
		lower := strings.ToLower(f)
		if strings.HasSuffix(lower, "earth nav data/apt.dat") {
			return true
		}
		if dsfRe.MatchString(f) {
			return true
		}
	}
	return false
}

// liveryHeuristic is deliberately conservative: a "liveries"-named
// ancestor directory paired with texture files is a strong, common
// X-Plane convention; bare textures with no such marker are left
// Unrecognized rather than guessed at, per spec §9's instruction not
// to guess livery/aircraft matches.
func liveryHeuristic(files []string) (aircraftRef string, matched bool) {
	haveTexture := false
	for _, f := range files {
		if textureRe.MatchString(f) {
			haveTexture = true
			break
		}
	}
	if !haveTexture {
		return "", false
	}
	for _, f := range files {
		parts := strings.Split(f, "/")
		for i, seg := range parts {
			if strings.EqualFold(seg, "liveries") && i > 0 {
				return parts[i-1], true
			}
		}
	}
	return "", false
}

func companionsOf(files []string, scriptPath string) []string {
	dir := path.Dir(scriptPath)
	var companions []string
	for _, f := range files {
		if f == scriptPath {
			continue
		}
		if path.Dir(f) == dir {
			companions = append(companions, f)
		}
	}
	return companions
}
