// Package pathsafety sanitizes archive entry names against a trusted
// destination root and guards against archive bombs during extraction.
package pathsafety

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
)

// reservedWindowsNames are component names that are reserved device
// names on Windows regardless of extension (CON.txt is still reserved).
var reservedWindowsNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeEntryName validates a raw archive entry name and resolves it
// to an absolute path inside destRoot, or returns an *addonerr.Error of
// kind UnsafeEntryName. destRoot must already be an absolute, clean
// path.
func SanitizeEntryName(raw, destRoot string) (string, error) {
	if raw == "" {
		return "", unsafeEntry(raw, "empty entry name")
	}
	if hasAbsoluteOrDrivePrefix(raw) {
		return "", unsafeEntry(raw, "absolute or drive/UNC-prefixed entry name")
	}

	components := splitAnySeparator(raw)
	if len(components) == 0 {
		return "", unsafeEntry(raw, "entry name has no path components")
	}

	cleanComponents := make([]string, 0, len(components))
	for _, c := range components {
		if c == "" || c == "." {
			continue
		}
		if c == ".." {
			return "", unsafeEntry(raw, "entry name contains a parent-directory traversal component")
		}
		if containsControlChar(c) {
			return "", unsafeEntry(raw, "entry name contains control characters")
		}
		if reservedWindowsNames[strings.ToUpper(stemWithoutExt(c))] {
			return "", unsafeEntry(raw, "entry name component is a reserved device name")
		}
		// Normalize to NFC for comparison purposes only; the joined
		// result below uses the normalized form so that visually
		// identical but differently-encoded Unicode sequences cannot
		// be used to smuggle a path past later string comparisons.
		cleanComponents = append(cleanComponents, norm.NFC.String(c))
	}
	if len(cleanComponents) == 0 {
		return "", unsafeEntry(raw, "entry name resolves to the destination root itself")
	}

	joined := filepath.Join(append([]string{destRoot}, cleanComponents...)...)
	joined = filepath.Clean(joined)

	root := filepath.Clean(destRoot)
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", unsafeEntry(raw, "sanitized path escapes destination root")
	}
	return joined, nil
}

func unsafeEntry(raw, reason string) *addonerr.Error {
	return addonerr.New(addonerr.UnsafeEntryName, reason).WithPath(raw)
}

func hasAbsoluteOrDrivePrefix(raw string) bool {
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "\\") {
		return true
	}
	// UNC prefix (\\server\share) or drive letter (C:\, C:/).
	if strings.HasPrefix(raw, `\\`) {
		return true
	}
	if len(raw) >= 2 && raw[1] == ':' {
		c := raw[0]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}

func splitAnySeparator(raw string) []string {
	normalized := strings.ReplaceAll(raw, "\\", "/")
	return strings.FieldsFunc(normalized, func(r rune) bool { return r == '/' })
}

func containsControlChar(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

func stemWithoutExt(name string) string {
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		return name[:idx]
	}
	return name
}

// Bomb detection thresholds (see spec §4.A); R is the
// declared-to-compressed ratio, S the absolute declared-bytes cap.
// HardMultiplier scales R into a hard abort ceiling rather than a
// confirmable warning.
const (
	DefaultRatio          = 100
	DefaultAbsoluteBytes  = 10 << 30 // 10 GiB
	DefaultHardMultiplier = 10
)

// BombGuard accumulates declared-uncompressed-size observations across
// one archive's entries and reports whether the running totals cross
// the warning or hard-abort thresholds.
type BombGuard struct {
	ratio          float64
	absoluteBytes  int64
	hardMultiplier float64

	compressedSize int64
	entries        int
	sumDeclared    int64
}

// NewBombGuard creates a guard for an archive whose on-disk
// (compressed) size is compressedSize bytes, using the default
// thresholds.
func NewBombGuard(compressedSize int64) *BombGuard {
	return &BombGuard{
		ratio:          DefaultRatio,
		absoluteBytes:  DefaultAbsoluteBytes,
		hardMultiplier: DefaultHardMultiplier,
		compressedSize: compressedSize,
	}
}

// WithRatio overrides the warning ratio threshold R.
func (g *BombGuard) WithRatio(r float64) *BombGuard {
	g.ratio = r
	return g
}

// WithAbsoluteBytes overrides the warning absolute-size threshold S.
func (g *BombGuard) WithAbsoluteBytes(b int64) *BombGuard {
	g.absoluteBytes = b
	return g
}

// Observe records one entry's declared uncompressed size and reports
// whether the running totals now warrant a user-confirmable warning.
// It returns an *addonerr.Error of kind ArchiveBomb if the hard cap
// (10x the ratio threshold, by default) is exceeded, at which point
// the caller must abort the extraction outright.
func (g *BombGuard) Observe(declaredUncompressed int64) (warn bool, err error) {
	g.entries++
	g.sumDeclared += declaredUncompressed

	if g.compressedSize > 0 {
		ratio := float64(g.sumDeclared) / float64(g.compressedSize)
		if ratio > g.ratio*g.hardMultiplier {
			return false, addonerr.New(addonerr.ArchiveBomb,
				"declared uncompressed size vastly exceeds compressed archive size")
		}
		if ratio > g.ratio {
			warn = true
		}
	}
	if g.sumDeclared > g.absoluteBytes*int64(g.hardMultiplier) {
		return false, addonerr.New(addonerr.ArchiveBomb,
			"declared uncompressed size exceeds the hard absolute limit")
	}
	if g.sumDeclared > g.absoluteBytes {
		warn = true
	}
	return warn, nil
}

// Entries reports the number of entries observed so far.
func (g *BombGuard) Entries() int { return g.entries }

// SumDeclared reports the running total of declared uncompressed
// bytes.
func (g *BombGuard) SumDeclared() int64 { return g.sumDeclared }
