// Package order implements the scenery manifest ordering engine
// (§4.I): parsing scenery_packs.ini, reordering its entries by
// scenery.Category priority while preserving each entry's enabled bit
// and the engine-default entry's canonical slot, and writing the
// result back atomically with a timestamped backup.
package order

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/domain/scenery"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// foldCaser performs the casefold used to compare folder names within
// a priority tier (§4.I "folderName.casefold()"), independent of the
// default locale.
var foldCaser = cases.Fold()

// headerLines are the fixed lines that open every scenery_packs.ini,
// preserved verbatim (§4.I "Manifest format").
var headerLines = []string{"I", "1000 Version", "SCENERY", ""}

const (
	enabledPrefix  = "SCENERY_PACK "
	disabledPrefix = "SCENERY_PACK_DISABLED "
)

// DefaultAirportsMarker is the folder-name token the simulator uses
// for its built-in default-airports entry. It never corresponds to a
// real Custom Scenery subdirectory.
const DefaultAirportsMarker = "*GLOBAL_AIRPORTS*"

// Line is one parsed scenery_packs.ini entry, before any
// classification-driven reordering.
type Line struct {
	Enabled    bool
	FolderName string
	// RawPath is the text between the SCENERY_PACK[_DISABLED] prefix
	// and the trailing slash, preserved verbatim so shortcut names and
	// unusual casing survive a round trip untouched.
	RawPath         string
	IsGlobalDefault bool
}

// Manifest is a parsed scenery_packs.ini: the verbatim header plus the
// ordered entry lines.
type Manifest struct {
	Header []string
	Lines  []Line
}

// Parse reads one scenery_packs.ini's text into a Manifest. Leading
// header lines are matched case-sensitively against headerLines;
// anything else is treated as an entry line. Blank lines between
// entries are dropped (round-tripped back in via serialize's own
// formatting, per §8 property 8's "normalized round-trip").
func Parse(text string) (Manifest, error) {
	text = strings.TrimPrefix(text, "﻿") // tolerate a stray BOM on read, never write one
	rawLines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	m := Manifest{Header: append([]string(nil), headerLines[:3]...)}
	i := 0
	for ; i < len(rawLines) && i < 3; i++ {
		if strings.TrimSpace(rawLines[i]) != strings.TrimSpace(headerLines[i]) {
			break
		}
	}
	if i < 3 {
		return Manifest{}, addonerr.New(addonerr.ManifestParse, "scenery_packs.ini is missing its standard header").WithSuggestion("back up and rewrite")
	}
	// Skip the header's trailing blank line, if present.
	if i < len(rawLines) && strings.TrimSpace(rawLines[i]) == "" {
		i++
	}

	for ; i < len(rawLines); i++ {
		line := strings.TrimRight(rawLines[i], " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := parseLine(line)
		if err != nil {
			return Manifest{}, err
		}
		m.Lines = append(m.Lines, entry)
	}
	return m, nil
}

func parseLine(line string) (Line, error) {
	trimmed := strings.TrimLeft(line, " \t")
	var enabled bool
	var rest string
	switch {
	case strings.HasPrefix(trimmed, enabledPrefix):
		enabled, rest = true, strings.TrimPrefix(trimmed, enabledPrefix)
	case strings.HasPrefix(trimmed, disabledPrefix):
		enabled, rest = false, strings.TrimPrefix(trimmed, disabledPrefix)
	default:
		return Line{}, addonerr.New(addonerr.ManifestParse, "unrecognized scenery_packs.ini line: "+line).WithSuggestion("back up and rewrite")
	}
	rest = strings.TrimSpace(rest)
	if strings.Contains(rest, DefaultAirportsMarker) {
		return Line{Enabled: enabled, RawPath: rest, IsGlobalDefault: true}, nil
	}
	if !strings.HasSuffix(rest, "/") {
		return Line{}, addonerr.New(addonerr.ManifestParse, "scenery_packs.ini entry missing trailing slash: "+line).WithSuggestion("back up and rewrite")
	}
	folder := folderNameFromPath(rest)
	return Line{Enabled: enabled, FolderName: folder, RawPath: rest}, nil
}

// folderNameFromPath extracts the folder name from a
// "Custom Scenery/<folder>/" path, tolerating a missing or different
// leading directory since some manifests predate the convention.
func folderNameFromPath(rawPath string) string {
	trimmed := strings.TrimSuffix(rawPath, "/")
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}

// Serialize renders m back into scenery_packs.ini text, in its
// current Lines order (callers call Reorder first to get the
// classification-driven order).
func Serialize(m Manifest) string {
	var b strings.Builder
	for _, h := range headerLines[:3] {
		b.WriteString(h)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, l := range m.Lines {
		b.WriteString(renderLine(l))
		b.WriteString("\n")
	}
	return b.String()
}

func renderLine(l Line) string {
	prefix := enabledPrefix
	if !l.Enabled {
		prefix = disabledPrefix
	}
	return prefix + l.RawPath
}

// classified pairs a Line with the scenery.Signature used to order it.
type classified struct {
	line Line
	sig  scenery.Signature
}

// Reorder produces a new Manifest with m's lines (preserving each
// entry's Enabled bit and RawPath) placed in §4.I priority order,
// using signatures (keyed by folder name) for classification. A line
// whose folder isn't in signatures is treated as scenery.Other. The
// engine-default entry is always present exactly once, in its
// canonical DefaultAirport slot (§8 property 7): one already present
// in m is kept (its Enabled bit preserved); if none is present, one is
// synthesized enabled.
func Reorder(m Manifest, signatures map[string]scenery.Signature) Manifest {
	var defaultLine *Line
	var rest []classified

	for _, l := range m.Lines {
		if l.IsGlobalDefault {
			lCopy := l
			defaultLine = &lCopy
			continue
		}
		sig, ok := signatures[l.FolderName]
		if !ok {
			sig = scenery.Signature{FolderName: l.FolderName, Category: scenery.Other}
		}
		rest = append(rest, classified{line: l, sig: sig})
	}
	if defaultLine == nil {
		defaultLine = &Line{Enabled: true, RawPath: DefaultAirportsMarker, IsGlobalDefault: true}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		pi, pj := rest[i].sig.Category.Priority(), rest[j].sig.Category.Priority()
		if pi != pj {
			return pi < pj
		}
		if rest[i].sig.SubPriority != rest[j].sig.SubPriority {
			return rest[i].sig.SubPriority < rest[j].sig.SubPriority
		}
		return foldCaser.String(rest[i].line.FolderName) < foldCaser.String(rest[j].line.FolderName)
	})

	defaultPriority := scenery.DefaultAirport.Priority()
	out := make([]Line, 0, len(rest)+1)
	inserted := false
	for _, c := range rest {
		if !inserted && c.sig.Category.Priority() >= defaultPriority {
			out = append(out, *defaultLine)
			inserted = true
		}
		out = append(out, c.line)
	}
	if !inserted {
		out = append(out, *defaultLine)
	}

	return Manifest{Header: append([]string(nil), headerLines[:3]...), Lines: out}
}

// BackupSuffix formats at as the "YYYYMMDD_HHMMSS" timestamp suffix
// used for scenery_packs.ini.backup.<timestamp> (§4.I).
func BackupSuffix(at time.Time) string {
	return at.UTC().Format("20060102_150405")
}
