// Package scenery holds the shared data model for the scenery
// classification, indexing and ordering subsystems (§3, §4.G-I):
// ScenerySignature (the classifier's verdict on one package) and
// SceneryManifestEntry (one line of the simulator's scenery_packs.ini).
package scenery

import "time"

// Category is one of the nine classification buckets a scenery package
// can fall into (§3, §4.G).
type Category string

const (
	FixedHighPriority Category = "FixedHighPriority"
	Airport           Category = "Airport"
	DefaultAirport    Category = "DefaultAirport"
	Library           Category = "Library"
	Overlay           Category = "Overlay"
	AirportMesh       Category = "AirportMesh"
	Mesh              Category = "Mesh"
	Other             Category = "Other"
	Unrecognized      Category = "Unrecognized"
)

// Priority returns the manifest ordering slot for c, per §4.I's table
// (lowest loads first). AirportMesh is never produced by the §4.G
// classifier decision list (only by data-model name, §3); it is given
// Airport's priority here since it is conceptually an airport variant.
func (c Category) Priority() int {
	switch c {
	case FixedHighPriority:
		return 0
	case Airport, AirportMesh:
		return 1
	case DefaultAirport:
		return 2
	case Library:
		return 3
	case Other, Unrecognized:
		return 4
	case Overlay:
		return 5
	case Mesh:
		return 6
	default:
		return 4
	}
}

// MeshSubPriority breaks ties within the Mesh category (§4.I: "Ortho=0,
// generic=1, xpme=2").
const (
	MeshSubOrtho   = 0
	MeshSubGeneric = 1
	MeshSubXpme    = 2
)

// Flags records which marker files/content a package was found to
// contain, for diagnostics and for the library-reference scan.
type Flags struct {
	HasAptDat     bool
	HasDSF        bool
	HasLibraryTxt bool
	HasTextures   bool
	HasObjects    bool
}

// Signature is the classifier's persisted verdict on one scenery
// package (§3).
type Signature struct {
	FolderName   string
	LastModified time.Time
	IndexedAt    time.Time

	Category    Category
	SubPriority int

	Flags Flags

	RequiredLibraries []string
	MissingLibraries  []string

	ContinentHint string
}

// ManifestEntry is one parsed line of scenery_packs.ini (§3, §4.I).
type ManifestEntry struct {
	Enabled         bool
	ResolvedName    string
	IsGlobalDefault bool
}
