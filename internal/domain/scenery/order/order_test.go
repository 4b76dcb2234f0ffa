package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/addonctl/internal/domain/scenery"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

const baseManifest = "I\n1000 Version\nSCENERY\n\n"

func TestParseSerializeRoundTrip(t *testing.T) {
	text := baseManifest +
		"SCENERY_PACK Custom Scenery/MyOverlay/\n" +
		"SCENERY_PACK_DISABLED Custom Scenery/OpenSAM_Library/\n" +
		"SCENERY_PACK " + DefaultAirportsMarker + "\n"

	m, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, text, Serialize(m))
}

func TestParse_RejectsMalformedHeader(t *testing.T) {
	_, err := Parse("not a manifest\n")
	require.Error(t, err)
}

func TestParse_RejectsMissingTrailingSlash(t *testing.T) {
	_, err := Parse(baseManifest + "SCENERY_PACK Custom Scenery/NoSlash\n")
	require.Error(t, err)
}

// S3 — scenery ordering with SAM library and overlay.
func TestReorder_S3Scenario(t *testing.T) {
	text := baseManifest +
		"SCENERY_PACK Custom Scenery/MyOverlay/\n" +
		"SCENERY_PACK_DISABLED Custom Scenery/OpenSAM_Library/\n" +
		"SCENERY_PACK " + DefaultAirportsMarker + "\n"

	m, err := Parse(text)
	require.NoError(t, err)

	signatures := map[string]scenery.Signature{
		"MyOverlay":       {FolderName: "MyOverlay", Category: scenery.Overlay},
		"OpenSAM_Library": {FolderName: "OpenSAM_Library", Category: scenery.FixedHighPriority},
	}

	reordered := Reorder(m, signatures)
	require.Len(t, reordered.Lines, 3)

	assert.Equal(t, "OpenSAM_Library", reordered.Lines[0].FolderName)
	assert.False(t, reordered.Lines[0].Enabled, "disabled state must be preserved")

	assert.True(t, reordered.Lines[1].IsGlobalDefault)

	assert.Equal(t, "MyOverlay", reordered.Lines[2].FolderName)
	assert.True(t, reordered.Lines[2].Enabled)
}

func TestReorder_EngineDefaultReinsertedWhenAbsent(t *testing.T) {
	text := baseManifest + "SCENERY_PACK Custom Scenery/MyOverlay/\n"
	m, err := Parse(text)
	require.NoError(t, err)

	reordered := Reorder(m, map[string]scenery.Signature{
		"MyOverlay": {FolderName: "MyOverlay", Category: scenery.Overlay},
	})

	found := 0
	for _, l := range reordered.Lines {
		if l.IsGlobalDefault {
			found++
		}
	}
	assert.Equal(t, 1, found)
}

func TestReorder_Deterministic(t *testing.T) {
	text := baseManifest +
		"SCENERY_PACK Custom Scenery/zzz_mesh/\n" +
		"SCENERY_PACK Custom Scenery/AAA_airport/\n" +
		"SCENERY_PACK_DISABLED Custom Scenery/bbb_library/\n"
	m, err := Parse(text)
	require.NoError(t, err)

	signatures := map[string]scenery.Signature{
		"zzz_mesh":    {FolderName: "zzz_mesh", Category: scenery.Mesh},
		"AAA_airport": {FolderName: "AAA_airport", Category: scenery.Airport},
		"bbb_library": {FolderName: "bbb_library", Category: scenery.Library},
	}

	first := Serialize(Reorder(m, signatures))
	for i := 0; i < 5; i++ {
		m2, err := Parse(text)
		require.NoError(t, err)
		assert.Equal(t, first, Serialize(Reorder(m2, signatures)))
	}
}

func TestReorder_WithinCategoryOrderedByFolderNameCasefold(t *testing.T) {
	text := baseManifest +
		"SCENERY_PACK Custom Scenery/Bravo/\n" +
		"SCENERY_PACK Custom Scenery/alpha/\n"
	m, err := Parse(text)
	require.NoError(t, err)

	signatures := map[string]scenery.Signature{
		"Bravo": {FolderName: "Bravo", Category: scenery.Other},
		"alpha": {FolderName: "alpha", Category: scenery.Other},
	}
	reordered := Reorder(m, signatures)
	require.Len(t, reordered.Lines, 3) // plus synthesized default
	names := []string{}
	for _, l := range reordered.Lines {
		if !l.IsGlobalDefault {
			names = append(names, l.FolderName)
		}
	}
	assert.Equal(t, []string{"alpha", "Bravo"}, names)
}

func TestRewrite_AtomicWithBackup(t *testing.T) {
	fs := ports.NewMockFileSystem()
	text := baseManifest + "SCENERY_PACK Custom Scenery/MyOverlay/\n"
	fs.AddFile("/sim/Custom Scenery/scenery_packs.ini", []byte(text))

	signatures := map[string]scenery.Signature{
		"MyOverlay": {FolderName: "MyOverlay", Category: scenery.Overlay},
	}

	_, err := Rewrite(fs, "/sim/Custom Scenery/scenery_packs.ini", signatures, Options{})
	require.NoError(t, err)

	assert.False(t, fs.Exists("/sim/Custom Scenery/scenery_packs.ini.tmp"))

	entries, err := fs.ReadDir("/sim/Custom Scenery")
	require.NoError(t, err)
	foundBackup := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name, "scenery_packs.ini.backup.") {
			foundBackup = true
		}
	}
	assert.True(t, foundBackup)

	final, err := fs.ReadFile("/sim/Custom Scenery/scenery_packs.ini")
	require.NoError(t, err)
	assert.Contains(t, string(final), "MyOverlay")
}

func TestApplyAutoDisableDependents(t *testing.T) {
	text := baseManifest +
		"SCENERY_PACK_DISABLED Custom Scenery/SomeLib/\n" +
		"SCENERY_PACK Custom Scenery/DependsOnLib/\n"
	m, err := Parse(text)
	require.NoError(t, err)

	signatures := map[string]scenery.Signature{
		"SomeLib":       {FolderName: "SomeLib", Category: scenery.Library},
		"DependsOnLib":  {FolderName: "DependsOnLib", Category: scenery.Airport, RequiredLibraries: []string{"SomeLib"}},
	}

	applyAutoDisableDependents(&m, signatures)
	for _, l := range m.Lines {
		if l.FolderName == "DependsOnLib" {
			assert.False(t, l.Enabled)
		}
	}
}
