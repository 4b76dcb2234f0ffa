package pathsafety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
)

func TestSanitizeEntryName_AcceptsOrdinaryRelativePaths(t *testing.T) {
	t.Parallel()

	got, err := SanitizeEntryName("plugins/win_x64/MyPlug.xpl", "/sim/Resources/plugins/MyPlug")
	require.NoError(t, err)
	assert.Equal(t, "/sim/Resources/plugins/MyPlug/plugins/win_x64/MyPlug.xpl", got)
}

func TestSanitizeEntryName_RejectsTraversalAndAbsoluteAndReservedNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"dotdot", "../../etc/passwd"},
		{"dotdot embedded", "plugins/../../etc/passwd"},
		{"absolute unix", "/etc/passwd"},
		{"absolute windows backslash", `\Windows\System32`},
		{"drive letter", `C:\Windows\System32`},
		{"unc", `\\server\share\file`},
		{"nul byte", "plugins/evil\x00.xpl"},
		{"reserved device name", "plugins/CON/file.xpl"},
		{"reserved device name with ext", "plugins/CON.txt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := SanitizeEntryName(tt.raw, "/sim/Resources/plugins/MyPlug")
			require.Error(t, err)
			assert.ErrorIs(t, err, addonerr.ErrUnsafeEntryName)
		})
	}
}

func TestSanitizeEntryName_MixedSeparatorsNormalize(t *testing.T) {
	t.Parallel()

	got, err := SanitizeEntryName(`plugins\win_x64/MyPlug.xpl`, "/sim/Resources/plugins/MyPlug")
	require.NoError(t, err)
	assert.Equal(t, "/sim/Resources/plugins/MyPlug/plugins/win_x64/MyPlug.xpl", got)
}

func TestSanitizeEntryName_CurrentDirComponentsAreIgnoredNotTraversal(t *testing.T) {
	t.Parallel()

	got, err := SanitizeEntryName("./plugins/./MyPlug.xpl", "/sim/Resources/plugins/MyPlug")
	require.NoError(t, err)
	assert.Equal(t, "/sim/Resources/plugins/MyPlug/plugins/MyPlug.xpl", got)
}

func TestSanitizeEntryName_ResultAlwaysUnderDestRoot(t *testing.T) {
	t.Parallel()

	// A battery of adversarial names; whichever succeed must all resolve
	// under destRoot, and whichever fail must fail as UnsafeEntryName.
	adversarial := []string{
		"..", "a/..", "a/../..", "a/../../b", "....//....//etc/passwd",
		"a/b/../../../../etc/passwd", "\x00", "a\x00/b",
	}
	destRoot := "/sim/Custom Scenery/MyScenery"
	for _, raw := range adversarial {
		got, err := SanitizeEntryName(raw, destRoot)
		if err != nil {
			assert.ErrorIs(t, err, addonerr.ErrUnsafeEntryName, "raw=%q", raw)
			continue
		}
		assert.True(t, got == destRoot || len(got) > len(destRoot) && got[:len(destRoot)+1] == destRoot+"/",
			"raw=%q resolved outside destRoot: %q", raw, got)
	}
}

func TestBombGuard_WarnsAboveRatioThenAbortsAtHardCap(t *testing.T) {
	t.Parallel()

	g := NewBombGuard(1 << 20) // 1 MiB compressed

	warn, err := g.Observe(10 << 20) // 10 MiB declared, ratio 10 < 100
	require.NoError(t, err)
	assert.False(t, warn)

	warn, err = g.Observe(200 << 20) // cumulative 210 MiB, ratio 210 > 100
	require.NoError(t, err)
	assert.True(t, warn)

	_, err = g.Observe(2000 << 20) // cumulative far past 10x ratio
	require.Error(t, err)
	assert.ErrorIs(t, err, addonerr.ErrArchiveBomb)
}

func TestBombGuard_WarnsAboveAbsoluteCap(t *testing.T) {
	t.Parallel()

	g := NewBombGuard(0).WithAbsoluteBytes(1 << 20) // disable ratio check, 1 MiB absolute cap

	warn, err := g.Observe(2 << 20) // 2 MiB > 1 MiB cap, but well under 10x hard cap
	require.NoError(t, err)
	assert.True(t, warn)
}

func TestBombGuard_TracksEntriesAndSumDeclared(t *testing.T) {
	t.Parallel()

	g := NewBombGuard(1 << 20)
	_, _ = g.Observe(100)
	_, _ = g.Observe(200)

	assert.Equal(t, 2, g.Entries())
	assert.Equal(t, int64(300), g.SumDeclared())
}
