package archivechain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_StableAndScopedByPath(t *testing.T) {
	t.Parallel()

	a := Fingerprint("/sim/A.zip", "hunter2")
	b := Fingerprint("/sim/A.zip", "hunter2")
	assert.Equal(t, a, b)

	c := Fingerprint("/sim/B.zip", "hunter2")
	assert.NotEqual(t, a, c)

	d := Fingerprint("/sim/A.zip", "different")
	assert.NotEqual(t, a, d)
}

func TestPasswordCache_RememberAndMatches(t *testing.T) {
	t.Parallel()

	c := NewPasswordCache()
	assert.False(t, c.Matches("/sim/A.zip", "hunter2"))

	c.Remember("/sim/A.zip", "hunter2")
	assert.True(t, c.Matches("/sim/A.zip", "hunter2"))
	assert.False(t, c.Matches("/sim/A.zip", "wrong"))
	assert.False(t, c.Matches("/sim/Other.zip", "hunter2"))

	c.Forget("/sim/A.zip")
	assert.False(t, c.Matches("/sim/A.zip", "hunter2"))
}
