package archivechain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   Format
		wantOK bool
	}{
		{"Bundle.ZIP", FormatZip, true},
		{"inner.7z", FormatSevenZip, true},
		{"inner.RAR", FormatRar, true},
		{"readme.txt", "", false},
		{"noextension", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectFormat(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestNewChain_RejectsEmptyTooDeepAndCyclic(t *testing.T) {
	t.Parallel()

	_, err := NewChain()
	require.Error(t, err)

	var deep []Node
	for i := 0; i < MaxDepth+1; i++ {
		deep = append(deep, NewNode("a.zip", FormatZip))
	}
	_, err = NewChain(deep...)
	require.Error(t, err)

	_, err = NewChain(NewNode("a.zip", FormatZip), NewNode("a.zip", FormatZip))
	require.Error(t, err)

	c, err := NewChain(NewNode("outer.zip", FormatZip), NewNode("inner.7z", FormatSevenZip))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Depth())
	assert.Equal(t, "outer.zip", c.Outermost().Path())
	assert.Equal(t, "inner.7z", c.Innermost().Path())
}

func TestNode_BuilderMethodsReturnIndependentCopies(t *testing.T) {
	t.Parallel()

	base := NewNode("a.zip", FormatZip)
	withPw := base.WithPassword("secret")
	withRoot := base.WithInternalRoot("MyPlug")

	assert.Equal(t, "", base.Password())
	assert.Equal(t, "secret", withPw.Password())
	assert.Equal(t, "", base.InternalRoot())
	assert.Equal(t, "MyPlug", withRoot.InternalRoot())
}

func TestPasswordMap_CandidatesForOrdersPathSpecificThenUnifiedThenEmpty(t *testing.T) {
	t.Parallel()

	m := NewPasswordMap().WithUnified("unified-pw").WithPath("a.zip", "a-pw")

	assert.Equal(t, []string{"a-pw", "unified-pw", ""}, m.CandidatesFor("a.zip"))
	assert.Equal(t, []string{"unified-pw", ""}, m.CandidatesFor("b.zip"))
}

func TestPasswordMap_NoUnifiedNoPathStillTriesEmpty(t *testing.T) {
	t.Parallel()

	m := NewPasswordMap()
	assert.Equal(t, []string{""}, m.CandidatesFor("a.zip"))
}
