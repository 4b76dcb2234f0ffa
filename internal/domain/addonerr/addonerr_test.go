package addonerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "no path",
			err:      New(BadInputPath, "source unreadable"),
			expected: "BadInputPath: source unreadable",
		},
		{
			name:     "with path",
			err:      New(UnsafeEntryName, "traversal refused").WithPath("../../etc/passwd"),
			expected: "UnsafeEntryName: traversal refused (../../etc/passwd)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_IsComparesKindNotMessage(t *testing.T) {
	t.Parallel()

	a := New(WrongPassword, "archive needs a password").WithPath("A.zip")
	b := New(WrongPassword, "a completely different message")

	assert.True(t, errors.Is(a, b))
	assert.True(t, errors.Is(a, ErrWrongPassword))
	assert.False(t, errors.Is(a, ErrArchiveCorrupt))
}

func TestError_UnwrapReachesUnderlyingCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("zip: not a valid zip file")
	err := New(ArchiveCorrupt, "decoder reports malformed data").Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestOf_DefaultsToInternalForUnknownErrors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Internal, Of(errors.New("boom")))
	assert.Equal(t, Conflict, Of(New(Conflict, "target exists")))
}

func TestList_AccumulatesAndFormats(t *testing.T) {
	t.Parallel()

	l := NewList()
	require.False(t, l.HasErrors())
	require.Nil(t, l.AsError())

	l.Add(New(BadInputPath, "first"))
	l.Add(New(ArchiveCorrupt, "second"))

	require.True(t, l.HasErrors())
	require.Len(t, l.Errors(), 2)
	assert.Contains(t, l.Error(), "2 errors occurred")
	assert.Contains(t, l.Error(), "BadInputPath: first")
	assert.Contains(t, l.Error(), "ArchiveCorrupt: second")
	require.Error(t, l.AsError())
}

func TestList_SingleErrorFormatsAsBareError(t *testing.T) {
	t.Parallel()

	l := NewList()
	l.Add(New(Cancelled, "user cancelled"))

	assert.Equal(t, "Cancelled: user cancelled", l.Error())
}
