package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControlCancelAndSkip(t *testing.T) {
	c := NewControl()
	assert.False(t, c.ShouldStop())

	c.Skip()
	assert.True(t, c.Skipped())
	assert.False(t, c.Cancelled())
	assert.True(t, c.ShouldStop())

	c.ResetSkip()
	assert.False(t, c.Skipped())
	assert.False(t, c.ShouldStop())

	c.Cancel()
	assert.True(t, c.Cancelled())
	assert.True(t, c.ShouldStop())

	// Cancel is process-wide and must not be cleared by ResetSkip.
	c.ResetSkip()
	assert.True(t, c.Cancelled())
}
