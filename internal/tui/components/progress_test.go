package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProgress(t *testing.T) {
	t.Parallel()

	progress := NewProgress()

	assert.Equal(t, 0.0, progress.Percent())
	assert.Empty(t, progress.Message())
}

func TestProgress_SetPercentClamps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, NewProgress().SetPercent(1.5).Percent())
	assert.Equal(t, 0.0, NewProgress().SetPercent(-0.5).Percent())
	assert.Equal(t, 0.5, NewProgress().SetPercent(0.5).Percent())
}

func TestProgress_SetCurrentAndTotal(t *testing.T) {
	t.Parallel()

	progress := NewProgress().SetTotal(10).SetCurrent(5)

	assert.Equal(t, 5, progress.Current())
	assert.Equal(t, 10, progress.Total())
	assert.Equal(t, 0.5, progress.Percent())
}

func TestProgress_IncrementCurrentStopsAtTotal(t *testing.T) {
	t.Parallel()

	progress := NewProgress().SetTotal(2).SetCurrent(2)
	progress = progress.IncrementCurrent()

	assert.Equal(t, 2, progress.Current())
}

func TestProgress_ViewRendersBarAndMessage(t *testing.T) {
	t.Parallel()

	view := NewProgress().SetPercent(0.5).SetMessage("staging").View()

	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "staging")
}
