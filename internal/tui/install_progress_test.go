package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/addonctl/internal/domain/events"
)

func TestInstallProgressModel_ApplyEventTracksPerTaskState(t *testing.T) {
	t.Parallel()

	ch := make(chan tea.Msg)
	m := newInstallProgressModel(InstallProgressOptions{TaskNames: map[string]string{"t1": "MyPlug"}}, ch, events.NewControl())

	m.applyEvent(events.Event{TaskID: "t1", Stage: events.StageStage, Status: events.StatusInProgress, Percent: 42})

	assert.Len(t, m.order, 1)
	assert.Equal(t, float64(42), m.tasks["t1"].percent)
	assert.Equal(t, "MyPlug", m.tasks["t1"].name)
}

func TestInstallProgressModel_DroppedEventIncrementsCounterNotTasks(t *testing.T) {
	t.Parallel()

	ch := make(chan tea.Msg)
	m := newInstallProgressModel(InstallProgressOptions{}, ch, events.NewControl())

	m.applyEvent(events.Event{Status: events.StatusDropped})

	assert.Equal(t, 1, m.dropped)
	assert.Empty(t, m.tasks)
}

func TestInstallProgressModel_UpdateOnKeyCtrlCCancelsControl(t *testing.T) {
	t.Parallel()

	ch := make(chan tea.Msg)
	control := events.NewControl()
	m := newInstallProgressModel(InstallProgressOptions{}, ch, control)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, control.Cancelled())
}

func TestInstallProgressModel_UpdateOnSkipKeySkipsCurrentTask(t *testing.T) {
	t.Parallel()

	ch := make(chan tea.Msg)
	control := events.NewControl()
	m := newInstallProgressModel(InstallProgressOptions{}, ch, control)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})

	assert.True(t, control.Skipped())
}

func TestInstallProgressModel_RunDoneMsgMarksDone(t *testing.T) {
	t.Parallel()

	ch := make(chan tea.Msg)
	m := newInstallProgressModel(InstallProgressOptions{}, ch, events.NewControl())

	next, cmd := m.Update(RunDoneMsg{})
	nm := next.(installProgressModel)

	assert.True(t, nm.done)
	assert.NotNil(t, cmd)
}

func TestInstallProgressModel_SummaryLineCountsStatuses(t *testing.T) {
	t.Parallel()

	ch := make(chan tea.Msg)
	m := newInstallProgressModel(InstallProgressOptions{Quiet: true}, ch, events.NewControl())
	m.applyEvent(events.Event{TaskID: "t1", Status: events.StatusCompleted})
	m.applyEvent(events.Event{TaskID: "t2", Status: events.StatusFailed})

	line := m.summaryLine()
	assert.Contains(t, line, "2 task(s) tracked")
	assert.Contains(t, line, "1 completed")
	assert.Contains(t, line, "1 failed")
}
