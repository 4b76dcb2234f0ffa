// Package tui hosts the Bubble Tea programs the CLI drives: right now
// just the install-progress renderer, grounded on preflight's own
// internal/tui.applyProgressModel (see DESIGN.md) but redriven off
// this repo's events.Bus instead of a synchronous step list.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/addonctl/internal/domain/events"
	"github.com/felixgeelhaar/addonctl/internal/tui/common"
	"github.com/felixgeelhaar/addonctl/internal/tui/components"
)

// InstallProgressOptions configures the install-progress renderer.
type InstallProgressOptions struct {
	// Quiet suppresses the per-task progress bars, printing only the
	// final summary.
	Quiet bool
	// ShowDetails prints each task's display name alongside its bar.
	ShowDetails bool
	// TaskNames maps task ID to a human-readable display name, filled
	// in by the caller from the plan before the run starts.
	TaskNames map[string]string
}

// EventMsg carries one events.Event into the Bubble Tea loop.
type EventMsg events.Event

// RunDoneMsg signals that the event channel closed, i.e. the engine run
// finished.
type RunDoneMsg struct{}

type taskProgress struct {
	name    string
	stage   events.Stage
	status  events.Status
	percent float64
	message string
}

// installProgressModel renders one progress bar per in-flight task, or
// in Quiet mode only a running completed/failed tally, reading events
// from a channel fed by the caller's subscription-draining goroutine.
type installProgressModel struct {
	opts     InstallProgressOptions
	events   <-chan tea.Msg
	styles   common.Styles
	keys     common.KeyMap
	control  *events.Control
	bar      components.Progress
	order    []string
	tasks    map[string]*taskProgress
	done     bool
	dropped  int
	quitting bool
}

func newInstallProgressModel(opts InstallProgressOptions, ch <-chan tea.Msg, control *events.Control) installProgressModel {
	return installProgressModel{
		opts:    opts,
		events:  ch,
		styles:  common.DefaultStyles(),
		keys:    common.DefaultKeyMap(),
		control: control,
		bar:     components.NewProgress().WithWidth(40),
		tasks:   make(map[string]*taskProgress),
	}
}

func waitForMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return RunDoneMsg{}
		}
		return msg
	}
}

func (m installProgressModel) Init() tea.Cmd {
	return waitForMsg(m.events)
}

func (m installProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.control.Cancel()
		case "s":
			m.control.Skip()
		case "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, waitForMsg(m.events)

	case EventMsg:
		m.applyEvent(events.Event(msg))
		return m, waitForMsg(m.events)

	case RunDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, waitForMsg(m.events)
}

func (m *installProgressModel) applyEvent(ev events.Event) {
	if ev.Status == events.StatusDropped {
		m.dropped++
		return
	}
	tp, ok := m.tasks[ev.TaskID]
	if !ok {
		tp = &taskProgress{name: m.opts.TaskNames[ev.TaskID]}
		m.tasks[ev.TaskID] = tp
		m.order = append(m.order, ev.TaskID)
	}
	tp.stage = ev.Stage
	tp.status = ev.Status
	tp.percent = ev.Percent
	tp.message = ev.Message
}

func (m installProgressModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Installing addons"))
	b.WriteString("\n\n")

	if m.opts.Quiet {
		return m.summaryLine()
	}

	ids := append([]string(nil), m.order...)
	sort.Strings(ids)
	for _, id := range ids {
		tp := m.tasks[id]
		label := tp.name
		if label == "" {
			label = id
		}
		bar := m.bar.SetPercent(tp.percent / 100).SetMessage(fmt.Sprintf("%s: %s", tp.stage, tp.message))
		if m.opts.ShowDetails {
			b.WriteString(m.styles.Subtitle.Render(label))
			b.WriteString("\n")
		}
		b.WriteString(bar.View())
		b.WriteString("\n\n")
	}

	if m.dropped > 0 {
		b.WriteString(m.styles.Warn.Render(fmt.Sprintf("%d progress events dropped under backpressure", m.dropped)))
		b.WriteString("\n\n")
	}

	if m.done {
		b.WriteString(m.styles.Success.Render("Install run finished."))
	} else {
		b.WriteString(m.styles.Help.Render("s: skip current task  ctrl+c: cancel remaining  q: quit"))
	}
	return b.String()
}

func (m installProgressModel) summaryLine() string {
	completed, failed := 0, 0
	for _, tp := range m.tasks {
		switch tp.status {
		case events.StatusCompleted:
			completed++
		case events.StatusFailed, events.StatusCancelled:
			failed++
		}
	}
	return fmt.Sprintf("%d task(s) tracked, %d completed, %d failed/cancelled\n", len(m.tasks), completed, failed)
}

// RunInstallProgress drives a Bubble Tea program that renders events
// published to bus until ctx is cancelled or the bus-draining goroutine
// closes its channel (signalling the install run is over). It returns
// once the program exits.
func RunInstallProgress(ctx context.Context, bus *events.Bus, control *events.Control, opts InstallProgressOptions) error {
	sub := bus.Subscribe(events.DefaultRingCapacity)
	defer sub.Unsubscribe()

	ch := make(chan tea.Msg)
	go func() {
		defer close(ch)
		for {
			ev, ok := sub.Next(ctx)
			if !ok {
				return
			}
			select {
			case ch <- EventMsg(ev):
			case <-ctx.Done():
				return
			}
		}
	}()

	model := newInstallProgressModel(opts, ch, control)
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}
