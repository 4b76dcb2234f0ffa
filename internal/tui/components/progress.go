// Package components holds the small, reusable Bubble Tea view
// fragments internal/tui composes into full programs, grounded on
// preflight's own internal/tui/components package (its progress.go was
// reused near-verbatim for the percent/bar math; see DESIGN.md).
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/addonctl/internal/tui/common"
)

// Progress displays a block-character progress bar with an optional
// status message below it.
type Progress struct {
	percent float64
	current int
	total   int
	message string
	width   int
	styles  common.Styles
}

// NewProgress creates a new progress component.
func NewProgress() Progress {
	return Progress{
		width:  40,
		styles: common.DefaultStyles(),
	}
}

// Percent returns the current percentage (0.0 to 1.0).
func (p Progress) Percent() float64 { return p.percent }

// Current returns the current item count.
func (p Progress) Current() int { return p.current }

// Total returns the total item count.
func (p Progress) Total() int { return p.total }

// Message returns the current status message.
func (p Progress) Message() string { return p.message }

// SetPercent sets the progress percentage, clamped to [0,1].
func (p Progress) SetPercent(percent float64) Progress {
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	p.percent = percent
	return p
}

// SetCurrent sets the current item count and recomputes percent.
func (p Progress) SetCurrent(current int) Progress {
	if current < 0 {
		current = 0
	}
	if current > p.total && p.total > 0 {
		current = p.total
	}
	p.current = current
	if p.total > 0 {
		p.percent = float64(current) / float64(p.total)
	}
	return p
}

// SetTotal sets the total item count and recomputes percent.
func (p Progress) SetTotal(total int) Progress {
	if total < 0 {
		total = 0
	}
	p.total = total
	if p.total > 0 && p.current > 0 {
		p.percent = float64(p.current) / float64(p.total)
	}
	return p
}

// IncrementCurrent advances the current item count by one, stopping
// at total.
func (p Progress) IncrementCurrent() Progress {
	if p.current < p.total {
		p.current++
		if p.total > 0 {
			p.percent = float64(p.current) / float64(p.total)
		}
	}
	return p
}

// SetMessage sets the status message shown below the bar.
func (p Progress) SetMessage(message string) Progress {
	p.message = message
	return p
}

// WithWidth sets the progress bar's column width.
func (p Progress) WithWidth(width int) Progress {
	p.width = width
	return p
}

// WithStyles sets the styles used to render the bar and message.
func (p Progress) WithStyles(styles common.Styles) Progress {
	p.styles = styles
	return p
}

// View renders the progress bar.
func (p Progress) View() string {
	var b strings.Builder

	barWidth := p.width - 2
	if barWidth < 1 {
		barWidth = 1
	}
	filled := int(p.percent * float64(barWidth))
	empty := barWidth - filled

	bar := fmt.Sprintf("[%s%s]",
		strings.Repeat("█", filled),
		strings.Repeat("░", empty),
	)
	b.WriteString(p.styles.ProgressBar.Render(bar))
	b.WriteString(fmt.Sprintf(" %3.0f%%", p.percent*100))

	if p.message != "" {
		b.WriteString("\n")
		b.WriteString(p.styles.Help.Render(p.message))
	}
	return b.String()
}

// Spinner displays an animated spinner with an optional message, for
// stages (scan, reconcile) that have no byte-level percent to show.
type Spinner struct {
	spinner spinner.Model
	message string
	styles  common.Styles
}

// NewSpinner creates a new spinner component.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(common.ColorPrimary)
	return Spinner{spinner: s, styles: common.DefaultStyles()}
}

// SetMessage sets the spinner's message.
func (s Spinner) SetMessage(message string) Spinner {
	s.message = message
	return s
}

// Init starts the spinner's animation ticker.
func (s Spinner) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update advances the spinner's animation.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner.
func (s Spinner) View() string {
	if s.message != "" {
		return fmt.Sprintf("%s %s", s.spinner.View(), s.message)
	}
	return s.spinner.View()
}
