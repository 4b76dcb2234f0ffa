package common

import tea "github.com/charmbracelet/bubbletea"

// ErrorMsg wraps an error as a Bubble Tea message so a model's Update
// can branch on it with a type switch.
type ErrorMsg struct {
	Err error
}

// NewErrorMsg constructs an ErrorMsg.
func NewErrorMsg(err error) ErrorMsg {
	return ErrorMsg{Err: err}
}

// SuccessMsg reports a one-line success notice.
type SuccessMsg struct {
	Message string
}

// NewSuccessMsg constructs a SuccessMsg.
func NewSuccessMsg(message string) SuccessMsg {
	return SuccessMsg{Message: message}
}

// ProgressMsg reports a current/total count plus a status message,
// for views that track discrete progress (task N of M) rather than a
// byte-level percent.
type ProgressMsg struct {
	Current int
	Total   int
	Message string
}

// NewProgressMsg constructs a ProgressMsg.
func NewProgressMsg(current, total int, message string) ProgressMsg {
	return ProgressMsg{Current: current, Total: total, Message: message}
}

// SelectedMsg reports that the user picked one item from a list view.
type SelectedMsg struct {
	ID    string
	Index int
	Label string
}

// NewSelectedMsg constructs a SelectedMsg.
func NewSelectedMsg(id string, index int, label string) tea.Msg {
	return SelectedMsg{ID: id, Index: index, Label: label}
}

// NavigateMsg asks the parent program to switch views.
type NavigateMsg struct {
	View   string
	Params map[string]interface{}
}

// NewNavigateMsg constructs a NavigateMsg.
func NewNavigateMsg(view string, params map[string]interface{}) tea.Msg {
	return NavigateMsg{View: view, Params: params}
}
