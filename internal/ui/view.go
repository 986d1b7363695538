package ui

import tea "github.com/charmbracelet/bubbletea"

// View is the unit of composition; implements Bubble Tea's Init/Update/View.
// Each route's page and each modal is a View.
type View interface {
	Init() tea.Cmd
	Update(tea.Msg) (View, tea.Cmd)
	View() string
}

// Closer is implemented by views that hold resources past unmount.
type Closer interface {
	Close() error
}
