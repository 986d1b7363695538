package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// Theme colors used throughout the UI
const (
	ColorAccent    = "86"  // cyan/green: titles, active nav item
	ColorHighlight = "205" // magenta: selection, borders
	ColorDanger    = "196" // red: errors
	ColorMuted     = "241" // gray: hints
	ColorText      = "252" // light gray: body text
	ColorOK        = "42"  // green: connected state
	ColorNav       = "33"  // blue: nav bar background
)

// Styles contains shared style definitions used across pages and modals.
var Styles = struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style

	BoxCompact lipgloss.Style

	NavBar    lipgloss.Style
	NavItem   lipgloss.Style
	NavActive lipgloss.Style

	Selected lipgloss.Style
	Muted    lipgloss.Style
	Normal   lipgloss.Style
	Hint     lipgloss.Style
	Status   lipgloss.Style
	OK       lipgloss.Style
	Error    lipgloss.Style
	Empty    lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent)),
	Subtitle: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorText)),
	BoxCompact: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1).
		Margin(1),
	NavBar: lipgloss.NewStyle().
		Background(lipgloss.Color(ColorNav)).
		Foreground(lipgloss.Color("231")).
		Padding(0, 1),
	NavItem: lipgloss.NewStyle().
		Background(lipgloss.Color(ColorNav)).
		Foreground(lipgloss.Color("231")).
		Padding(0, 1),
	NavActive: lipgloss.NewStyle().
		Background(lipgloss.Color(ColorNav)).
		Foreground(lipgloss.Color("231")).
		Bold(true).
		Underline(true).
		Padding(0, 1),
	Selected: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorText)),
	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccent)),
	OK: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorOK)),
	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDanger)),
	Empty: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)).
		Italic(true),
}

// NewCompactListDelegate returns a list delegate with zero spacing and the
// shared selection styles.
func NewCompactListDelegate(showDescription bool) list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	d.SetSpacing(0)
	d.ShowDescription = showDescription
	d.Styles.SelectedTitle = Styles.Selected
	d.Styles.SelectedDesc = Styles.Selected
	d.Styles.NormalTitle = Styles.Normal
	d.Styles.NormalDesc = Styles.Muted
	return d
}
