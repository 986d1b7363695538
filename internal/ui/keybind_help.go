package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

func newHelpModel() help.Model {
	m := help.New()
	m.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHighlight)).Bold(true)
	m.Styles.ShortDesc = Styles.Muted
	m.Styles.ShortSeparator = Styles.Muted
	return m
}

// RenderKeybindHelp renders the transient box shown after SPC: the keys
// that can follow the current sequence on route.
func RenderKeybindHelp(keyHandler *KeyHandler, route Route) string {
	if keyHandler == nil {
		return ""
	}
	bindings := NewKeyMap(keyHandler.Registry, keyHandler, route).ShortHelp()
	if len(bindings) == 0 {
		return ""
	}

	prefix := keyHandler.Sequence()
	if prefix == "" {
		prefix = keyHandler.LeaderSeq
	}
	content := Styles.Muted.Render(prefix) + " " + newHelpModel().ShortHelpView(bindings)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccent)).
		Padding(0, 1).
		MarginTop(1).
		Render(content)
}

// RenderHelpBar renders a one-line hint bar for a page's own keys.
func RenderHelpBar(bindings []key.Binding) string {
	return newHelpModel().ShortHelpView(bindings)
}
