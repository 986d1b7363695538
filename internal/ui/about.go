package ui

import (
	_ "embed"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

//go:embed about.md
var aboutMarkdown string

// AboutView renders static markdown.
type AboutView struct {
	width    int
	rendered string
}

var _ View = (*AboutView)(nil)

// NewAboutView returns the About page.
func NewAboutView() *AboutView {
	v := &AboutView{}
	v.render(80)
	return v
}

func (v *AboutView) render(width int) {
	if width == v.width && v.rendered != "" {
		return
	}
	v.width = width
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if out, err := r.Render(aboutMarkdown); err == nil {
			v.rendered = out
			return
		}
	}
	v.rendered = aboutMarkdown
}

// Init implements View.
func (v *AboutView) Init() tea.Cmd { return nil }

// Update implements View.
func (v *AboutView) Update(msg tea.Msg) (View, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		v.render(max(msg.Width-4, 20))
	}
	return v, nil
}

// View implements View.
func (v *AboutView) View() string { return v.rendered }
