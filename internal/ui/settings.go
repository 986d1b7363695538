package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"blepad/internal/config"
)

// SettingsView shows the effective configuration. It is read-only; edit
// the config file or environment and restart.
type SettingsView struct {
	Path string
	body string
}

var _ View = (*SettingsView)(nil)

// NewSettingsView renders cfg, loaded from path.
func NewSettingsView(cfg *config.Config, path string) *SettingsView {
	v := &SettingsView{Path: path}
	if cfg == nil {
		v.body = Styles.Empty.Render("No configuration loaded")
		return v
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		v.body = Styles.Error.Render(err.Error())
		return v
	}
	v.body = strings.TrimRight(string(out), "\n")
	return v
}

// Init implements View.
func (v *SettingsView) Init() tea.Cmd { return nil }

// Update implements View.
func (v *SettingsView) Update(tea.Msg) (View, tea.Cmd) { return v, nil }

// View implements View.
func (v *SettingsView) View() string {
	header := Styles.Title.Render("Settings") + "\n"
	if v.Path != "" {
		header += Styles.Muted.Render("config: "+v.Path) + "\n"
	}
	return header + Styles.BoxCompact.Render(v.body)
}
