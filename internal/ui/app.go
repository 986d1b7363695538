package ui

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"blepad/internal/ble"
	"blepad/internal/config"
)

// Deps are the collaborators the app hands to its pages.
type Deps struct {
	// Platform backs the Home page; nil means Bluetooth is unavailable.
	Platform ble.Platform
	// Picker, when set, is the chooser the platform was built with. The
	// app opens a DevicePickerModal for each of its requests.
	Picker     *PickerBridge
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
}

// AppModel is the root model: a nav bar over the page for Route, plus any
// overlays.
type AppModel struct {
	Route      Route
	Home       *HomeView // nil unless Route is RouteHome
	About      *AboutView
	Settings   *SettingsView
	KeyHandler *KeyHandler
	Overlays   OverlayStack

	deps   Deps
	width  int
	height int
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root model showing initial.
func NewAppModel(deps Deps, initial Route) *AppModel {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	m := &AppModel{
		Route:      initial,
		About:      NewAboutView(),
		Settings:   NewSettingsView(deps.Config, deps.ConfigPath),
		KeyHandler: NewKeyHandler(newRegistry()),
		deps:       deps,
	}
	if initial == RouteHome {
		m.Home = NewHomeView(deps.Platform, deps.Logger)
	}
	return m
}

func navigate(r Route) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Route: r} }
}

func navigateStep(delta int) tea.Cmd {
	return func() tea.Msg { return navigateStepMsg{delta: delta} }
}

func newRegistry() *KeybindRegistry {
	reg := NewKeybindRegistry()
	reg.BindWithDesc("q", tea.Quit, "Quit")
	reg.BindWithDesc("SPC q", tea.Quit, "Quit")
	reg.BindWithDesc("1", navigate(RouteHome), "Home")
	reg.BindWithDesc("2", navigate(RouteAbout), "About")
	reg.BindWithDesc("3", navigate(RouteSettings), "Settings")
	reg.BindWithDesc("tab", navigateStep(1), "Next page")
	reg.BindWithDesc("shift+tab", navigateStep(-1), "Previous page")
	reg.BindForRoutes("SPC g h", navigate(RouteHome), "Home", []Route{RouteAbout, RouteSettings})
	reg.BindForRoutes("SPC g a", navigate(RouteAbout), "About", []Route{RouteHome, RouteSettings})
	reg.BindForRoutes("SPC g s", navigate(RouteSettings), "Settings", []Route{RouteHome, RouteAbout})
	return reg
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (m *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: m}
}

// Close unmounts the Home page and abandons open pickers.
func (m *AppModel) Close() error {
	var errs []error
	for _, o := range m.Overlays.Stack {
		if c, ok := o.View.(Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	m.Overlays.Stack = nil
	if m.Home != nil {
		errs = append(errs, m.Home.Close())
		m.Home = nil
	}
	return errors.Join(errs...)
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	cmds := []tea.Cmd{a.currentView().Init()}
	if a.deps.Picker != nil {
		cmds = append(cmds, a.deps.Picker.Wait())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.About.Update(msg)
		if a.Home != nil {
			a.Home.Update(msg)
		}
		return a, nil
	case NavigateMsg:
		return a, a.navigate(msg.Route)
	case navigateStepMsg:
		next := a.Route.Next()
		if msg.delta < 0 {
			next = a.Route.Prev()
		}
		return a, a.navigate(next)
	case pickRequestMsg:
		modal := NewDevicePickerModal(msg.req)
		a.Overlays.Push(Overlay{View: modal, Dismiss: "esc"})
		return a, tea.Batch(modal.Init(), a.deps.Picker.Wait())
	case pickerScanMsg:
		return a, a.updatePicker(msg.req, msg)
	case closePickerMsg:
		a.Overlays.Remove(func(v View) bool {
			p, ok := v.(*DevicePickerModal)
			return ok && p.Request() == msg.req
		})
		return a, nil
	case DismissModalMsg:
		a.dismissTop()
		return a, nil
	case spinner.TickMsg:
		var cmds []tea.Cmd
		for i := range a.Overlays.Stack {
			var cmd tea.Cmd
			a.Overlays.Stack[i].View, cmd = a.Overlays.Stack[i].View.Update(msg)
			cmds = append(cmds, cmd)
		}
		v, cmd := a.currentView().Update(msg)
		a.setCurrentView(v)
		return a, tea.Batch(append(cmds, cmd)...)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if top, ok := a.Overlays.Peek(); ok {
			if top.IsDismissKey(msg.String()) {
				a.dismissTop()
				return a, nil
			}
			cmd, _ := a.Overlays.UpdateTop(msg)
			return a, cmd
		}
		if a.Home != nil && a.Home.CapturesInput() {
			break
		}
		if a.KeyHandler != nil {
			if consumed, keyCmd := a.KeyHandler.Handle(msg); consumed {
				return a, keyCmd
			}
		}
	}

	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return a, cmd
}

// navigate switches pages. Leaving Home closes its session; entering Home
// mounts a new one.
func (a *appModelAdapter) navigate(to Route) tea.Cmd {
	if to == a.Route {
		return nil
	}
	if a.Home != nil {
		if err := a.Home.Close(); err != nil {
			a.deps.Logger.Debug("close home", "error", err)
		}
		a.Home = nil
	}
	a.Route = to
	if to != RouteHome {
		return nil
	}
	a.Home = NewHomeView(a.deps.Platform, a.deps.Logger)
	if a.width > 0 {
		a.Home.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
	return a.Home.Init()
}

func (a *appModelAdapter) dismissTop() {
	top, ok := a.Overlays.Pop()
	if !ok {
		return
	}
	if c, ok := top.View.(Closer); ok {
		if err := c.Close(); err != nil {
			a.deps.Logger.Debug("close overlay", "error", err)
		}
	}
}

func (a *appModelAdapter) updatePicker(req *PickRequest, msg tea.Msg) tea.Cmd {
	for i := range a.Overlays.Stack {
		if p, ok := a.Overlays.Stack[i].View.(*DevicePickerModal); ok && p.Request() == req {
			var cmd tea.Cmd
			a.Overlays.Stack[i].View, cmd = p.Update(msg)
			return cmd
		}
	}
	return nil
}

func (a *appModelAdapter) currentView() View {
	switch a.Route {
	case RouteAbout:
		return a.About
	case RouteSettings:
		return a.Settings
	default:
		if a.Home == nil {
			a.Home = NewHomeView(a.deps.Platform, a.deps.Logger)
		}
		return a.Home
	}
}

func (a *appModelAdapter) setCurrentView(v View) {
	switch v := v.(type) {
	case *HomeView:
		a.Home = v
	case *AboutView:
		a.About = v
	case *SettingsView:
		a.Settings = v
	}
}

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	var b strings.Builder
	b.WriteString(a.renderNav() + "\n\n")
	b.WriteString(a.currentView().View())
	for _, o := range a.Overlays.Stack {
		b.WriteString("\n" + o.View.View())
	}
	if a.KeyHandler != nil && a.KeyHandler.LeaderWaiting {
		b.WriteString("\n" + RenderKeybindHelp(a.KeyHandler, a.Route))
	}
	return b.String()
}

func (a *appModelAdapter) renderNav() string {
	items := make([]string, 0, len(Routes))
	for i, r := range Routes {
		label := string(rune('1'+i)) + " " + r.String()
		if r == a.Route {
			items = append(items, Styles.NavActive.Render(label))
		} else {
			items = append(items, Styles.NavItem.Render(label))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, items...)
	if a.width > 0 {
		return Styles.NavBar.Width(a.width).Render(bar)
	}
	return Styles.NavBar.Render(bar)
}
