package ui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"blepad/internal/ble"
	"blepad/internal/progress"
	"blepad/internal/session"
)

const (
	focusDevices  = "devices"
	focusOutbound = "outbound"
)

// HomeView is the device page. It owns one session.Session from mount to
// Close; nothing survives navigating away.
type HomeView struct {
	Session *session.Session

	ctx    context.Context
	cancel context.CancelFunc
	events chan progress.Event

	snap    session.Snapshot
	list    list.Model
	input   textinput.Model
	spinner spinner.Model
	focus   FocusManager
	width   int
}

type deviceItem struct {
	dev       ble.Device
	connected bool
}

func (d deviceItem) FilterValue() string { return d.dev.Name() }

func (d deviceItem) Title() string {
	if d.connected {
		return "● " + ble.DisplayName(d.dev)
	}
	return ble.DisplayName(d.dev)
}

func (d deviceItem) Description() string { return d.dev.ID() }

// Ensure HomeView implements View and Closer.
var (
	_ View   = (*HomeView)(nil)
	_ Closer = (*HomeView)(nil)
)

// NewHomeView mounts a fresh session on platform. A nil platform means
// Bluetooth is unavailable.
func NewHomeView(platform ble.Platform, log *slog.Logger) *HomeView {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan progress.Event, 64)
	s := session.New(platform, session.Options{
		Logger:  log,
		Emitter: &progress.ChanEmitter{Ch: events},
	})

	l := list.New(nil, NewCompactListDelegate(true), 60, 8)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()

	ti := textinput.New()
	ti.Placeholder = "text to send"
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	h := &HomeView{
		Session: s,
		ctx:     ctx,
		cancel:  cancel,
		events:  events,
		list:    l,
		input:   ti,
		spinner: sp,
		focus:   FocusManager{Current: focusDevices, Order: []string{focusDevices, focusOutbound}},
	}
	h.focus.OnChange = h.focusChanged
	h.snap = s.Snapshot()
	return h
}

// Init implements View.
func (h *HomeView) Init() tea.Cmd {
	return tea.Batch(h.listen(), h.spinner.Tick)
}

// CapturesInput reports whether keys should go straight to the text input.
func (h *HomeView) CapturesInput() bool {
	return h.focus.Is(focusOutbound)
}

// Close ends the mount: in-flight operations see a cancelled context and
// the notification subscription is cancelled.
func (h *HomeView) Close() error {
	h.cancel()
	return h.Session.Close()
}

// listen waits for the next session event.
func (h *HomeView) listen() tea.Cmd {
	ctx, events := h.ctx, h.events
	return func() tea.Msg {
		select {
		case ev := <-events:
			return sessionEventMsg{Event: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

// run executes op against the session off the UI goroutine.
func (h *HomeView) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx, id := h.ctx, h.Session.ID()
	return func() tea.Msg {
		return opDoneMsg{Session: id, Op: op, Err: fn(ctx)}
	}
}

func (h *HomeView) discover() tea.Cmd {
	return h.run("discover", h.Session.Discover)
}

func (h *HomeView) connect() tea.Cmd {
	item, ok := h.list.SelectedItem().(deviceItem)
	if !ok {
		return nil
	}
	return h.run("connect", func(ctx context.Context) error {
		return h.Session.Connect(ctx, item.dev)
	})
}

func (h *HomeView) send() tea.Cmd {
	text := h.input.Value()
	return h.run("send", func(ctx context.Context) error {
		return h.Session.Send(ctx, text)
	})
}

func (h *HomeView) receive() tea.Cmd {
	return h.run("receive", h.Session.Receive)
}

// Update implements View.
func (h *HomeView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionEventMsg:
		if msg.Event.Session != h.Session.ID() {
			return h, nil
		}
		h.refresh()
		return h, h.listen()
	case opDoneMsg:
		if msg.Session == h.Session.ID() {
			h.refresh()
		}
		return h, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		h.spinner, cmd = h.spinner.Update(msg)
		return h, cmd
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.list.SetWidth(max(msg.Width-4, 20))
		h.input.Width = max(msg.Width-12, 20)
		return h, nil
	case tea.KeyMsg:
		if h.focus.Is(focusOutbound) {
			return h.updateInput(msg)
		}
		switch msg.String() {
		case "d":
			return h, h.discover()
		case "enter":
			return h, h.connect()
		case "i":
			if h.snap.Connected != nil {
				h.focus.Next()
				return h, textinput.Blink
			}
			return h, nil
		case "s":
			return h, h.send()
		case "r":
			return h, h.receive()
		}
	}
	var cmd tea.Cmd
	h.list, cmd = h.list.Update(msg)
	return h, cmd
}

func (h *HomeView) updateInput(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		h.focus.Prev()
		return h, nil
	case "enter":
		return h, h.send()
	}
	var cmd tea.Cmd
	h.input, cmd = h.input.Update(msg)
	h.Session.SetOutbound(h.input.Value())
	return h, cmd
}

func (h *HomeView) focusChanged(_, to string) {
	if to == focusOutbound {
		h.input.Focus()
	} else {
		h.input.Blur()
	}
}

// refresh copies the session state into the widgets.
func (h *HomeView) refresh() {
	h.snap = h.Session.Snapshot()
	items := make([]list.Item, len(h.snap.Devices))
	for i, d := range h.snap.Devices {
		items[i] = deviceItem{dev: d, connected: d == h.snap.Connected}
	}
	sel := h.list.Index()
	h.list.SetItems(items)
	if sel < len(items) {
		h.list.Select(sel)
	}
	if h.snap.Connected == nil && h.focus.Is(focusOutbound) {
		h.focus.SetFocus(focusDevices)
	}
}

// textWidth is the room left for a single line of peripheral data.
func (h *HomeView) textWidth() int {
	if h.width == 0 {
		return 60
	}
	return max(h.width-24, 16)
}

var homeKeys = []key.Binding{
	key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discover")),
	key.NewBinding(key.WithKeys("j", "k"), key.WithHelp("j/k", "select")),
	key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
	key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "edit text")),
	key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "send")),
	key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "receive")),
}

var inputKeys = []key.Binding{
	key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "done editing")),
}

// View implements View.
func (h *HomeView) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render("Home") + "\n")
	if h.snap.Error != "" {
		b.WriteString(Styles.Error.Render(h.snap.Error) + "\n")
	}
	b.WriteString("\n" + Styles.Selected.Render("[d]") + " Discover Devices\n")

	devices := Styles.Subtitle.Render("Discoverable Device List") + "\n"
	if len(h.snap.Devices) == 0 {
		devices += Styles.Empty.Render("No devices yet")
	} else {
		devices += h.list.View()
	}
	if h.snap.Connecting {
		devices += "\n" + h.spinner.View() + " Connecting..."
	}
	b.WriteString(Styles.BoxCompact.Render(devices))

	if h.snap.Connected != nil {
		data := Styles.Subtitle.Render("Send/Receive Data") + "\n"
		data += Styles.OK.Render("Connected to "+ble.DisplayName(h.snap.Connected)) + "\n\n"
		data += h.input.View() + "\n"
		data += Styles.Selected.Render("[s]") + " Send Data  " + Styles.Selected.Render("[r]") + " Receive Data"
		if h.snap.Receiving {
			data += Styles.Muted.Render("  (listening)")
		}
		data += "\n\nReceived Data: " + truncate(singleLine(h.snap.Inbound), h.textWidth())
		b.WriteString("\n" + Styles.BoxCompact.Render(data))
	}

	keys := homeKeys
	if h.focus.Is(focusOutbound) {
		keys = inputKeys
	}
	b.WriteString("\n" + RenderHelpBar(keys))
	return b.String()
}
