package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"blepad/internal/ble"
)

// DevicePickerModal lists advertisements as a scan finds them and lets the
// user pick one. It stands in for a browser's device chooser.
type DevicePickerModal struct {
	req      *PickRequest
	list     list.Model
	spinner  spinner.Model
	scanning bool
}

type advItem ble.Advertisement

func (a advItem) FilterValue() string { return a.Name }

func (a advItem) Title() string {
	if a.Name == "" {
		return ble.UnknownDeviceName
	}
	return a.Name
}

func (a advItem) Description() string {
	if a.RSSI == 0 {
		return a.ID
	}
	return fmt.Sprintf("%s  %d dBm", a.ID, a.RSSI)
}

// Ensure DevicePickerModal implements View.
var _ View = (*DevicePickerModal)(nil)

// NewDevicePickerModal creates a picker for req.
func NewDevicePickerModal(req *PickRequest) *DevicePickerModal {
	l := list.New(nil, NewCompactListDelegate(true), 48, 10)
	l.Title = "Pair a Bluetooth device"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = Styles.Title

	s := spinner.New()
	s.Spinner = spinner.Dot
	return &DevicePickerModal{req: req, list: l, spinner: s, scanning: true}
}

// Request returns the chooser call this modal resolves.
func (m *DevicePickerModal) Request() *PickRequest { return m.req }

// Init implements View.
func (m *DevicePickerModal) Init() tea.Cmd {
	return tea.Batch(m.req.next(true), m.spinner.Tick)
}

// Update implements View.
func (m *DevicePickerModal) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case pickerScanMsg:
		if msg.req != m.req {
			return m, nil
		}
		if msg.gone {
			return m, m.closeCmd()
		}
		if !msg.ok {
			m.scanning = false
			return m, m.req.next(false)
		}
		cmd := m.list.InsertItem(len(m.list.Items()), advItem(msg.adv))
		return m, tea.Batch(cmd, m.req.next(true))
	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.req.Cancel()
			return m, m.closeCmd()
		case "enter":
			if sel, ok := m.list.SelectedItem().(advItem); ok {
				m.req.Pick(ble.Advertisement(sel))
				return m, m.closeCmd()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Close cancels the request if it is still open.
func (m *DevicePickerModal) Close() error {
	m.req.Cancel()
	return nil
}

func (m *DevicePickerModal) closeCmd() tea.Cmd {
	req := m.req
	return func() tea.Msg { return closePickerMsg{req: req} }
}

// View implements View.
func (m *DevicePickerModal) View() string {
	status := Styles.Muted.Render("Scan finished")
	if m.scanning {
		status = m.spinner.View() + " " + Styles.Status.Render("Scanning…")
	}
	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = Styles.Title.Render(m.list.Title) + "\n\n" + Styles.Empty.Render("No devices found yet")
	}
	help := "j/k: move  Enter: pair  Esc: cancel"
	return Styles.BoxCompact.Render(body + "\n" + status + "\n" + Styles.Hint.Render(help))
}
