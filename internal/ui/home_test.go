package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"blepad/internal/ble"
	"blepad/internal/ble/blefake"
	"blepad/internal/progress"
	"blepad/internal/session"
)

func fakePeripheral(id, name string) (*blefake.Device, *blefake.Characteristic) {
	d := blefake.NewDevice(id, name)
	c := d.AddService(ble.GenericAccess).AddCharacteristic(ble.DeviceName, []byte(name))
	return d, c
}

// press sends key to h, dropping any cmd.
func press(h *HomeView, key string) {
	h.Update(keyMsg(key))
}

// do sends a key that starts a session operation, runs it and feeds the
// result back in, the way the Bubble Tea runtime would.
func do(t *testing.T, h *HomeView, key string) {
	t.Helper()
	_, cmd := h.Update(keyMsg(key))
	if cmd == nil {
		t.Fatalf("%s: no operation started", key)
	}
	msg, ok := cmd().(opDoneMsg)
	if !ok {
		t.Fatalf("%s: expected opDoneMsg", key)
	}
	h.Update(msg)
}

func TestHomeView_Initial(t *testing.T) {
	h := NewHomeView(blefake.New(), nil)
	defer h.Close()

	out := h.View()
	for _, want := range []string{"Home", "Discover Devices", "Discoverable Device List", "No devices yet"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Send/Receive Data") {
		t.Error("data panel shown without a connection")
	}
}

func TestHomeView_NoBluetooth(t *testing.T) {
	h := NewHomeView(nil, nil)
	defer h.Close()

	do(t, h, "d")
	if out := h.View(); !strings.Contains(out, session.MsgUnavailable) {
		t.Errorf("expected unavailable message:\n%s", out)
	}
}

func TestHomeView_DiscoverConnectExchange(t *testing.T) {
	a, _ := fakePeripheral("a", "Thermo")
	b, bc := fakePeripheral("b", "")
	p := blefake.New(a, b)
	h := NewHomeView(p, nil)
	defer h.Close()

	p.Select("b")
	do(t, h, "d")
	p.Select("a")
	do(t, h, "d")

	out := h.View()
	if !strings.Contains(out, "Unknown Device") || !strings.Contains(out, "Thermo") {
		t.Fatalf("expected both devices listed:\n%s", out)
	}

	do(t, h, "enter")
	out = h.View()
	if !strings.Contains(out, "Send/Receive Data") || !strings.Contains(out, "Connected to Unknown Device") {
		t.Fatalf("expected connection to first listed device:\n%s", out)
	}

	press(h, "i")
	if !h.CapturesInput() {
		t.Fatal("i should focus the text input")
	}
	press(h, "h")
	press(h, "i")
	if got := h.Session.Snapshot().Outbound; got != "hi" {
		t.Errorf("outbound = %q, want hi", got)
	}
	do(t, h, "enter")
	if w := bc.Writes(); len(w) != 1 || string(w[0]) != "hi" {
		t.Errorf("writes = %q", w)
	}
	press(h, "esc")
	if h.CapturesInput() {
		t.Fatal("esc should return focus to the device list")
	}

	do(t, h, "r")
	bc.Notify([]byte("pong"))
	h.Update(sessionEventMsg{Event: progress.Event{Session: h.Session.ID(), Op: "notify"}})
	out = h.View()
	if !strings.Contains(out, "Received Data: pong") || !strings.Contains(out, "(listening)") {
		t.Errorf("expected received value:\n%s", out)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := bc.Subscribers(); n != 0 {
		t.Errorf("subscription survived Close: %d", n)
	}
}

func TestHomeView_InputNeedsConnection(t *testing.T) {
	h := NewHomeView(blefake.New(), nil)
	defer h.Close()

	press(h, "i")
	if h.CapturesInput() {
		t.Error("input focused without a connected device")
	}
}

func TestHomeView_IgnoresOtherSessions(t *testing.T) {
	h := NewHomeView(blefake.New(), nil)
	defer h.Close()

	_, cmd := h.Update(sessionEventMsg{Event: progress.Event{Session: "someone-else"}})
	if cmd != nil {
		t.Error("event from another session should not re-arm the listener")
	}
}

func TestHomeView_ListenStopsOnClose(t *testing.T) {
	h := NewHomeView(blefake.New(), nil)
	listen := h.listen()
	h.Close()
	if msg := listen(); msg != nil {
		t.Errorf("listen after Close = %#v, want nil", msg)
	}
}

func TestHomeView_OperationAfterCloseIsCancelled(t *testing.T) {
	p := blefake.New(blefake.NewDevice("a", "A"))
	h := NewHomeView(p, nil)
	_, cmd := h.Update(keyMsg("d"))
	h.Close()

	msg, ok := cmd().(opDoneMsg)
	if !ok {
		t.Fatal("expected opDoneMsg")
	}
	if !errors.Is(msg.Err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", msg.Err)
	}
	if _, cmd := h.Update(tea.WindowSizeMsg{Width: 80, Height: 24}); cmd != nil {
		t.Error("resize should not produce a cmd")
	}
}
