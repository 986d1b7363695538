// Package session holds the state of one Home view mount: the devices found
// so far, the connected device, the text going out and coming in, and the
// last error. Operations call the platform outside the lock and report
// every change to an Emitter so the view can re-render.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"blepad/internal/ble"
	"blepad/internal/progress"
	"blepad/internal/telemetry"
)

// Display messages.
const (
	MsgUnavailable    = "Web Bluetooth API is not available in this browser."
	MsgDiscoverFailed = "Failed to discover devices."
	MsgConnectFailed  = "Failed to connect to device."
	MsgSendFailed     = "Failed to send data."
	MsgReceiveFailed  = "Failed to receive data."
	MsgReadFailed     = "Failed to read received data."
)

// ErrNoDevice is returned by Connect when handed a nil device.
var ErrNoDevice = errors.New("no device selected")

// DiscoverOptions is the request Discover makes: any device, with access to
// the generic access service.
var DiscoverOptions = ble.RequestOptions{
	AcceptAllDevices: true,
	OptionalServices: []ble.UUID{ble.GenericAccess},
}

// Options configures a Session.
type Options struct {
	Logger  *slog.Logger
	Emitter progress.Emitter
}

// Session is safe for concurrent use.
type Session struct {
	id       string
	platform ble.Platform
	log      *slog.Logger
	emit     progress.Emitter

	mu         sync.Mutex
	devices    []ble.Device
	connected  ble.Device
	outbound   string
	inbound    string
	connecting bool
	errMsg     string
	sub        ble.Subscription
	// gen changes whenever the live subscription is replaced or dropped;
	// notifications carrying an older gen are ignored.
	gen    uint64
	closed bool
}

// New returns an empty session. platform may be nil, which every operation
// treats as Bluetooth being unavailable.
func New(platform ble.Platform, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Emitter == nil {
		opts.Emitter = progress.Discard
	}
	id := ulid.Make().String()
	return &Session{
		id:       id,
		platform: platform,
		log:      opts.Logger.With("session", id),
		emit:     opts.Emitter,
	}
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// Snapshot is a copy of the session state.
type Snapshot struct {
	ID         string
	Devices    []ble.Device
	Connected  ble.Device
	Outbound   string
	Inbound    string
	Connecting bool
	Error      string
	Receiving  bool
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.id,
		Devices:    append([]ble.Device(nil), s.devices...),
		Connected:  s.connected,
		Outbound:   s.outbound,
		Inbound:    s.inbound,
		Connecting: s.connecting,
		Error:      s.errMsg,
		Receiving:  s.sub != nil,
	}
}

// SetOutbound records the text being composed.
func (s *Session) SetOutbound(text string) {
	s.mu.Lock()
	s.outbound = text
	s.mu.Unlock()
	s.notify("outbound", progress.StatusDone, "")
}

// Discover asks the platform for a device and appends it to the list.
func (s *Session) Discover(ctx context.Context) (err error) {
	ctx, span := s.start(ctx, "discover")
	defer func() { s.finish(span, "discover", err) }()

	if s.platform == nil {
		s.fail("discover", MsgUnavailable)
		return ble.ErrUnavailable
	}
	d, err := s.platform.RequestDevice(ctx, DiscoverOptions)
	if err != nil {
		msg, status := message(err, MsgDiscoverFailed), progress.StatusError
		switch {
		case errors.Is(err, ble.ErrUnavailable):
			msg = MsgUnavailable
		case errors.Is(err, ble.ErrChooserCancelled):
			status = progress.StatusAborted
		}
		s.setError("discover", status, msg)
		return err
	}

	s.mu.Lock()
	s.devices = append(s.devices, d)
	s.mu.Unlock()
	span.SetAttributes(attribute.String("device.id", d.ID()))
	s.log.Debug("device discovered", "id", d.ID(), "name", d.Name())
	s.notifyDevice("discover", progress.StatusDone, ble.DisplayName(d), d)
	return nil
}

// Connect connects to d. On success d becomes the connected device and the
// error clears; on failure the previous connected device stays.
func (s *Session) Connect(ctx context.Context, d ble.Device) (err error) {
	if d == nil {
		return ErrNoDevice
	}
	ctx, span := s.start(ctx, "connect", attribute.String("device.id", d.ID()))
	defer func() { s.finish(span, "connect", err) }()

	s.mu.Lock()
	s.connecting = true
	s.mu.Unlock()
	s.notifyDevice("connect", progress.StatusRunning, ble.DisplayName(d), d)

	err = d.GATT().Connect(ctx)

	s.mu.Lock()
	s.connecting = false
	if err != nil {
		msg := message(err, MsgConnectFailed)
		s.errMsg = msg
		s.mu.Unlock()
		s.notifyDevice("connect", progress.StatusError, msg, d)
		return err
	}
	var stale ble.Subscription
	if s.connected == nil || s.connected.ID() != d.ID() {
		stale = s.dropSubscriptionLocked()
	}
	s.connected = d
	s.errMsg = ""
	s.mu.Unlock()

	s.cancel(stale)
	s.log.Debug("device connected", "id", d.ID())
	s.notifyDevice("connect", progress.StatusDone, ble.DisplayName(d), d)
	return nil
}

// Send writes text to the connected device's device_name characteristic.
// Without a connected device it does nothing.
func (s *Session) Send(ctx context.Context, text string) (err error) {
	s.mu.Lock()
	d := s.connected
	s.mu.Unlock()
	if d == nil {
		return nil
	}

	ctx, span := s.start(ctx, "send", attribute.String("device.id", d.ID()), attribute.Int("bytes", len(text)))
	defer func() { s.finish(span, "send", err) }()

	ch, err := resolve(ctx, d)
	if err == nil {
		err = ch.WriteValue(ctx, []byte(text))
	}
	if err != nil {
		s.fail("send", message(err, MsgSendFailed))
		return err
	}
	s.notify("send", progress.StatusDone, "")
	return nil
}

// Receive subscribes to device_name notifications on the connected device,
// replacing any earlier subscription. Each notification becomes the inbound
// text. Without a connected device it does nothing.
func (s *Session) Receive(ctx context.Context) (err error) {
	s.mu.Lock()
	d := s.connected
	s.mu.Unlock()
	if d == nil {
		return nil
	}

	ctx, span := s.start(ctx, "receive", attribute.String("device.id", d.ID()))
	defer func() { s.finish(span, "receive", err) }()

	ch, err := resolve(ctx, d)
	if err != nil {
		s.fail("receive", message(err, MsgReceiveFailed))
		return err
	}

	s.mu.Lock()
	old := s.dropSubscriptionLocked()
	gen := s.gen
	s.mu.Unlock()
	s.cancel(old)

	sub, err := ch.StartNotifications(ctx, func(value []byte) { s.deliver(gen, value) })
	if err != nil {
		s.fail("receive", message(err, MsgReceiveFailed))
		return err
	}

	s.mu.Lock()
	if s.gen != gen || s.closed {
		s.mu.Unlock()
		s.cancel(sub)
		return nil
	}
	s.sub = sub
	s.mu.Unlock()
	s.notify("receive", progress.StatusDone, "")
	return nil
}

// Close cancels the live subscription. Later notifications are ignored.
// Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.dropSubscriptionLocked()
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	s.log.Debug("closing subscription")
	return sub.Cancel()
}

func (s *Session) deliver(gen uint64, value []byte) {
	s.mu.Lock()
	if s.gen != gen || s.closed {
		s.mu.Unlock()
		return
	}
	if value == nil {
		s.errMsg = MsgReadFailed
		s.mu.Unlock()
		s.log.Debug("notification without value")
		s.notify("notify", progress.StatusError, MsgReadFailed)
		return
	}
	s.inbound = string(value)
	s.mu.Unlock()
	s.notify("notify", progress.StatusDone, string(value))
}

// dropSubscriptionLocked detaches the live subscription and bumps gen. The
// caller cancels the returned handle after unlocking.
func (s *Session) dropSubscriptionLocked() ble.Subscription {
	s.gen++
	sub := s.sub
	s.sub = nil
	return sub
}

func (s *Session) cancel(sub ble.Subscription) {
	if sub == nil {
		return
	}
	if err := sub.Cancel(); err != nil {
		s.log.Debug("cancel subscription", "error", err)
	}
}

func (s *Session) fail(op, msg string) {
	s.setError(op, progress.StatusError, msg)
}

func (s *Session) setError(op string, status progress.Status, msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.notify(op, status, msg)
}

func (s *Session) notify(op string, status progress.Status, msg string) {
	s.emit.Emit(progress.Event{Session: s.id, Op: op, Status: status, Message: msg})
}

// notifyDevice is notify for events about one device; its ID goes in the
// "device.id" metadata key.
func (s *Session) notifyDevice(op string, status progress.Status, msg string, d ble.Device) {
	s.emit.Emit(progress.Event{
		Session:  s.id,
		Op:       op,
		Status:   status,
		Message:  msg,
		Metadata: map[string]string{"device.id": d.ID()},
	})
}

func (s *Session) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("session.id", s.id))
	return telemetry.StartSpan(ctx, "session."+op, trace.WithAttributes(attrs...))
}

func (s *Session) finish(span trace.Span, op string, err error) {
	defer span.End()
	if err != nil {
		s.log.Debug(op+" failed", "error", err)
		telemetry.RecordError(span, err)
		return
	}
	telemetry.SetOK(span)
}

// resolve finds the generic access service and its device_name
// characteristic on d.
func resolve(ctx context.Context, d ble.Device) (ble.Characteristic, error) {
	svc, err := d.GATT().PrimaryService(ctx, ble.GenericAccess)
	if err != nil {
		return nil, err
	}
	return svc.Characteristic(ctx, ble.DeviceName)
}

// message is the display text for err, or fallback when err has none.
func message(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
