// Package blefake is an in-memory ble.Platform. Peripherals, their services
// and characteristics are declared up front; every step can be made to fail,
// and notifications are pushed with Characteristic.Notify.
package blefake

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"blepad/internal/ble"
)

// Platform is a fake ble.Platform. The zero value is not usable; use New.
type Platform struct {
	// Unavailable makes RequestDevice fail with ble.ErrUnavailable.
	Unavailable bool
	// RequestErr, when set, is returned by RequestDevice after validation.
	RequestErr error
	// Chooser picks among advertisements. When nil, queued Select calls
	// decide, falling back to the first device in range.
	Chooser ble.Chooser
	// Latency delays every call, for demos.
	Latency time.Duration

	mu      sync.Mutex
	devices []*Device
	picks   []string
	calls   atomic.Int64
}

var _ ble.Platform = (*Platform)(nil)

// New returns a platform with the given peripherals in range.
func New(devices ...*Device) *Platform {
	p := &Platform{}
	for _, d := range devices {
		p.Add(d)
	}
	return p
}

// Add puts a peripheral in range.
func (p *Platform) Add(d *Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d.platform = p
	p.devices = append(p.devices, d)
}

// Select queues the ID the default chooser picks on the next request.
func (p *Platform) Select(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.picks = append(p.picks, id)
}

// Calls returns the number of platform calls made so far, across every
// device, service and characteristic.
func (p *Platform) Calls() int {
	return int(p.calls.Load())
}

func (p *Platform) call(ctx context.Context) error {
	p.calls.Add(1)
	if p.Latency > 0 {
		t := time.NewTimer(p.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

// RequestDevice implements ble.Platform.
func (p *Platform) RequestDevice(ctx context.Context, opts ble.RequestOptions) (ble.Device, error) {
	if err := p.call(ctx); err != nil {
		return nil, err
	}
	if p.Unavailable {
		return nil, ble.ErrUnavailable
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if p.RequestErr != nil {
		return nil, p.RequestErr
	}

	p.mu.Lock()
	var inRange []*Device
	for _, d := range p.devices {
		if opts.Matches(d.advertisement()) {
			inRange = append(inRange, d)
		}
	}
	var pick string
	if len(p.picks) > 0 {
		pick, p.picks = p.picks[0], p.picks[1:]
	}
	chooser := p.Chooser
	p.mu.Unlock()

	if chooser == nil {
		chooser = ble.ChooserFunc(func(ctx context.Context, found <-chan ble.Advertisement) (ble.Advertisement, error) {
			for adv := range found {
				if pick == "" || adv.ID == pick {
					return adv, nil
				}
			}
			return ble.Advertisement{}, ble.ErrChooserCancelled
		})
	}

	found := make(chan ble.Advertisement, len(inRange))
	for _, d := range inRange {
		found <- d.advertisement()
	}
	close(found)

	adv, err := chooser.Choose(ctx, found)
	if err != nil {
		return nil, err
	}
	for _, d := range inRange {
		if d.id == adv.ID {
			d.allow(opts.AllowedServices())
			return d, nil
		}
	}
	return nil, fmt.Errorf("chooser returned unknown device %q", adv.ID)
}

// Device is a fake peripheral.
type Device struct {
	// ConnectErr, when set, is returned by every GATT.Connect.
	ConnectErr error

	id       string
	name     string
	rssi     int
	platform *Platform

	mu        sync.Mutex
	connected bool
	connects  int
	allowed   []ble.UUID
	services  []*Service
}

var _ ble.Device = (*Device)(nil)

// NewDevice returns a peripheral with no services.
func NewDevice(id, name string) *Device {
	return &Device{id: id, name: name, rssi: -60}
}

// ID implements ble.Device.
func (d *Device) ID() string { return d.id }

// Name implements ble.Device.
func (d *Device) Name() string { return d.name }

// GATT implements ble.Device.
func (d *Device) GATT() ble.GATT { return server{d} }

// Connects returns how many successful connects the device has seen.
func (d *Device) Connects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

// AddService declares a primary service and returns it for further setup.
func (d *Device) AddService(uuid ble.UUID) *Service {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &Service{uuid: uuid, device: d}
	d.services = append(d.services, s)
	return s
}

func (d *Device) advertisement() ble.Advertisement {
	d.mu.Lock()
	defer d.mu.Unlock()
	adv := ble.Advertisement{ID: d.id, Name: d.name, RSSI: d.rssi}
	for _, s := range d.services {
		adv.Services = append(adv.Services, s.uuid)
	}
	return adv
}

func (d *Device) allow(services []ble.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allowed = services
}

func (d *Device) call(ctx context.Context) error {
	if d.platform == nil {
		return ctx.Err()
	}
	return d.platform.call(ctx)
}

type server struct{ d *Device }

func (s server) Connect(ctx context.Context) error {
	if err := s.d.call(ctx); err != nil {
		return err
	}
	if s.d.ConnectErr != nil {
		return s.d.ConnectErr
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.connected = true
	s.d.connects++
	return nil
}

func (s server) Connected() bool {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.d.connected
}

func (s server) PrimaryService(ctx context.Context, uuid ble.UUID) (ble.Service, error) {
	if err := s.d.call(ctx); err != nil {
		return nil, err
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if !s.d.connected {
		return nil, ble.ErrDisconnected
	}
	if s.d.allowed != nil && !ble.ContainsUUID(s.d.allowed, uuid) {
		return nil, fmt.Errorf("%s: %w", uuid.Label(), ble.ErrServiceBlocked)
	}
	for _, svc := range s.d.services {
		if svc.uuid == uuid {
			return svc, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", uuid.Label(), ble.ErrServiceNotFound)
}

// Service is a fake primary service.
type Service struct {
	uuid   ble.UUID
	device *Device
	chars  []*Characteristic
}

var _ ble.Service = (*Service)(nil)

// AddCharacteristic declares a characteristic with an initial value.
func (s *Service) AddCharacteristic(uuid ble.UUID, value []byte) *Characteristic {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	c := &Characteristic{uuid: uuid, service: s, value: value, Notifiable: true, subs: map[int]ble.NotificationHandler{}}
	s.chars = append(s.chars, c)
	return c
}

// UUID implements ble.Service.
func (s *Service) UUID() ble.UUID { return s.uuid }

// Characteristic implements ble.Service.
func (s *Service) Characteristic(ctx context.Context, uuid ble.UUID) (ble.Characteristic, error) {
	if err := s.device.call(ctx); err != nil {
		return nil, err
	}
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	if !s.device.connected {
		return nil, ble.ErrDisconnected
	}
	for _, c := range s.chars {
		if c.uuid == uuid {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", uuid.Label(), ble.ErrCharacteristicNotFound)
}

// Characteristic is a fake characteristic.
type Characteristic struct {
	// WriteErr and NotifyErr fail WriteValue and StartNotifications.
	WriteErr  error
	NotifyErr error
	// Notifiable is true by default; false makes StartNotifications fail.
	Notifiable bool
	// Echo pushes every written value to live subscribers.
	Echo bool

	uuid    ble.UUID
	service *Service

	mu     sync.Mutex
	value  []byte
	writes [][]byte
	subs   map[int]ble.NotificationHandler
	nextID int
}

var _ ble.Characteristic = (*Characteristic)(nil)

// UUID implements ble.Characteristic.
func (c *Characteristic) UUID() ble.UUID { return c.uuid }

// WriteValue implements ble.Characteristic.
func (c *Characteristic) WriteValue(ctx context.Context, value []byte) error {
	if err := c.service.device.call(ctx); err != nil {
		return err
	}
	if c.WriteErr != nil {
		return c.WriteErr
	}
	if !c.service.device.GATT().Connected() {
		return ble.ErrDisconnected
	}
	v := append([]byte(nil), value...)
	c.mu.Lock()
	c.value = v
	c.writes = append(c.writes, v)
	c.mu.Unlock()
	if c.Echo {
		c.Notify(v)
	}
	return nil
}

// StartNotifications implements ble.Characteristic.
func (c *Characteristic) StartNotifications(ctx context.Context, h ble.NotificationHandler) (ble.Subscription, error) {
	if err := c.service.device.call(ctx); err != nil {
		return nil, err
	}
	if c.NotifyErr != nil {
		return nil, c.NotifyErr
	}
	if !c.Notifiable {
		return nil, ble.ErrNotificationsUnsupported
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = h
	return &subscription{c: c, id: id}, nil
}

// Notify delivers value to every live subscriber, synchronously.
func (c *Characteristic) Notify(value []byte) {
	c.mu.Lock()
	hs := make([]ble.NotificationHandler, 0, len(c.subs))
	for _, h := range c.subs {
		hs = append(hs, h)
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(value)
	}
}

// Subscribers returns the number of live subscriptions.
func (c *Characteristic) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Writes returns every value written so far.
func (c *Characteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

// Value returns the current value.
func (c *Characteristic) Value() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

type subscription struct {
	c    *Characteristic
	id   int
	once sync.Once
}

func (s *subscription) Cancel() error {
	s.once.Do(func() {
		s.c.mu.Lock()
		delete(s.c.subs, s.id)
		s.c.mu.Unlock()
	})
	return nil
}

// Demo returns a platform with a few peripherals whose device_name
// characteristic echoes writes back as notifications.
func Demo() *Platform {
	p := New()
	p.Latency = 250 * time.Millisecond
	for _, spec := range []struct{ id, name string }{
		{"C0:FF:EE:00:00:01", "Thermo Sensor"},
		{"C0:FF:EE:00:00:02", "Desk Lamp"},
		{"C0:FF:EE:00:00:03", ""},
	} {
		d := NewDevice(spec.id, spec.name)
		gap := d.AddService(ble.GenericAccess)
		gap.AddCharacteristic(ble.DeviceName, []byte(spec.name)).Echo = true
		d.AddService(ble.BatteryService).AddCharacteristic(ble.BatteryLevel, []byte{87})
		p.Add(d)
	}
	return p
}
