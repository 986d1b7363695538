package adapter

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"blepad/internal/ble"
)

// device is a handle returned by RequestDevice. It holds the address until
// Connect turns it into a live bluetooth.Device.
type device struct {
	a       *Adapter
	addr    bluetooth.Address
	name    string
	allowed []ble.UUID

	mu   sync.Mutex
	conn *bluetooth.Device
}

func (d *device) ID() string     { return d.addr.String() }
func (d *device) Name() string   { return d.name }
func (d *device) GATT() ble.GATT { return d }

func (d *device) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return nil
	}
	conn, err := d.a.radio.Connect(d.addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", d.addr.String(), err)
	}
	d.conn = &conn
	d.a.log.Debug("connected", "id", d.addr.String())
	return nil
}

func (d *device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

func (d *device) PrimaryService(ctx context.Context, uuid ble.UUID) (ble.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return nil, ble.ErrDisconnected
	}
	if !ble.ContainsUUID(d.allowed, uuid) {
		return nil, fmt.Errorf("%s: %w", uuid.Label(), ble.ErrServiceBlocked)
	}
	svcs, err := conn.DiscoverServices([]bluetooth.UUID{toTiny(uuid)})
	if err != nil {
		return nil, fmt.Errorf("discover service %s: %w", uuid.Label(), err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("%s: %w", uuid.Label(), ble.ErrServiceNotFound)
	}
	return &service{uuid: uuid, svc: svcs[0]}, nil
}

type service struct {
	uuid ble.UUID
	svc  bluetooth.DeviceService
}

func (s *service) UUID() ble.UUID { return s.uuid }

func (s *service) Characteristic(ctx context.Context, uuid ble.UUID) (ble.Characteristic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chars, err := s.svc.DiscoverCharacteristics([]bluetooth.UUID{toTiny(uuid)})
	if err != nil {
		return nil, fmt.Errorf("discover characteristic %s: %w", uuid.Label(), err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("%s: %w", uuid.Label(), ble.ErrCharacteristicNotFound)
	}
	return &characteristic{uuid: uuid, char: chars[0]}, nil
}

type characteristic struct {
	uuid ble.UUID
	char bluetooth.DeviceCharacteristic

	// The stack keeps one notification callback per characteristic, so
	// subscriptions are tracked here and the newest one owns the callback.
	mu     sync.Mutex
	active *subscription
}

func (c *characteristic) UUID() ble.UUID { return c.uuid }

func (c *characteristic) WriteValue(ctx context.Context, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeValue(c.char, value); err != nil {
		return fmt.Errorf("write %s: %w", c.uuid.Label(), err)
	}
	return nil
}

func (c *characteristic) StartNotifications(ctx context.Context, h ble.NotificationHandler) (ble.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.stop()
	}
	sub := &subscription{c: c, h: h}
	err := c.char.EnableNotifications(func(buf []byte) {
		var v []byte
		if buf != nil {
			v = append([]byte{}, buf...)
		}
		sub.deliver(v)
	})
	if err != nil {
		return nil, fmt.Errorf("start notifications on %s: %w", c.uuid.Label(), err)
	}
	c.active = sub
	return sub, nil
}

type subscription struct {
	c *characteristic
	h ble.NotificationHandler

	mu     sync.Mutex
	closed bool
}

func (s *subscription) deliver(v []byte) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if !closed {
		s.h(v)
	}
}

func (s *subscription) stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Cancel stops delivery and, when this is the active subscription, turns
// notifications off on the peripheral.
func (s *subscription) Cancel() error {
	s.stop()
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.active != s {
		return nil
	}
	s.c.active = nil
	if err := s.c.char.EnableNotifications(nil); err != nil {
		return fmt.Errorf("stop notifications on %s: %w", s.c.uuid.Label(), err)
	}
	return nil
}
