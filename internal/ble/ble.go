// Package ble describes the platform capability blepad talks to: a small
// GATT client surface modelled on the browser Bluetooth API.
//
// Request a device, connect its GATT server, resolve a primary service and
// one of its characteristics, then write to it or subscribe to changes.
// Everything below that (scanning, pairing, ATT) belongs to the platform.
//
// Implementations:
//   - adapter: the host Bluetooth stack via tinygo.org/x/bluetooth
//   - blefake: an in-memory peripheral set for tests and demos
package ble

import "context"

// Platform is the entry point of the capability. A nil Platform means the
// capability is absent.
type Platform interface {
	// RequestDevice asks the user to pick a nearby device matching opts.
	// It fails with ErrChooserCancelled when the user dismisses the chooser
	// and with ErrUnavailable when there is no usable adapter.
	RequestDevice(ctx context.Context, opts RequestOptions) (Device, error)
}

// Device is an opaque handle to a discovered peripheral.
type Device interface {
	// ID is a platform-specific identifier (MAC on Linux, UUID on macOS).
	ID() string
	// Name is the advertised name; empty when the peripheral has none.
	Name() string
	// GATT returns the low-level connection sub-object.
	GATT() GATT
}

// GATT is the connection to a device's attribute server.
type GATT interface {
	Connect(ctx context.Context) error
	Connected() bool
	PrimaryService(ctx context.Context, uuid UUID) (Service, error)
}

// Service is a primary service on a connected device.
type Service interface {
	UUID() UUID
	Characteristic(ctx context.Context, uuid UUID) (Characteristic, error)
}

// NotificationHandler receives the new value of a characteristic.
// A nil value means the event carried no value.
type NotificationHandler func(value []byte)

// Characteristic is a single addressable value inside a service.
type Characteristic interface {
	UUID() UUID
	WriteValue(ctx context.Context, value []byte) error
	// StartNotifications enables change notifications and delivers each one
	// to h until the returned Subscription is cancelled.
	StartNotifications(ctx context.Context, h NotificationHandler) (Subscription, error)
}

// Subscription is a live notification registration.
type Subscription interface {
	// Cancel stops delivery. It is safe to call more than once.
	Cancel() error
}

// UnknownDeviceName is shown for devices that advertise no name.
const UnknownDeviceName = "Unknown Device"

// DisplayName returns the device name, or UnknownDeviceName when it has none.
func DisplayName(d Device) string {
	if d == nil {
		return ""
	}
	if n := d.Name(); n != "" {
		return n
	}
	return UnknownDeviceName
}
