package ble

import "errors"

var (
	// ErrUnavailable means the host has no usable Bluetooth adapter.
	ErrUnavailable = errors.New("bluetooth is not available")
	// ErrChooserCancelled means the user dismissed the device chooser.
	ErrChooserCancelled = errors.New("user cancelled the requestDevice() chooser")
	// ErrDisconnected means a GATT call was made without a connection.
	ErrDisconnected = errors.New("gatt server is disconnected, connect first")
	// ErrServiceNotFound means the peripheral has no such primary service.
	ErrServiceNotFound = errors.New("no services matching uuid found in device")
	// ErrCharacteristicNotFound means the service has no such characteristic.
	ErrCharacteristicNotFound = errors.New("no characteristics matching uuid found in service")
	// ErrNotificationsUnsupported means the characteristic cannot notify.
	ErrNotificationsUnsupported = errors.New("characteristic does not support notifications")
	// ErrServiceBlocked means the service was not listed in the request's
	// optional services.
	ErrServiceBlocked = errors.New("origin is not allowed to access the service, add it to optionalServices")
)
