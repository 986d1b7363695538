//go:build !linux

package adapter

import "tinygo.org/x/bluetooth"

func writeValue(c bluetooth.DeviceCharacteristic, value []byte) error {
	_, err := c.Write(value)
	return err
}
