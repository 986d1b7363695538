package adapter

import "tinygo.org/x/bluetooth"

// BlueZ only exposes write-without-response on DeviceCharacteristic.
func writeValue(c bluetooth.DeviceCharacteristic, value []byte) error {
	_, err := c.WriteWithoutResponse(value)
	return err
}
