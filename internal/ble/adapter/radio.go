package adapter

import "tinygo.org/x/bluetooth"

// sighting is one advertisement as the scan loop sees it.
type sighting struct {
	addr bluetooth.Address
	id   string
	name string
	rssi int
	// hasService reports whether the advertisement lists a service UUID.
	hasService func(bluetooth.UUID) bool
}

// radio is the part of *bluetooth.Adapter the Adapter drives.
type radio interface {
	Enable() error
	Scan(func(sighting)) error
	StopScan() error
	Connect(bluetooth.Address) (bluetooth.Device, error)
}

// hostRadio is the OS Bluetooth stack.
type hostRadio struct {
	bt *bluetooth.Adapter
}

func (h hostRadio) Enable() error   { return h.bt.Enable() }
func (h hostRadio) StopScan() error { return h.bt.StopScan() }

func (h hostRadio) Scan(fn func(sighting)) error {
	return h.bt.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		fn(sighting{
			addr:       r.Address,
			id:         r.Address.String(),
			name:       r.LocalName(),
			rssi:       int(r.RSSI),
			hasService: r.HasServiceUUID,
		})
	})
}

func (h hostRadio) Connect(addr bluetooth.Address) (bluetooth.Device, error) {
	return h.bt.Connect(addr, bluetooth.ConnectionParams{})
}
