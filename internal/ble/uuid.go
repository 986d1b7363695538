package ble

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// UUID is a 128-bit Bluetooth UUID. 16- and 32-bit SIG identifiers are
// expanded onto the Bluetooth base UUID.
type UUID [16]byte

// base is 00000000-0000-1000-8000-00805F9B34FB.
var base = UUID{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb}

// UUID16 expands a 16-bit SIG identifier such as 0x1800.
func UUID16(v uint16) UUID {
	return UUID32(uint32(v))
}

// UUID32 expands a 32-bit SIG identifier.
func UUID32(v uint32) UUID {
	u := base
	binary.BigEndian.PutUint32(u[0:4], v)
	return u
}

// Well-known identifiers used by blepad.
var (
	GenericAccess     = UUID16(0x1800)
	GenericAttribute  = UUID16(0x1801)
	DeviceInformation = UUID16(0x180a)
	BatteryService    = UUID16(0x180f)

	DeviceName   = UUID16(0x2a00)
	Appearance   = UUID16(0x2a01)
	BatteryLevel = UUID16(0x2a19)
)

// names maps the lower-case names the browser API accepts for services and
// characteristics to their identifiers.
var names = map[string]UUID{
	"generic_access":     GenericAccess,
	"generic_attribute":  GenericAttribute,
	"device_information": DeviceInformation,
	"battery_service":    BatteryService,
	"device_name":        DeviceName,
	"gap.device_name":    DeviceName,
	"appearance":         Appearance,
	"gap.appearance":     Appearance,
	"battery_level":      BatteryLevel,
}

// ParseUUID accepts a registered name ("generic_access"), a short SIG
// identifier ("1800", "0x1800", "0000180f"), or a full 128-bit string.
func ParseUUID(s string) (UUID, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if u, ok := names[in]; ok {
		return u, nil
	}
	in = strings.TrimPrefix(in, "0x")
	switch len(in) {
	case 4, 8:
		b, err := hex.DecodeString(fmt.Sprintf("%08s", in))
		if err != nil {
			return UUID{}, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		return UUID32(binary.BigEndian.Uint32(b)), nil
	case 36:
		if in[8] != '-' || in[13] != '-' || in[18] != '-' || in[23] != '-' {
			return UUID{}, fmt.Errorf("invalid uuid %q", s)
		}
		b, err := hex.DecodeString(strings.ReplaceAll(in, "-", ""))
		if err != nil {
			return UUID{}, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		var u UUID
		copy(u[:], b)
		return u, nil
	}
	return UUID{}, fmt.Errorf("invalid uuid %q", s)
}

// MustParseUUID is like ParseUUID but panics on error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the canonical lower-case 8-4-4-4-12 form.
func (u UUID) String() string {
	var buf [36]byte
	hex.Encode(buf[0:8], u[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], u[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], u[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], u[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:36], u[10:16])
	return string(buf[:])
}

// Short returns the 16-bit identifier and true when u sits on the base UUID.
func (u UUID) Short() (uint16, bool) {
	if [12]byte(u[4:16]) != [12]byte(base[4:16]) || u[0] != 0 || u[1] != 0 {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

// Label is a short display form: the registered name when known, "0x1800"
// for other SIG identifiers, the full string otherwise.
func (u UUID) Label() string {
	for name, v := range names {
		if v == u && !strings.Contains(name, ".") {
			return name
		}
	}
	if s, ok := u.Short(); ok {
		return fmt.Sprintf("0x%04x", s)
	}
	return u.String()
}

// ContainsUUID reports whether u is in list.
func ContainsUUID(list []UUID, u UUID) bool {
	for _, v := range list {
		if v == u {
			return true
		}
	}
	return false
}
