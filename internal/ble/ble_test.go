package ble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUUID(t *testing.T) {
	tests := []struct {
		in   string
		want UUID
	}{
		{"generic_access", GenericAccess},
		{"device_name", DeviceName},
		{"GAP.Device_Name", DeviceName},
		{"1800", GenericAccess},
		{"0x2A00", DeviceName},
		{"0000180f", BatteryService},
		{"00001800-0000-1000-8000-00805f9b34fb", GenericAccess},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUUID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUUID_Invalid(t *testing.T) {
	for _, in := range []string{"", "zz", "18000", "generic", "00001800x0000-1000-8000-00805f9b34fb"} {
		_, err := ParseUUID(in)
		assert.Error(t, err, "ParseUUID(%q)", in)
	}
}

func TestUUID_StringAndLabel(t *testing.T) {
	assert.Equal(t, "00001800-0000-1000-8000-00805f9b34fb", GenericAccess.String())
	assert.Equal(t, "generic_access", GenericAccess.Label())
	assert.Equal(t, "0x2a37", UUID16(0x2a37).Label())

	custom := MustParseUUID("923BFB18-A711-4923-82A8-988AD38AF7C1")
	assert.Equal(t, "923bfb18-a711-4923-82a8-988ad38af7c1", custom.Label())
	_, ok := custom.Short()
	assert.False(t, ok)
}

func TestRequestOptions_Validate(t *testing.T) {
	assert.NoError(t, RequestOptions{AcceptAllDevices: true}.Validate())
	assert.NoError(t, RequestOptions{Filters: []Filter{{NamePrefix: "Sensor"}}}.Validate())
	assert.Error(t, RequestOptions{}.Validate())
	assert.Error(t, RequestOptions{AcceptAllDevices: true, Filters: []Filter{{Name: "x"}}}.Validate())
	assert.Error(t, RequestOptions{Filters: []Filter{{}}}.Validate())
}

func TestRequestOptions_Matches(t *testing.T) {
	adv := Advertisement{ID: "aa", Name: "Sensor-1", Services: []UUID{BatteryService}}

	assert.True(t, RequestOptions{AcceptAllDevices: true}.Matches(adv))
	assert.True(t, RequestOptions{Filters: []Filter{{NamePrefix: "Sensor"}}}.Matches(adv))
	assert.True(t, RequestOptions{Filters: []Filter{{Services: []UUID{BatteryService}}}}.Matches(adv))
	assert.False(t, RequestOptions{Filters: []Filter{{Name: "Sensor"}}}.Matches(adv))
	assert.False(t, RequestOptions{Filters: []Filter{{NamePrefix: "Sensor", Services: []UUID{GenericAccess}}}}.Matches(adv))
}

func TestRequestOptions_AllowedServices(t *testing.T) {
	o := RequestOptions{
		Filters:          []Filter{{Services: []UUID{BatteryService, GenericAccess}}},
		OptionalServices: []UUID{GenericAccess},
	}
	assert.Equal(t, []UUID{GenericAccess, BatteryService}, o.AllowedServices())
}

func TestFirstMatch(t *testing.T) {
	found := make(chan Advertisement, 2)
	found <- Advertisement{ID: "a"}
	found <- Advertisement{ID: "b"}
	adv, err := FirstMatch.Choose(context.Background(), found)
	require.NoError(t, err)
	assert.Equal(t, "a", adv.ID)

	empty := make(chan Advertisement)
	close(empty)
	_, err = FirstMatch.Choose(context.Background(), empty)
	assert.ErrorIs(t, err, ErrChooserCancelled)
}

type namedDevice string

func (d namedDevice) ID() string { return "id" }
func (d namedDevice) Name() string { return string(d) }
func (d namedDevice) GATT() GATT { return nil }

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Thermo", DisplayName(namedDevice("Thermo")))
	assert.Equal(t, "Unknown Device", DisplayName(namedDevice("")))
	assert.Equal(t, "", DisplayName(nil))
}
