package adapter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"

	"blepad/internal/ble"
)

var errNotScanning = errors.New("not scanning")

// fakeRadio scans a fixed list of sightings and then blocks until
// StopScan, which fails until the scan has started, like BlueZ.
type fakeRadio struct {
	sightings  []sighting
	scanErr    error
	enableErr  error
	connectErr error
	// gate, when set, holds Scan back until closed.
	gate chan struct{}

	mu       sync.Mutex
	scanning bool
	halt     chan struct{}
	enables  int
	stops    int
	connects int
}

func (f *fakeRadio) Enable() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enables++
	return f.enableErr
}

func (f *fakeRadio) Scan(fn func(sighting)) error {
	if f.gate != nil {
		<-f.gate
	}
	if f.scanErr != nil {
		return f.scanErr
	}
	f.mu.Lock()
	f.scanning = true
	halt := make(chan struct{})
	f.halt = halt
	f.mu.Unlock()
	for _, s := range f.sightings {
		fn(s)
	}
	<-halt
	return nil
}

func (f *fakeRadio) StopScan() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.scanning {
		return errNotScanning
	}
	f.scanning = false
	f.stops++
	close(f.halt)
	return nil
}

func (f *fakeRadio) Connect(bluetooth.Address) (bluetooth.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return bluetooth.Device{}, f.connectErr
	}
	f.connects++
	return bluetooth.Device{}, nil
}

func (f *fakeRadio) counts() (enables, stops, connects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enables, f.stops, f.connects
}

// collector records every advertisement until the scan ends, then picks
// the first.
type collector struct {
	ids []string
}

func (c *collector) Choose(_ context.Context, found <-chan ble.Advertisement) (ble.Advertisement, error) {
	var first ble.Advertisement
	for adv := range found {
		if len(c.ids) == 0 {
			first = adv
		}
		c.ids = append(c.ids, adv.ID)
	}
	if len(c.ids) == 0 {
		return ble.Advertisement{}, ble.ErrChooserCancelled
	}
	return first, nil
}

var cancelAtOnce = ble.ChooserFunc(func(context.Context, <-chan ble.Advertisement) (ble.Advertisement, error) {
	return ble.Advertisement{}, ble.ErrChooserCancelled
})

var waitForCaller = ble.ChooserFunc(func(ctx context.Context, _ <-chan ble.Advertisement) (ble.Advertisement, error) {
	<-ctx.Done()
	return ble.Advertisement{}, ctx.Err()
})

var acceptAll = ble.RequestOptions{AcceptAllDevices: true, OptionalServices: []ble.UUID{ble.GenericAccess}}

func newTestAdapter(r radio, chooser ble.Chooser) *Adapter {
	a := newAdapter(Config{Chooser: chooser, ScanTimeout: 20 * time.Millisecond}, r)
	a.stopRetry = 5 * time.Millisecond
	return a
}

func sight(id, name string) sighting {
	return sighting{id: id, name: name, rssi: -50}
}

// request runs RequestDevice and fails the test if it does not return.
func request(t *testing.T, a *Adapter, ctx context.Context, opts ble.RequestOptions) (ble.Device, error) {
	t.Helper()
	type result struct {
		d   ble.Device
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := a.RequestDevice(ctx, opts)
		done <- result{d, err}
	}()
	select {
	case r := <-done:
		return r.d, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("RequestDevice did not return")
		return nil, nil
	}
}

func TestRequestDevice_Filtering(t *testing.T) {
	battery := toTiny(ble.BatteryService)
	withBattery := sight("c", "Sensor-2")
	withBattery.hasService = func(u bluetooth.UUID) bool { return u == battery }
	sightings := []sighting{
		sight("a", "Lamp"),
		sight("a", "Lamp"),
		sight("b", "Sensor-1"),
		withBattery,
		sight("b", "Sensor-1"),
	}

	tests := []struct {
		name string
		opts ble.RequestOptions
		want []string
	}{
		{"accept all, deduplicated", acceptAll, []string{"a", "b", "c"}},
		{"name prefix", ble.RequestOptions{Filters: []ble.Filter{{NamePrefix: "Sensor"}}}, []string{"b", "c"}},
		{"exact name", ble.RequestOptions{Filters: []ble.Filter{{Name: "Lamp"}}}, []string{"a"}},
		{"service", ble.RequestOptions{Filters: []ble.Filter{{Services: []ble.UUID{ble.BatteryService}}}}, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRadio{sightings: sightings}
			c := &collector{}
			a := newTestAdapter(r, c)

			d, err := request(t, a, context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.ids)

			dev, ok := d.(*device)
			require.True(t, ok)
			assert.Equal(t, tt.opts.AllowedServices(), dev.allowed)

			_, stops, _ := r.counts()
			assert.Equal(t, 1, stops, "scan timeout should stop the scan")
		})
	}
}

func TestRequestDevice_ChooserCancel(t *testing.T) {
	r := &fakeRadio{sightings: []sighting{sight("a", "Lamp")}}
	a := newTestAdapter(r, cancelAtOnce)

	_, err := request(t, a, context.Background(), acceptAll)
	assert.ErrorIs(t, err, ble.ErrChooserCancelled)
}

func TestRequestDevice_ScanError(t *testing.T) {
	poweredOff := errors.New("adapter powered off")
	for name, chooser := range map[string]ble.Chooser{
		"first match":     ble.FirstMatch,
		"waits on caller": waitForCaller,
	} {
		t.Run(name, func(t *testing.T) {
			a := newTestAdapter(&fakeRadio{scanErr: poweredOff}, chooser)

			_, err := request(t, a, context.Background(), acceptAll)
			assert.ErrorIs(t, err, poweredOff)
			assert.NotErrorIs(t, err, ble.ErrChooserCancelled)
		})
	}
}

func TestRequestDevice_StopBeforeScanStarts(t *testing.T) {
	gate := make(chan struct{})
	r := &fakeRadio{gate: gate, sightings: []sighting{sight("a", "Lamp")}}
	a := newTestAdapter(r, cancelAtOnce)
	a.scanTimeout = time.Hour

	go func() {
		time.Sleep(30 * time.Millisecond)
		close(gate)
	}()
	_, err := request(t, a, context.Background(), acceptAll)
	assert.ErrorIs(t, err, ble.ErrChooserCancelled)

	// the scan lock was released, so the next request runs
	a.chooser = &collector{}
	a.scanTimeout = 20 * time.Millisecond
	d, err := request(t, a, context.Background(), acceptAll)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", d.Name())
}

func TestRequestDevice_CallerCancelled(t *testing.T) {
	r := &fakeRadio{sightings: []sighting{sight("a", "Lamp")}}
	a := newTestAdapter(r, waitForCaller)
	a.scanTimeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := request(t, a, ctx, acceptAll)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequestDevice_UnknownChoice(t *testing.T) {
	r := &fakeRadio{}
	a := newTestAdapter(r, ble.ChooserFunc(func(context.Context, <-chan ble.Advertisement) (ble.Advertisement, error) {
		return ble.Advertisement{ID: "ghost"}, nil
	}))

	_, err := request(t, a, context.Background(), acceptAll)
	assert.ErrorContains(t, err, "ghost")
}

func TestRequestDevice_Enable(t *testing.T) {
	r := &fakeRadio{enableErr: errors.New("no adapter")}
	a := newTestAdapter(r, cancelAtOnce)

	_, err := request(t, a, context.Background(), acceptAll)
	assert.ErrorIs(t, err, ble.ErrUnavailable)

	_, err = request(t, a, context.Background(), ble.RequestOptions{})
	assert.Error(t, err)
	enables, _, _ := r.counts()
	assert.Equal(t, 1, enables, "invalid options are rejected before enabling")

	r.enableErr = nil
	for i := 0; i < 2; i++ {
		_, err = request(t, a, context.Background(), acceptAll)
		assert.ErrorIs(t, err, ble.ErrChooserCancelled)
	}
	enables, _, _ = r.counts()
	assert.Equal(t, 2, enables, "enable succeeds once and is remembered")
}

func TestDevice_ConnectAndAccess(t *testing.T) {
	r := &fakeRadio{sightings: []sighting{sight("a", "Lamp")}}
	a := newTestAdapter(r, &collector{})
	ctx := context.Background()

	d, err := request(t, a, ctx, acceptAll)
	require.NoError(t, err)
	gatt := d.GATT()

	_, err = gatt.PrimaryService(ctx, ble.GenericAccess)
	assert.ErrorIs(t, err, ble.ErrDisconnected)
	assert.False(t, gatt.Connected())

	r.connectErr = errors.New("le-connection-abort-by-local")
	err = gatt.Connect(ctx)
	assert.ErrorIs(t, err, r.connectErr)
	assert.False(t, gatt.Connected())

	r.connectErr = nil
	require.NoError(t, gatt.Connect(ctx))
	require.NoError(t, gatt.Connect(ctx))
	assert.True(t, gatt.Connected())
	_, _, connects := r.counts()
	assert.Equal(t, 1, connects, "Connect is idempotent")

	_, err = gatt.PrimaryService(ctx, ble.BatteryService)
	assert.ErrorIs(t, err, ble.ErrServiceBlocked)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = gatt.PrimaryService(cancelled, ble.GenericAccess)
	assert.ErrorIs(t, err, context.Canceled)
}
