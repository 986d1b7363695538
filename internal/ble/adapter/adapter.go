// Package adapter implements ble.Platform on the host Bluetooth stack
// through tinygo.org/x/bluetooth (BlueZ on Linux, CoreBluetooth on macOS,
// WinRT on Windows).
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"blepad/internal/ble"
)

// DefaultScanTimeout bounds how long the chooser keeps scanning.
const DefaultScanTimeout = 15 * time.Second

// Config configures an Adapter.
type Config struct {
	// Chooser is shown the advertisements seen during RequestDevice.
	Chooser ble.Chooser
	// ScanTimeout stops the scan; the chooser stays open with what it saw.
	ScanTimeout time.Duration
	Logger      *slog.Logger
}

// stopRetry is how often a pending StopScan is retried. StopScan fails
// while the stack has not started scanning yet.
const stopRetry = 100 * time.Millisecond

// Adapter is a ble.Platform backed by bluetooth.DefaultAdapter.
type Adapter struct {
	radio       radio
	chooser     ble.Chooser
	scanTimeout time.Duration
	stopRetry   time.Duration
	log         *slog.Logger

	mu      sync.Mutex
	enabled bool
	// scan serialises RequestDevice; the stack runs one scan at a time.
	scan sync.Mutex
}

var _ ble.Platform = (*Adapter)(nil)

// New returns an Adapter. The radio is enabled lazily on first use.
func New(cfg Config) *Adapter {
	return newAdapter(cfg, hostRadio{bt: bluetooth.DefaultAdapter})
}

func newAdapter(cfg Config, r radio) *Adapter {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	if cfg.Chooser == nil {
		cfg.Chooser = ble.FirstMatch
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		radio:       r,
		chooser:     cfg.Chooser,
		scanTimeout: cfg.ScanTimeout,
		stopRetry:   stopRetry,
		log:         cfg.Logger,
	}
}

func (a *Adapter) enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled {
		return nil
	}
	if err := a.radio.Enable(); err != nil {
		a.log.Debug("bluetooth enable failed", "error", err)
		return fmt.Errorf("%w: %v", ble.ErrUnavailable, err)
	}
	a.enabled = true
	return nil
}

// RequestDevice implements ble.Platform. It scans, streams matching
// advertisements to the chooser and returns the device it picks. A scan
// that fails ends the chooser and its error is returned.
func (a *Adapter) RequestDevice(ctx context.Context, opts ble.RequestOptions) (ble.Device, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := a.enable(); err != nil {
		return nil, err
	}

	a.scan.Lock()
	defer a.scan.Unlock()

	probe := probeServices(opts)
	found := make(chan ble.Advertisement, 64)
	var (
		fmu        sync.Mutex
		closed     bool
		stopWanted bool
		seen       = map[string]bluetooth.Address{}
	)
	closeFound := func() {
		fmu.Lock()
		defer fmu.Unlock()
		if !closed {
			closed = true
			close(found)
		}
	}

	chooseCtx, cancelChoose := context.WithCancel(ctx)
	defer cancelChoose()

	// scanErr is set, before found closes, when Scan fails on its own. An
	// error after a requested stop does not count.
	var scanErr error
	scanDone := make(chan error, 1)
	go func() {
		defer closeFound()
		err := a.radio.Scan(func(s sighting) {
			fmu.Lock()
			halt := stopWanted
			fmu.Unlock()
			if halt {
				// the scan started after stop was asked for
				_ = a.radio.StopScan()
				return
			}
			adv := ble.Advertisement{ID: s.id, Name: s.name, RSSI: s.rssi}
			for _, p := range probe {
				if s.hasService != nil && s.hasService(p.tiny) {
					adv.Services = append(adv.Services, p.uuid)
				}
			}
			if !opts.Matches(adv) {
				return
			}
			fmu.Lock()
			defer fmu.Unlock()
			if _, dup := seen[adv.ID]; dup || closed {
				return
			}
			seen[adv.ID] = s.addr
			select {
			case found <- adv:
			default:
				a.log.Debug("chooser backlog full, dropping advertisement", "id", adv.ID)
			}
		})
		fmu.Lock()
		if err != nil && !stopWanted {
			a.log.Debug("scan failed", "error", err)
			scanErr = err
			cancelChoose()
		}
		fmu.Unlock()
		scanDone <- err
	}()

	timer := time.NewTimer(a.scanTimeout)
	defer timer.Stop()
	retry := time.NewTicker(a.stopRetry)
	defer retry.Stop()

	// stopped is set only once StopScan succeeds or the scan has ended.
	stopped := false
	stop := func() {
		fmu.Lock()
		stopWanted = true
		fmu.Unlock()
		if stopped {
			return
		}
		if err := a.radio.StopScan(); err != nil {
			a.log.Debug("stop scan", "error", err)
			return
		}
		stopped = true
	}

	type choice struct {
		adv ble.Advertisement
		err error
	}
	chosen := make(chan choice, 1)
	go func() {
		adv, err := a.chooser.Choose(chooseCtx, found)
		chosen <- choice{adv, err}
	}()

	var c choice
	for waiting := true; waiting; {
		select {
		case <-timer.C:
			stop()
		case <-retry.C:
			if stopWanted && !stopped {
				stop()
			}
		case <-scanDone:
			scanDone, stopped = nil, true
		case c = <-chosen:
			waiting = false
		}
	}
	stop()
	for scanDone != nil {
		select {
		case <-scanDone:
			scanDone = nil
		case <-retry.C:
			stop()
		}
	}
	fmu.Lock()
	failed := scanErr
	fmu.Unlock()
	if failed != nil && c.err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("scan: %w", failed)
	}
	if c.err != nil {
		return nil, c.err
	}

	fmu.Lock()
	addr, ok := seen[c.adv.ID]
	fmu.Unlock()
	if !ok {
		return nil, fmt.Errorf("chooser returned unknown device %q", c.adv.ID)
	}
	a.log.Debug("device chosen", "id", c.adv.ID, "name", c.adv.Name)
	return &device{
		a:       a,
		addr:    addr,
		name:    c.adv.Name,
		allowed: opts.AllowedServices(),
	}, nil
}
type probe struct {
	uuid ble.UUID
	tiny bluetooth.UUID
}

// probeServices lists the services worth checking in advertisements: the
// ones filters ask for.
func probeServices(opts ble.RequestOptions) []probe {
	var out []probe
	for _, f := range opts.Filters {
		for _, u := range f.Services {
			out = append(out, probe{uuid: u, tiny: toTiny(u)})
		}
	}
	return out
}

func toTiny(u ble.UUID) bluetooth.UUID {
	t, err := bluetooth.ParseUUID(u.String())
	if err != nil {
		panic(fmt.Sprintf("canonical uuid %s rejected: %v", u, err))
	}
	return t
}
