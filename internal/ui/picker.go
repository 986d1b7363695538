package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"blepad/internal/ble"
)

// PickerBridge is a ble.Chooser whose choices are made in the device
// picker modal. Choose blocks until the modal resolves the request or the
// caller's context ends.
type PickerBridge struct {
	requests chan *PickRequest
}

var _ ble.Chooser = (*PickerBridge)(nil)

// NewPickerBridge returns a bridge; the app must keep a Wait cmd armed.
func NewPickerBridge() *PickerBridge {
	return &PickerBridge{requests: make(chan *PickRequest)}
}

// Choose implements ble.Chooser.
func (b *PickerBridge) Choose(ctx context.Context, found <-chan ble.Advertisement) (ble.Advertisement, error) {
	req := &PickRequest{
		found:  found,
		result: make(chan pickResult, 1),
		done:   make(chan struct{}),
	}
	defer close(req.done)

	select {
	case b.requests <- req:
	case <-ctx.Done():
		return ble.Advertisement{}, ctx.Err()
	}
	select {
	case r := <-req.result:
		return r.adv, r.err
	case <-ctx.Done():
		return ble.Advertisement{}, ctx.Err()
	}
}

// Wait returns a cmd that blocks until the next Choose call.
func (b *PickerBridge) Wait() tea.Cmd {
	return func() tea.Msg {
		return pickRequestMsg{req: <-b.requests}
	}
}

type pickResult struct {
	adv ble.Advertisement
	err error
}

// PickRequest is one pending Choose call.
type PickRequest struct {
	found  <-chan ble.Advertisement
	result chan pickResult
	done   chan struct{}
	once   sync.Once
}

// Pick resolves the request with adv. Only the first resolution counts.
func (r *PickRequest) Pick(adv ble.Advertisement) {
	r.resolve(pickResult{adv: adv})
}

// Cancel resolves the request with ble.ErrChooserCancelled.
func (r *PickRequest) Cancel() {
	r.resolve(pickResult{err: ble.ErrChooserCancelled})
}

func (r *PickRequest) resolve(res pickResult) {
	r.once.Do(func() { r.result <- res })
}

// next returns a cmd that waits for the next advertisement, the end of the
// scan, or the caller giving up. Once the scan has ended only the last
// can happen.
func (r *PickRequest) next(scanning bool) tea.Cmd {
	return func() tea.Msg {
		if !scanning {
			<-r.done
			return pickerScanMsg{req: r, gone: true}
		}
		select {
		case adv, ok := <-r.found:
			return pickerScanMsg{req: r, adv: adv, ok: ok}
		case <-r.done:
			return pickerScanMsg{req: r, gone: true}
		}
	}
}
