package ble

import (
	"context"
	"errors"
	"strings"
)

// Filter narrows the devices offered in the chooser. All set fields must
// match.
type Filter struct {
	Name       string
	NamePrefix string
	Services   []UUID
}

// RequestOptions mirrors the options bag of the browser's requestDevice.
type RequestOptions struct {
	AcceptAllDevices bool
	Filters          []Filter
	// OptionalServices are services the caller may access after connecting
	// even though no filter names them.
	OptionalServices []UUID
}

// Validate reports option combinations requestDevice rejects.
func (o RequestOptions) Validate() error {
	if o.AcceptAllDevices && len(o.Filters) > 0 {
		return errors.New("filters must not be set when acceptAllDevices is true")
	}
	if !o.AcceptAllDevices && len(o.Filters) == 0 {
		return errors.New("either filters or acceptAllDevices must be set")
	}
	for _, f := range o.Filters {
		if f.Name == "" && f.NamePrefix == "" && len(f.Services) == 0 {
			return errors.New("a filter must name at least one of name, namePrefix or services")
		}
	}
	return nil
}

// AllowedServices is the set of services a device obtained with o may use.
func (o RequestOptions) AllowedServices() []UUID {
	out := append([]UUID(nil), o.OptionalServices...)
	for _, f := range o.Filters {
		for _, s := range f.Services {
			if !ContainsUUID(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// Matches reports whether adv should be offered to the user.
func (o RequestOptions) Matches(adv Advertisement) bool {
	if o.AcceptAllDevices {
		return true
	}
	for _, f := range o.Filters {
		if f.matches(adv) {
			return true
		}
	}
	return false
}

func (f Filter) matches(adv Advertisement) bool {
	if f.Name != "" && adv.Name != f.Name {
		return false
	}
	if f.NamePrefix != "" && !strings.HasPrefix(adv.Name, f.NamePrefix) {
		return false
	}
	for _, s := range f.Services {
		if !ContainsUUID(adv.Services, s) {
			return false
		}
	}
	return true
}

// Advertisement is one device seen while the chooser is open.
type Advertisement struct {
	ID       string
	Name     string
	RSSI     int
	Services []UUID
}

// Chooser stands in for the browser's native device picker. The platform
// streams matching advertisements on found and closes it when the scan
// ends; Choose returns the user's pick or ErrChooserCancelled.
type Chooser interface {
	Choose(ctx context.Context, found <-chan Advertisement) (Advertisement, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, found <-chan Advertisement) (Advertisement, error)

// Choose implements Chooser.
func (f ChooserFunc) Choose(ctx context.Context, found <-chan Advertisement) (Advertisement, error) {
	return f(ctx, found)
}

// FirstMatch is a Chooser that picks the first advertisement it sees. It is
// meant for headless runs.
var FirstMatch = ChooserFunc(func(ctx context.Context, found <-chan Advertisement) (Advertisement, error) {
	select {
	case adv, ok := <-found:
		if !ok {
			return Advertisement{}, ErrChooserCancelled
		}
		return adv, nil
	case <-ctx.Done():
		return Advertisement{}, ctx.Err()
	}
})
