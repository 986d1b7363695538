package ui

import (
	"blepad/internal/ble"
	"blepad/internal/progress"
)

// NavigateMsg switches the page below the nav bar.
type NavigateMsg struct {
	Route Route
}

// navigateStepMsg moves forward (+1) or back (-1) in nav-bar order.
type navigateStepMsg struct {
	delta int
}

// DismissModalMsg closes the top overlay.
type DismissModalMsg struct{}

// sessionEventMsg carries a session change to the Home view.
type sessionEventMsg struct {
	Event progress.Event
}

// opDoneMsg reports that a session operation returned.
type opDoneMsg struct {
	Session string
	Op      string
	Err     error
}

// pickRequestMsg opens the device picker for a pending chooser call.
type pickRequestMsg struct {
	req *PickRequest
}

// pickerScanMsg delivers the next advertisement to the picker for req.
// ok is false once the scan ends; gone is true once the request was
// abandoned by its caller.
type pickerScanMsg struct {
	req  *PickRequest
	adv  ble.Advertisement
	ok   bool
	gone bool
}

// closePickerMsg removes the picker for req from the overlay stack.
type closePickerMsg struct {
	req *PickRequest
}
