// Package ui is the blepad terminal interface, built on Bubble Tea.
//
// Core abstractions:
//   - View: a page or modal with its own model, update and view (Elm-style)
//   - Route: the page shown below the nav bar, one of /, /about, /settings
//   - Overlay: modal views stacked above the page, topmost gets input
//   - KeyHandler: single keys plus SPC-prefixed leader sequences
//   - FocusManager: moves focus between the device list and the text input
//
// AppModel owns the routed pages. HomeView owns a session.Session for as
// long as it is mounted.
package ui
