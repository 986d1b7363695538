package ui

import tea "github.com/charmbracelet/bubbletea"

// Overlay is a modal view with a dismiss key.
type Overlay struct {
	View    View
	Dismiss string // key that dismisses, e.g. "esc"
}

// IsDismissKey reports whether key dismisses this overlay.
func (o *Overlay) IsDismissKey(key string) bool {
	return key == o.Dismiss
}

// OverlayStack is a stack of overlays; the topmost receives input first.
type OverlayStack struct {
	Stack []Overlay
}

// Push adds an overlay to the top of the stack.
func (s *OverlayStack) Push(o Overlay) {
	s.Stack = append(s.Stack, o)
}

// Pop removes and returns the top overlay.
func (s *OverlayStack) Pop() (Overlay, bool) {
	if len(s.Stack) == 0 {
		return Overlay{}, false
	}
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return top, true
}

// Peek returns the top overlay without removing it.
func (s *OverlayStack) Peek() (Overlay, bool) {
	if len(s.Stack) == 0 {
		return Overlay{}, false
	}
	return s.Stack[len(s.Stack)-1], true
}

// Len returns the number of overlays in the stack.
func (s *OverlayStack) Len() int {
	return len(s.Stack)
}

// UpdateTop passes msg to the top overlay and stores the View it returns.
// The caller runs the returned cmd.
func (s *OverlayStack) UpdateTop(msg tea.Msg) (tea.Cmd, bool) {
	if len(s.Stack) == 0 {
		return nil, false
	}
	top := &s.Stack[len(s.Stack)-1]
	newView, cmd := top.View.Update(msg)
	top.View = newView
	return cmd, true
}

// Remove drops the first overlay whose view satisfies match. Used when an
// overlay must go away regardless of where it sits in the stack.
func (s *OverlayStack) Remove(match func(View) bool) bool {
	for i, o := range s.Stack {
		if match(o.View) {
			s.Stack = append(s.Stack[:i], s.Stack[i+1:]...)
			return true
		}
	}
	return false
}
