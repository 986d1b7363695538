package ui

// FocusManager tracks and rotates focus across the regions of a page.
type FocusManager struct {
	Current  string   // ID of the focused region
	Order    []string // rotation order
	OnChange func(from, to string)
}

func (f *FocusManager) index() int {
	for i, id := range f.Order {
		if id == f.Current {
			return i
		}
	}
	return -1
}

func (f *FocusManager) move(to string) {
	from := f.Current
	f.Current = to
	if f.OnChange != nil && from != to {
		f.OnChange(from, to)
	}
}

// Next moves focus to the next region in order and returns its ID.
func (f *FocusManager) Next() string {
	if len(f.Order) == 0 {
		return ""
	}
	f.move(f.Order[(f.index()+1)%len(f.Order)])
	return f.Current
}

// Prev moves focus to the previous region in order and returns its ID.
func (f *FocusManager) Prev() string {
	if len(f.Order) == 0 {
		return ""
	}
	i := f.index() - 1
	if i < 0 {
		i = len(f.Order) - 1
	}
	f.move(f.Order[i])
	return f.Current
}

// SetFocus focuses id. It reports false, changing nothing, when id is not
// in Order.
func (f *FocusManager) SetFocus(id string) bool {
	for _, o := range f.Order {
		if o == id {
			f.move(id)
			return true
		}
	}
	return false
}

// Is reports whether id has focus.
func (f *FocusManager) Is(id string) bool {
	return f.Current == id
}
