package ui

// Route is a top-level page, addressed by path.
type Route int

const (
	RouteHome Route = iota
	RouteAbout
	RouteSettings
)

// Routes lists the pages in nav-bar order.
var Routes = []Route{RouteHome, RouteAbout, RouteSettings}

func (r Route) String() string {
	switch r {
	case RouteHome:
		return "Home"
	case RouteAbout:
		return "About"
	case RouteSettings:
		return "Settings"
	default:
		return "Unknown"
	}
}

// Path returns the route's path, e.g. "/about".
func (r Route) Path() string {
	switch r {
	case RouteAbout:
		return "/about"
	case RouteSettings:
		return "/settings"
	default:
		return "/"
	}
}

// ParseRoute maps a path to its Route. Unknown paths report false.
func ParseRoute(path string) (Route, bool) {
	for _, r := range Routes {
		if r.Path() == path {
			return r, true
		}
	}
	return RouteHome, false
}

// Next returns the route after r in nav-bar order, wrapping around.
func (r Route) Next() Route {
	return Routes[(int(r)+1)%len(Routes)]
}

// Prev returns the route before r in nav-bar order, wrapping around.
func (r Route) Prev() Route {
	return Routes[(int(r)+len(Routes)-1)%len(Routes)]
}
