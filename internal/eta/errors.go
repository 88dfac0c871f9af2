package eta

import "errors"

var (
	// ErrNoRouteContext means the bus has no current route and none was requested.
	ErrNoRouteContext = errors.New("bus has no current or requested route")
	// ErrNoStopsOnRoute means the target route has no stops to aim for.
	ErrNoStopsOnRoute = errors.New("route has no stops")
	// ErrStopNotFound means an explicit stop order does not exist on the route.
	ErrStopNotFound = errors.New("stop not found on route")
)
