package dispatch

import "github.com/samvad-hq/dispatchkit/pkg/mediatype"

// Binding pairs an expected key, or the wildcard, with the route to run when
// it matches. Bindings are immutable values.
type Binding[K any] struct {
	key      K
	wildcard bool
	route    Route
}

// On binds key to route. A nil route acknowledges the response without
// reading the body.
func On[K any](key K, route Route) Binding[K] {
	return Binding[K]{key: key, route: route}
}

// Otherwise binds route to any key not claimed by another binding in the
// same list. Its position in the list does not matter.
func Otherwise[K any](route Route) Binding[K] {
	return Binding[K]{wildcard: true, route: route}
}

// AnySeries is Otherwise for the Series selector.
func AnySeries(route Route) Binding[StatusSeries] { return Otherwise[StatusSeries](route) }

// AnyStatus is Otherwise for the Status selector.
func AnyStatus(route Route) Binding[int] { return Otherwise[int](route) }

// AnyReason is Otherwise for the Reason selector.
func AnyReason(route Route) Binding[string] { return Otherwise[string](route) }

// AnyContentType is Otherwise for the ContentType selector.
func AnyContentType(route Route) Binding[mediatype.MediaType] {
	return Otherwise[mediatype.MediaType](route)
}

// Key returns the declared key. It is the zero value for the wildcard.
func (b Binding[K]) Key() K { return b.key }

// IsWildcard reports whether b was built with Otherwise.
func (b Binding[K]) IsWildcard() bool { return b.wildcard }

func (b Binding[K]) invoke(r *Retriever) (any, error) {
	if b.route == nil {
		return nil, nil
	}
	return b.route(r)
}
