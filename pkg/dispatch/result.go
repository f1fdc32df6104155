package dispatch

// Result is what a dispatch produced: the value returned by the matched
// route and the keys of the bindings matched on the way, outermost first.
// The wildcard is recorded as "*".
type Result struct {
	value any
	path  []string
}

// Value returns the route's value, nil for routes that return nothing.
func (r Result) Value() any { return r.value }

// Path returns the matched binding keys, e.g. ["SUCCESSFUL", "application/json"].
func (r Result) Path() []string {
	out := make([]string, len(r.path))
	copy(out, r.path)
	return out
}

// Matched reports whether any binding matched.
func (r Result) Matched() bool { return len(r.path) > 0 }

// As returns the result value as a T.
func As[T any](r Result) (T, bool) {
	v, ok := r.value.(T)
	return v, ok
}
