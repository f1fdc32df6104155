package dispatch

import (
	"fmt"

	"github.com/samvad-hq/dispatchkit/pkg/converter"
)

const wildcardLabel = "*"

// Dispatch routes resp to the first binding whose key matches the one
// selector extracts, falling back to the wildcard binding. It owns the body:
// resp is closed before Dispatch returns, whatever the outcome.
func Dispatch[K any](resp *Response, converters *converter.Registry, selector Selector[K], bindings ...Binding[K]) (Result, error) {
	if resp == nil {
		return Result{}, ErrNilResponse
	}
	defer resp.Close()

	return route(newRetriever(resp, converters), selector, bindings)
}

// Nested routes the response behind r again, typically from inside a route.
// It shares r's body state and never closes the response.
func Nested[K any](r *Retriever, selector Selector[K], bindings ...Binding[K]) (Result, error) {
	if r == nil || r.resp == nil {
		return Result{}, ErrNilResponse
	}
	return route(r, selector, bindings)
}

func route[K any](r *Retriever, selector Selector[K], bindings []Binding[K]) (Result, error) {
	if selector.extract == nil || selector.matches == nil {
		return Result{}, ErrNilSelector
	}

	wildcard := -1
	for i, b := range bindings {
		if !b.wildcard {
			continue
		}
		if wildcard >= 0 {
			return Result{}, fmt.Errorf("%w: %s bindings %d and %d", ErrDuplicateWildcard, selector.name, wildcard, i)
		}
		wildcard = i
	}

	key := selector.Select(r.resp)

	chosen := -1
	for i, b := range bindings {
		if !b.wildcard && selector.Matches(b.key, key) {
			chosen = i
			break
		}
	}

	label := ""
	switch {
	case chosen >= 0:
		label = selector.Format(bindings[chosen].key)
	case wildcard >= 0:
		chosen = wildcard
		label = wildcardLabel
	default:
		return Result{}, unsupported(r.resp, selector, key, bindings)
	}

	value, err := bindings[chosen].invoke(r)
	path := []string{label}
	if nested, ok := value.(Result); ok {
		value = nested.value
		path = append(path, nested.path...)
	}
	return Result{value: value, path: path}, err
}

func unsupported[K any](resp *Response, selector Selector[K], key K, bindings []Binding[K]) *UnsupportedResponseError {
	declared := make([]string, 0, len(bindings))
	for _, b := range bindings {
		declared = append(declared, selector.Format(b.key))
	}
	return &UnsupportedResponseError{
		Selector:    selector.name,
		Observed:    selector.Format(key),
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType(),
		Declared:    declared,
	}
}
