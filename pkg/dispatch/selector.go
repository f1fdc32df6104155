package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

// Selector extracts a classification key from a response without reading
// its body, and decides whether a declared binding key matches it.
type Selector[K any] struct {
	name    string
	extract func(*Response) K
	matches func(declared, observed K) bool
	format  func(K) string
}

// NewSelector builds a selector whose keys match by equality.
func NewSelector[K comparable](name string, extract func(*Response) K) Selector[K] {
	return Selector[K]{
		name:    name,
		extract: extract,
		matches: func(declared, observed K) bool { return declared == observed },
		format:  func(k K) string { return fmt.Sprint(k) },
	}
}

// NewMatchingSelector builds a selector with a structural match function.
// A nil format falls back to fmt.Sprint.
func NewMatchingSelector[K any](name string, extract func(*Response) K, matches func(declared, observed K) bool, format func(K) string) Selector[K] {
	if format == nil {
		format = func(k K) string { return fmt.Sprint(k) }
	}
	return Selector[K]{name: name, extract: extract, matches: matches, format: format}
}

// Name identifies the selector in diagnostics.
func (s Selector[K]) Name() string { return s.name }

// Select extracts the key from resp.
func (s Selector[K]) Select(resp *Response) K { return s.extract(resp) }

// Matches reports whether a binding declared for key declared applies to observed.
func (s Selector[K]) Matches(declared, observed K) bool { return s.matches(declared, observed) }

// Format renders a key for diagnostics.
func (s Selector[K]) Format(key K) string { return s.format(key) }

// Series selects on the status series.
func Series() Selector[StatusSeries] {
	return NewSelector("series", (*Response).Series)
}

// Status selects on the exact status code.
func Status() Selector[int] {
	return NewMatchingSelector("status",
		func(r *Response) int { return r.StatusCode },
		func(declared, observed int) bool { return declared == observed },
		strconv.Itoa,
	)
}

// Reason selects on the reason phrase, compared case-insensitively.
func Reason() Selector[string] {
	return NewMatchingSelector("reason",
		(*Response).Reason,
		strings.EqualFold,
		func(k string) string { return strconv.Quote(k) },
	)
}

// ContentType selects on the declared media type. A binding matches when its
// key is compatible with the response type, so application/* matches
// application/json. A response without a content type matches only the
// wildcard binding.
func ContentType() Selector[mediatype.MediaType] {
	return NewMatchingSelector("content type",
		(*Response).ContentType,
		func(declared, observed mediatype.MediaType) bool {
			return declared.IsCompatibleWith(observed)
		},
		formatMediaType,
	)
}

func formatMediaType(mt mediatype.MediaType) string {
	if mt.IsUnspecified() {
		return "none"
	}
	return mt.String()
}
