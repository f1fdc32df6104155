package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

var (
	// ErrNilResponse is returned when Dispatch is given no response.
	ErrNilResponse = errors.New("dispatch: nil response")
	// ErrNilSelector is returned for a zero Selector.
	ErrNilSelector = errors.New("dispatch: selector has no extraction function")
	// ErrDuplicateWildcard is returned when a binding list holds more than
	// one Otherwise binding. No route runs.
	ErrDuplicateWildcard = errors.New("dispatch: more than one wildcard binding")
	// ErrBodyConsumed is returned when the body is requested as a second type.
	ErrBodyConsumed = errors.New("dispatch: response body already consumed")
	// ErrInvalidTarget is returned when Decode is not given a non-nil pointer.
	ErrInvalidTarget = errors.New("dispatch: decode target must be a non-nil pointer")
)

// UnsupportedResponseError reports that no binding, wildcard included,
// matched the key extracted from a response.
type UnsupportedResponseError struct {
	// Selector names the selector that produced Observed.
	Selector string
	// Observed is the formatted key extracted from the response.
	Observed string
	// StatusCode is the response status.
	StatusCode int
	// ContentType is the declared content type, possibly unspecified.
	ContentType mediatype.MediaType
	// Declared lists the formatted keys bindings were declared for.
	Declared []string
}

func (e *UnsupportedResponseError) Error() string {
	declared := "none"
	if len(e.Declared) > 0 {
		declared = strings.Join(e.Declared, ", ")
	}
	return fmt.Sprintf("dispatch: unsupported response: no binding for %s %s (status %d, content type %s); declared: [%s]",
		e.Selector, e.Observed, e.StatusCode, formatMediaType(e.ContentType), declared)
}

// IsUnsupportedResponse reports whether err wraps an *UnsupportedResponseError.
func IsUnsupportedResponse(err error) bool {
	var target *UnsupportedResponseError
	return errors.As(err, &target)
}
