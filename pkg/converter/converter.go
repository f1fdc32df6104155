// Package converter decodes response bodies into caller-requested Go types,
// selecting a decoder by target type and declared content type.
package converter

import (
	"io"
	"reflect"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

// Converter decodes a body of one of its media types into a Go value.
type Converter interface {
	// MediaTypes lists the media types this converter reads, in preference order.
	MediaTypes() []mediatype.MediaType
	// CanRead reports whether the converter can produce target from a body of contentType.
	CanRead(target reflect.Type, contentType mediatype.MediaType) bool
	// Read decodes body into dst, which is a non-nil pointer to a value of the
	// target type. contentType is the type the converter was selected for.
	Read(body io.Reader, contentType mediatype.MediaType, dst any) error
}

// Funcs adapts plain functions to the Converter interface.
type Funcs struct {
	Name     string
	Types    []mediatype.MediaType
	Supports func(target reflect.Type) bool
	Decode   func(body io.Reader, contentType mediatype.MediaType, dst any) error
}

// MediaTypes returns the configured media types.
func (f Funcs) MediaTypes() []mediatype.MediaType { return f.Types }

// CanRead checks the target type first, then whether one of the supported
// media types includes contentType.
func (f Funcs) CanRead(target reflect.Type, contentType mediatype.MediaType) bool {
	if target == nil || f.Decode == nil {
		return false
	}
	if f.Supports != nil && !f.Supports(target) {
		return false
	}
	return supportsMediaType(f.Types, contentType)
}

// Read delegates to Decode.
func (f Funcs) Read(body io.Reader, contentType mediatype.MediaType, dst any) error {
	return f.Decode(body, contentType, dst)
}

// String returns the converter name for diagnostics.
func (f Funcs) String() string {
	if f.Name == "" {
		return "converter"
	}
	return f.Name
}

func supportsMediaType(supported []mediatype.MediaType, contentType mediatype.MediaType) bool {
	for _, mt := range supported {
		if mt.Includes(contentType) {
			return true
		}
	}
	return false
}

// TypeOf returns the reflect.Type for T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
