package converter

import (
	"reflect"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

// Registry is an ordered, immutable list of converters. Registration order
// is the priority among converters with overlapping media types. A Registry
// is safe for concurrent use as long as its converters are stateless.
type Registry struct {
	converters []Converter
}

// NewRegistry builds a registry from converters in priority order; nil
// entries are skipped.
func NewRegistry(converters ...Converter) *Registry {
	cp := make([]Converter, 0, len(converters))
	for _, c := range converters {
		if c == nil {
			continue
		}
		cp = append(cp, c)
	}
	return &Registry{converters: cp}
}

// Defaults returns the registry used when none is configured.
func Defaults() *Registry {
	return NewRegistry(Bytes(), Text(), JSON(), XML(), YAML(), HTML())
}

// With returns a new registry with extra converters appended after the
// existing ones.
func (r *Registry) With(converters ...Converter) *Registry {
	return NewRegistry(append(r.Converters(), converters...)...)
}

// Converters returns a copy of the registered converters.
func (r *Registry) Converters() []Converter {
	if r == nil {
		return nil
	}
	out := make([]Converter, len(r.converters))
	copy(out, r.converters)
	return out
}

// Len returns the number of registered converters.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.converters)
}

// MediaTypes returns every supported media type in registration order,
// without duplicates.
func (r *Registry) MediaTypes() []mediatype.MediaType {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []mediatype.MediaType
	for _, c := range r.converters {
		for _, mt := range c.MediaTypes() {
			key := mt.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, mt)
		}
	}
	return out
}

// Find returns the first converter able to read target from contentType.
// An unspecified contentType is treated as application/octet-stream.
func (r *Registry) Find(target reflect.Type, contentType mediatype.MediaType) (Converter, error) {
	if contentType.IsUnspecified() {
		contentType = mediatype.OctetStream
	}
	if r != nil && target != nil {
		for _, c := range r.converters {
			if c.CanRead(target, contentType) {
				return c, nil
			}
		}
	}
	return nil, &NoSuitableConverterError{
		Target:      target,
		ContentType: contentType,
		Available:   r.MediaTypes(),
	}
}
