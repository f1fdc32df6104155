package converter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

// NoSuitableConverterError reports that no registered converter can decode
// the declared content type into the requested Go type.
type NoSuitableConverterError struct {
	// Target is the requested Go type.
	Target reflect.Type
	// ContentType is the content type the lookup ran against.
	ContentType mediatype.MediaType
	// Available lists the media types of all registered converters.
	Available []mediatype.MediaType
}

// Error implements the error interface.
func (e *NoSuitableConverterError) Error() string {
	target := "<nil>"
	if e.Target != nil {
		target = e.Target.String()
	}
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(mediatype.Strings(e.Available), ", ")
	}
	return fmt.Sprintf(
		"converter: no suitable converter found for response type [%s] and content type [%s]; available media types: [%s]",
		target, e.ContentType, available,
	)
}

// IsNoSuitableConverter checks if err is, or wraps, a NoSuitableConverterError.
func IsNoSuitableConverter(err error) bool {
	var e *NoSuitableConverterError
	return errors.As(err, &e)
}
