package converter

import (
	"fmt"
	"io"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

// JSON decodes application/json and any +json structured suffix.
func JSON() Converter {
	return Funcs{
		Name: "json",
		Types: []mediatype.MediaType{
			mediatype.ApplicationJSON,
			{Type: "application", Subtype: "*+json"},
		},
		Supports: decodable,
		Decode: func(body io.Reader, _ mediatype.MediaType, dst any) error {
			if err := json.NewDecoder(body).Decode(dst); err != nil {
				return fmt.Errorf("decode json: %w", err)
			}
			return nil
		},
	}
}

// decodable rejects kinds no structured decoder can populate.
func decodable(target reflect.Type) bool {
	switch target.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return false
	default:
		return true
	}
}
