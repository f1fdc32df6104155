package converter

import (
	"encoding/xml"
	"fmt"
	"io"
	"reflect"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
	"golang.org/x/net/html/charset"
)

// XML decodes application/xml, text/xml and any +xml structured suffix into
// structs.
func XML() Converter {
	return Funcs{
		Name: "xml",
		Types: []mediatype.MediaType{
			mediatype.ApplicationXML,
			mediatype.TextXML,
			{Type: "application", Subtype: "*+xml"},
		},
		Supports: func(target reflect.Type) bool {
			if target.Kind() == reflect.Pointer {
				target = target.Elem()
			}
			return target.Kind() == reflect.Struct
		},
		Decode: func(body io.Reader, _ mediatype.MediaType, dst any) error {
			dec := xml.NewDecoder(body)
			dec.CharsetReader = charset.NewReaderLabel
			if err := dec.Decode(dst); err != nil {
				return fmt.Errorf("decode xml: %w", err)
			}
			return nil
		},
	}
}
