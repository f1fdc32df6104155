package converter

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
	"golang.org/x/net/html/charset"
)

// Bytes reads any body verbatim into a []byte.
func Bytes() Converter {
	return Funcs{
		Name:  "bytes",
		Types: []mediatype.MediaType{mediatype.OctetStream, mediatype.All},
		Supports: func(target reflect.Type) bool {
			return target.Kind() == reflect.Slice && target.Elem().Kind() == reflect.Uint8
		},
		Decode: func(body io.Reader, _ mediatype.MediaType, dst any) error {
			data, err := io.ReadAll(body)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			v, err := settable(dst)
			if err != nil {
				return err
			}
			v.SetBytes(data)
			return nil
		},
	}
}

// Text reads any body into a string, transcoding from the declared charset
// when one is present.
func Text() Converter {
	return Funcs{
		Name:  "text",
		Types: []mediatype.MediaType{mediatype.TextPlain, mediatype.All},
		Supports: func(target reflect.Type) bool {
			return target.Kind() == reflect.String
		},
		Decode: func(body io.Reader, contentType mediatype.MediaType, dst any) error {
			reader, err := decodeCharset(body, contentType)
			if err != nil {
				return err
			}
			data, err := io.ReadAll(reader)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			v, err := settable(dst)
			if err != nil {
				return err
			}
			v.SetString(string(data))
			return nil
		},
	}
}

func decodeCharset(body io.Reader, contentType mediatype.MediaType) (io.Reader, error) {
	label, ok := contentType.Param("charset")
	label = strings.TrimSpace(label)
	if !ok || label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "us-ascii") {
		return body, nil
	}
	reader, err := charset.NewReaderLabel(label, body)
	if err != nil {
		return nil, fmt.Errorf("decode charset %q: %w", label, err)
	}
	return reader, nil
}

// settable returns the element dst points to.
func settable(dst any) (reflect.Value, error) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("converter: destination must be a non-nil pointer, got %T", dst)
	}
	return v.Elem(), nil
}
