package converter

import (
	"fmt"
	"io"
	"reflect"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
	"golang.org/x/net/html/charset"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

var documentType = reflect.TypeOf((*goquery.Document)(nil))

// HTML parses text/html and XHTML bodies into a *goquery.Document. Bodies
// beyond 1 MiB are truncated before parsing.
func HTML() Converter {
	return Funcs{
		Name: "html",
		Types: []mediatype.MediaType{
			mediatype.TextHTML,
			{Type: "application", Subtype: "xhtml+xml"},
		},
		Supports: func(target reflect.Type) bool {
			return target == documentType
		},
		Decode: func(body io.Reader, contentType mediatype.MediaType, dst any) error {
			reader, err := charset.NewReader(io.LimitReader(body, maxHTMLBodyBytes), contentType.String())
			if err != nil {
				return fmt.Errorf("detect html charset: %w", err)
			}
			doc, err := goquery.NewDocumentFromReader(reader)
			if err != nil {
				return fmt.Errorf("parse html: %w", err)
			}
			v, err := settable(dst)
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(doc))
			return nil
		},
	}
}
