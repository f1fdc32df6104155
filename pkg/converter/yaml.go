package converter

import (
	"fmt"
	"io"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
	"gopkg.in/yaml.v3"
)

// YAML decodes application/yaml and its common aliases.
func YAML() Converter {
	return Funcs{
		Name: "yaml",
		Types: []mediatype.MediaType{
			mediatype.ApplicationYAML,
			{Type: "application", Subtype: "x-yaml"},
			{Type: "text", Subtype: "yaml"},
			{Type: "application", Subtype: "*+yaml"},
		},
		Supports: decodable,
		Decode: func(body io.Reader, _ mediatype.MediaType, dst any) error {
			if err := yaml.NewDecoder(body).Decode(dst); err != nil {
				return fmt.Errorf("decode yaml: %w", err)
			}
			return nil
		},
	}
}
