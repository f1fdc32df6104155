// Package mediatype models `type/subtype; key=value` values and the wildcard
// and structured-suffix aware comparisons used for content negotiation.
package mediatype

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strings"
)

const wildcard = "*"

// MediaType is a parsed media type. The zero value is Unspecified.
type MediaType struct {
	Type       string
	Subtype    string
	Parameters [][2]string
}

var (
	Unspecified = MediaType{}

	All             = MediaType{Type: wildcard, Subtype: wildcard}
	ApplicationJSON = MediaType{Type: "application", Subtype: "json"}
	ApplicationXML  = MediaType{Type: "application", Subtype: "xml"}
	ApplicationYAML = MediaType{Type: "application", Subtype: "yaml"}
	OctetStream     = MediaType{Type: "application", Subtype: "octet-stream"}
	ProblemJSON     = MediaType{Type: "application", Subtype: "problem+json"}
	TextPlain       = MediaType{Type: "text", Subtype: "plain"}
	TextHTML        = MediaType{Type: "text", Subtype: "html"}
	TextXML         = MediaType{Type: "text", Subtype: "xml"}
)

// Parse parses a Content-Type style value. Type, subtype and parameter names
// are lower-cased; parameters are sorted by name.
func Parse(raw string) (MediaType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unspecified, fmt.Errorf("empty media type")
	}
	if raw == wildcard {
		return All, nil
	}

	full, params, err := mime.ParseMediaType(raw)
	if errors.Is(err, mime.ErrInvalidMediaParameter) {
		params, err = validParams(full, raw), nil
	}
	if err != nil {
		return Unspecified, fmt.Errorf("parse media type %q: %w", raw, err)
	}

	typ, sub, ok := strings.Cut(full, "/")
	if !ok || typ == "" || sub == "" {
		return Unspecified, fmt.Errorf("parse media type %q: missing subtype", raw)
	}
	if typ == wildcard && sub != wildcard {
		return Unspecified, fmt.Errorf("parse media type %q: wildcard type requires wildcard subtype", raw)
	}

	mt := MediaType{Type: typ, Subtype: sub}
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		mt.Parameters = make([][2]string, 0, len(keys))
		for _, k := range keys {
			mt.Parameters = append(mt.Parameters, [2]string{k, params[k]})
		}
	}
	return mt, nil
}

// validParams keeps the parameters of raw that parse on their own.
func validParams(full, raw string) map[string]string {
	params := make(map[string]string)
	_, rest, _ := strings.Cut(raw, ";")
	for _, seg := range strings.Split(rest, ";") {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		_, p, err := mime.ParseMediaType(full + ";" + seg)
		if err != nil {
			continue
		}
		for k, v := range p {
			params[k] = v
		}
	}
	return params
}

// MustParse is like Parse but panics on malformed input. Meant for literals.
func MustParse(raw string) MediaType {
	mt, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return mt
}

// ParseOrUnspecified never fails: malformed or empty values yield Unspecified.
func ParseOrUnspecified(raw string) MediaType {
	mt, err := Parse(raw)
	if err != nil {
		return Unspecified
	}
	return mt
}

// IsUnspecified reports whether no media type information is present.
func (m MediaType) IsUnspecified() bool {
	return m.Type == "" && m.Subtype == ""
}

// IsWildcardType reports whether the type is `*`.
func (m MediaType) IsWildcardType() bool {
	return m.Type == wildcard
}

// IsWildcardSubtype reports whether the subtype is `*` or `*+suffix`.
func (m MediaType) IsWildcardSubtype() bool {
	return m.Subtype == wildcard || strings.HasPrefix(m.Subtype, wildcard+"+")
}

// Suffix returns the structured syntax suffix, e.g. "json" for
// application/problem+json, or "" when there is none.
func (m MediaType) Suffix() string {
	if idx := strings.LastIndex(m.Subtype, "+"); idx >= 0 {
		return m.Subtype[idx+1:]
	}
	return ""
}

// Essence returns `type/subtype` without parameters.
func (m MediaType) Essence() string {
	if m.IsUnspecified() {
		return ""
	}
	return m.Type + "/" + m.Subtype
}

// Param returns the value of the named parameter.
func (m MediaType) Param(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range m.Parameters {
		if p[0] == name {
			return p[1], true
		}
	}
	return "", false
}

// WithoutParameters returns a copy with the parameters removed.
func (m MediaType) WithoutParameters() MediaType {
	return MediaType{Type: m.Type, Subtype: m.Subtype}
}

// String formats the media type as a header value. Unspecified renders as "".
func (m MediaType) String() string {
	if m.IsUnspecified() {
		return ""
	}
	if len(m.Parameters) == 0 {
		return m.Essence()
	}
	params := make(map[string]string, len(m.Parameters))
	for _, p := range m.Parameters {
		params[p[0]] = p[1]
	}
	if formatted := mime.FormatMediaType(m.Essence(), params); formatted != "" {
		return formatted
	}
	return m.Essence()
}

// Equal compares type and subtype, ignoring parameters.
func (m MediaType) Equal(other MediaType) bool {
	return strings.EqualFold(m.Type, other.Type) && strings.EqualFold(m.Subtype, other.Subtype)
}

// Includes reports whether m covers other: `*/*` includes everything,
// `text/*` includes `text/plain`, `application/*+json` includes
// `application/problem+json`. Inclusion is not symmetric.
func (m MediaType) Includes(other MediaType) bool {
	if m.IsUnspecified() || other.IsUnspecified() {
		return false
	}
	if m.IsWildcardType() {
		return true
	}
	if !strings.EqualFold(m.Type, other.Type) {
		return false
	}
	if strings.EqualFold(m.Subtype, other.Subtype) {
		return true
	}
	if !m.IsWildcardSubtype() {
		return false
	}
	if m.Subtype == wildcard {
		return true
	}
	suffix := m.Suffix()
	return strings.EqualFold(suffix, other.Suffix()) || strings.EqualFold(suffix, other.Subtype)
}

// IsCompatibleWith is the symmetric counterpart of Includes: either side may
// carry the wildcard.
func (m MediaType) IsCompatibleWith(other MediaType) bool {
	if m.IsUnspecified() || other.IsUnspecified() {
		return false
	}
	if m.IsWildcardType() || other.IsWildcardType() {
		return true
	}
	if !strings.EqualFold(m.Type, other.Type) {
		return false
	}
	if strings.EqualFold(m.Subtype, other.Subtype) {
		return true
	}
	if !m.IsWildcardSubtype() && !other.IsWildcardSubtype() {
		return false
	}
	if m.Subtype == wildcard || other.Subtype == wildcard {
		return true
	}

	thisSuffix, otherSuffix := m.Suffix(), other.Suffix()
	if m.IsWildcardSubtype() && thisSuffix != "" {
		return strings.EqualFold(thisSuffix, other.Subtype) || strings.EqualFold(thisSuffix, otherSuffix)
	}
	if other.IsWildcardSubtype() && otherSuffix != "" {
		return strings.EqualFold(otherSuffix, m.Subtype) || strings.EqualFold(otherSuffix, thisSuffix)
	}
	return false
}

// Strings formats a list of media types, used in diagnostics.
func Strings(types []MediaType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.String())
	}
	return out
}
