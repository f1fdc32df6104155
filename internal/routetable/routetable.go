package routetable

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"

	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
	"github.com/samvad-hq/dispatchkit/pkg/probes"
)

const maxSummaryLen = 256

// ErrRouteFailed is wrapped by errors returned from "fail" bindings.
var ErrRouteFailed = errors.New("route failed")

// Capture is the value produced by a "capture" binding.
type Capture struct {
	Format  string
	Summary string
}

// Table is a compiled route table.
type Table struct {
	selector   string
	dispatchFn func(*dispatch.Response, *converter.Registry) (dispatch.Result, error)
	nestedFn   func(*dispatch.Retriever) (dispatch.Result, error)
}

// Selector returns the selector name the table keys on.
func (t *Table) Selector() string { return t.selector }

// Dispatch routes resp through the table and closes its body.
func (t *Table) Dispatch(resp *dispatch.Response, converters *converter.Registry) (dispatch.Result, error) {
	return t.dispatchFn(resp, converters)
}

// Route exposes the table as a nested route.
func (t *Table) Route() dispatch.Route {
	return func(r *dispatch.Retriever) (any, error) {
		return t.nestedFn(r)
	}
}

// Compile validates the keys of a route table and builds its dispatch bindings.
func Compile(routes probes.RouteTable) (*Table, error) {
	switch strings.ToLower(strings.TrimSpace(routes.Selector)) {
	case probes.SelectorSeries:
		return build(routes, dispatch.Series(), dispatch.ParseSeries)
	case probes.SelectorStatus:
		return build(routes, dispatch.Status(), parseStatus)
	case probes.SelectorReason:
		return build(routes, dispatch.Reason(), parseReason)
	case probes.SelectorContentType:
		return build(routes, dispatch.ContentType(), mediatype.Parse)
	default:
		return nil, fmt.Errorf("unknown selector %q", routes.Selector)
	}
}

func build[K any](routes probes.RouteTable, selector dispatch.Selector[K], parse func(string) (K, error)) (*Table, error) {
	if len(routes.Bindings) == 0 {
		return nil, fmt.Errorf("%s routes declare no bindings", routes.Selector)
	}

	bindings := make([]dispatch.Binding[K], 0, len(routes.Bindings))
	for i, b := range routes.Bindings {
		route, err := compileAction(b)
		if err != nil {
			return nil, fmt.Errorf("%s binding[%d]: %w", routes.Selector, i, err)
		}
		if b.IsWildcard() {
			bindings = append(bindings, dispatch.Otherwise[K](route))
			continue
		}
		key, err := parse(b.On)
		if err != nil {
			return nil, fmt.Errorf("%s binding[%d]: invalid key %q: %w", routes.Selector, i, b.On, err)
		}
		bindings = append(bindings, dispatch.On(key, route))
	}

	return &Table{
		selector:   selector.Name(),
		dispatchFn: func(resp *dispatch.Response, converters *converter.Registry) (dispatch.Result, error) {
			return dispatch.Dispatch(resp, converters, selector, bindings...)
		},
		nestedFn: func(r *dispatch.Retriever) (dispatch.Result, error) {
			return dispatch.Nested(r, selector, bindings...)
		},
	}, nil
}

func compileAction(b probes.BindingSpec) (dispatch.Route, error) {
	switch b.Action {
	case probes.ActionPass:
		return dispatch.Pass(), nil
	case probes.ActionFail:
		msg := b.Message
		if msg == "" {
			msg = "unexpected response"
		}
		return dispatch.Fail(fmt.Errorf("%w: %s", ErrRouteFailed, msg)), nil
	case probes.ActionCapture:
		return captureRoute(b.As)
	case probes.ActionNest:
		if b.Routes == nil {
			return nil, errors.New("nest requires routes")
		}
		nested, err := Compile(*b.Routes)
		if err != nil {
			return nil, err
		}
		return nested.Route(), nil
	default:
		return nil, fmt.Errorf("unknown action %q", b.Action)
	}
}

func parseStatus(raw string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if code < 100 || code > 599 {
		return 0, fmt.Errorf("status %d out of range", code)
	}
	return code, nil
}

func parseReason(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty reason")
	}
	return raw, nil
}

// xmlDocument captures any XML document by root element.
type xmlDocument struct {
	XMLName xml.Name
}

func captureRoute(as string) (dispatch.Route, error) {
	switch as {
	case "", probes.AsText:
		return capture(probes.AsText, func(s string) (string, error) { return s, nil }), nil
	case probes.AsBytes:
		return capture(probes.AsBytes, func(b []byte) (string, error) {
			return fmt.Sprintf("%d bytes", len(b)), nil
		}), nil
	case probes.AsJSON:
		return capture(probes.AsJSON, compactJSON[any]), nil
	case probes.AsYAML:
		return capture(probes.AsYAML, compactJSON[any]), nil
	case probes.AsXML:
		return capture(probes.AsXML, func(doc xmlDocument) (string, error) {
			return "<" + doc.XMLName.Local + ">", nil
		}), nil
	case probes.AsHTML:
		return capture(probes.AsHTML, func(doc *goquery.Document) (string, error) {
			return strings.TrimSpace(doc.Find("title").First().Text()), nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown capture format %q", as)
	}
}

func capture[T any](format string, summarize func(T) (string, error)) dispatch.Route {
	return func(r *dispatch.Retriever) (any, error) {
		v, err := dispatch.Retrieve[T](r)
		if err != nil {
			return nil, err
		}
		summary, err := summarize(v)
		if err != nil {
			return nil, err
		}
		return Capture{Format: format, Summary: truncate(summary)}, nil
	}
}

func compactJSON[T any](v T) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("summarize body: %w", err)
	}
	return string(out), nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxSummaryLen {
		return s
	}
	cut := maxSummaryLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
