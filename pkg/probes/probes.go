// Package probes loads probe definitions (YAML/JSON): what to request and
// how to classify the response.
package probes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Selector names accepted in route tables.
const (
	SelectorSeries      = "series"
	SelectorStatus      = "status"
	SelectorReason      = "reason"
	SelectorContentType = "content_type"
)

// Binding actions accepted in route tables.
const (
	ActionPass    = "pass"
	ActionCapture = "capture"
	ActionFail    = "fail"
	ActionNest    = "nest"
)

// Capture formats accepted by the capture action.
const (
	AsText  = "text"
	AsBytes = "bytes"
	AsJSON  = "json"
	AsYAML  = "yaml"
	AsXML   = "xml"
	AsHTML  = "html"
)

// WildcardKey binds the fallback route of a table.
const WildcardKey = "*"

const defaultRequestDelayMs = 250

// Probe is one configured endpoint check.
type Probe struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Method         string            `json:"method" yaml:"method"`
	URL            string            `json:"url" yaml:"url"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
	Routes         RouteTable        `json:"routes" yaml:"routes"`
	Config         map[string]any    `json:"config" yaml:"config"`
}

// RouteTable declares how a response is classified: the selector to key on
// and the ordered bindings to match against.
type RouteTable struct {
	Selector string        `json:"selector" yaml:"selector"`
	Bindings []BindingSpec `json:"bindings" yaml:"bindings"`
}

// BindingSpec is one entry of a RouteTable.
type BindingSpec struct {
	On      string      `json:"on" yaml:"on"`
	Action  string      `json:"action" yaml:"action"`
	As      string      `json:"as" yaml:"as"`
	Message string      `json:"message" yaml:"message"`
	Routes  *RouteTable `json:"routes" yaml:"routes"`
}

// IsWildcard reports whether the binding is the table's fallback.
func (b BindingSpec) IsWildcard() bool { return b.On == WildcardKey }

// DefaultRoutes passes 2xx responses and fails everything else.
func DefaultRoutes() RouteTable {
	return RouteTable{
		Selector: SelectorSeries,
		Bindings: []BindingSpec{
			{On: "SUCCESSFUL", Action: ActionPass},
			{On: WildcardKey, Action: ActionFail, Message: "unexpected response"},
		},
	}
}

type fileRegistry struct {
	Probes []Probe `json:"probes" yaml:"probes"`
}

// Registry holds the probes loaded from a file.
type Registry struct {
	mu     sync.RWMutex
	probes []Probe
	idx    map[string]Probe
}

// LoadRegistry loads the probe registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("probes file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open probes file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read probes file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(reg.Probes...)
}

// NewRegistry sanitizes and validates probes and indexes them by id.
func NewRegistry(probes ...Probe) (*Registry, error) {
	if len(probes) == 0 {
		return nil, errors.New("probes file contains no probes entries")
	}

	reg := &Registry{
		probes: make([]Probe, len(probes)),
		idx:    make(map[string]Probe, len(probes)),
	}
	for i := range probes {
		p := sanitizeProbe(probes[i])
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("probe[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate probe id %q", p.ID)
		}
		reg.probes[i] = p
		reg.idx[p.ID] = p
	}
	return reg, nil
}

func parseRegistry(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		reg, err := unmarshalRegistry(d.name, data, d.fn)
		if err == nil {
			return reg, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return fileRegistry{}, errors.New("probes file format not recognized (expected YAML or JSON)")
	}
	return fileRegistry{}, fmt.Errorf("probes file format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (fileRegistry, error) {
	var reg fileRegistry
	if err := fn(data, &reg); err != nil {
		return fileRegistry{}, fmt.Errorf("decode %s probes: %w", name, err)
	}
	return reg, nil
}

func sanitizeProbe(p Probe) Probe {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.URL = strings.TrimSpace(p.URL)
	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	if p.Method == "" {
		p.Method = http.MethodGet
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.RequestDelayMs <= 0 {
		p.RequestDelayMs = defaultRequestDelayMs
	}
	if p.Config == nil {
		p.Config = map[string]any{}
	}
	p.Headers = sanitizeHeaders(p.Headers)

	if p.Routes.Selector == "" && len(p.Routes.Bindings) == 0 {
		p.Routes = DefaultRoutes()
	} else {
		p.Routes = sanitizeRoutes(p.Routes)
	}
	return p
}

func sanitizeRoutes(t RouteTable) RouteTable {
	t.Selector = strings.ToLower(strings.TrimSpace(t.Selector))
	bindings := make([]BindingSpec, len(t.Bindings))
	for i, b := range t.Bindings {
		b.On = strings.TrimSpace(b.On)
		b.Action = strings.ToLower(strings.TrimSpace(b.Action))
		b.As = strings.ToLower(strings.TrimSpace(b.As))
		b.Message = strings.TrimSpace(b.Message)
		if b.Action == ActionCapture && b.As == "" {
			b.As = AsText
		}
		if b.Routes != nil {
			nested := sanitizeRoutes(*b.Routes)
			b.Routes = &nested
		}
		bindings[i] = b
	}
	t.Bindings = bindings
	return t
}

func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Probes returns all configured probes in file order.
func (r *Registry) Probes() []Probe {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Probe, len(r.probes))
	copy(out, r.probes)
	return out
}

// ByID returns the probe with the given id.
func (r *Registry) ByID(id string) (Probe, bool) {
	if r == nil {
		return Probe{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Probe{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[id]
	return p, ok
}

// RequestDelay returns the pause taken after requesting this probe.
func (p Probe) RequestDelay() time.Duration {
	if p.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(p.RequestDelayMs) * time.Millisecond
}
