package probes

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const maxRouteDepth = 4

// Validate checks the probe definition. Route keys depend on the selector
// and are checked by routetable.Compile, which the prober runs at startup.
func (p Probe) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.URL, validation.Required, is.URL),
		validation.Field(&p.Method, validation.Required, validation.In(
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodTrace,
		)),
		validation.Field(&p.RequestDelayMs, validation.Min(0)),
		validation.Field(&p.Routes, validation.By(func(value interface{}) error {
			t, ok := value.(RouteTable)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a RouteTable")
			}
			return validateRoutes(t, 1)
		})),
	)
}

func validateRoutes(t RouteTable, depth int) error {
	if depth > maxRouteDepth {
		return validation.NewError("validation_routes_too_deep", fmt.Sprintf("routes nest deeper than %d levels", maxRouteDepth))
	}
	wildcards := 0
	for _, b := range t.Bindings {
		if b.IsWildcard() {
			wildcards++
		}
	}
	if wildcards > 1 {
		return validation.NewError("validation_duplicate_wildcard", "at most one binding may use \"*\"")
	}
	return validation.ValidateStruct(&t,
		validation.Field(&t.Selector, validation.Required, validation.In(
			SelectorSeries, SelectorStatus, SelectorReason, SelectorContentType,
		)),
		validation.Field(&t.Bindings, validation.Required, validation.Each(validation.By(func(value interface{}) error {
			b, ok := value.(BindingSpec)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a BindingSpec")
			}
			return validateBinding(b, depth)
		}))),
	)
}

func validateBinding(b BindingSpec, depth int) error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.On, validation.Required),
		validation.Field(&b.Action, validation.Required, validation.In(ActionPass, ActionCapture, ActionFail, ActionNest)),
		validation.Field(&b.As,
			validation.When(b.Action == ActionCapture, validation.Required),
			validation.In(AsText, AsBytes, AsJSON, AsYAML, AsXML, AsHTML),
		),
		validation.Field(&b.Routes,
			validation.When(b.Action == ActionNest, validation.Required, validation.By(func(value interface{}) error {
				nested, ok := value.(*RouteTable)
				if !ok || nested == nil {
					return validation.NewError("validation_required", "cannot be blank")
				}
				return validateRoutes(*nested, depth+1)
			})),
		),
	)
}
