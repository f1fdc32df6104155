package probes

import "strings"

// ConfigString returns the trimmed string value for key from probe.Config or a fallback.
func ConfigString(p Probe, key, fallback string) string {
	if p.Config != nil {
		if raw, ok := p.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
)

// RequestHeaders merges the convenience config keys with the explicit
// headers map; explicit headers win.
func RequestHeaders(p Probe) map[string]string {
	headers := make(map[string]string, 4+len(p.Headers))

	if v := ConfigString(p, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(p, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}
	if v := ConfigString(p, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(p, ConfigCacheControlKey, ""); v != "" {
		headers["Cache-Control"] = v
	}
	for k, v := range p.Headers {
		headers[k] = v
	}

	return headers
}
