package dispatch

import (
	"fmt"
	"strings"
)

// StatusSeries is the class of a status code, given by its leading digit.
type StatusSeries int

const (
	// SeriesUnknown covers codes outside 100-599.
	SeriesUnknown StatusSeries = iota
	// Informational is 1xx.
	Informational
	// Successful is 2xx.
	Successful
	// Redirection is 3xx.
	Redirection
	// ClientError is 4xx.
	ClientError
	// ServerError is 5xx.
	ServerError
)

var seriesNames = map[StatusSeries]string{
	SeriesUnknown: "UNKNOWN",
	Informational: "INFORMATIONAL",
	Successful:    "SUCCESSFUL",
	Redirection:   "REDIRECTION",
	ClientError:   "CLIENT_ERROR",
	ServerError:   "SERVER_ERROR",
}

// SeriesOf maps a status code to its series.
func SeriesOf(code int) StatusSeries {
	switch {
	case code >= 100 && code < 200:
		return Informational
	case code >= 200 && code < 300:
		return Successful
	case code >= 300 && code < 400:
		return Redirection
	case code >= 400 && code < 500:
		return ClientError
	case code >= 500 && code < 600:
		return ServerError
	default:
		return SeriesUnknown
	}
}

// String returns the series name, e.g. "CLIENT_ERROR".
func (s StatusSeries) String() string {
	if name, ok := seriesNames[s]; ok {
		return name
	}
	return seriesNames[SeriesUnknown]
}

// ParseSeries accepts series names case-insensitively ("successful",
// "CLIENT_ERROR", "client-error") as well as the "2xx" shorthand.
func ParseSeries(raw string) (StatusSeries, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.ReplaceAll(norm, "-", "_")
	for s, name := range seriesNames {
		if name == norm {
			return s, nil
		}
	}
	if len(norm) == 3 && strings.HasSuffix(norm, "XX") && norm[0] >= '1' && norm[0] <= '5' {
		return StatusSeries(norm[0] - '0'), nil
	}
	return SeriesUnknown, fmt.Errorf("unknown status series %q", raw)
}
