package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Outcome is the classified result of one probe run.
type Outcome struct {
	ProbeID     string    `json:"probe_id" yaml:"probe_id"`
	ProbeName   string    `json:"probe_name" yaml:"probe_name"`
	Method      string    `json:"method" yaml:"method"`
	URL         string    `json:"url" yaml:"url"`
	StatusCode  int       `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Series      string    `json:"series,omitempty" yaml:"series,omitempty"`
	ContentType string    `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Path        []string  `json:"path,omitempty" yaml:"path,omitempty"`
	Captured    string    `json:"captured,omitempty" yaml:"captured,omitempty"`
	Healthy     bool      `json:"healthy" yaml:"healthy"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	LatencyMS   int64     `json:"latency_ms" yaml:"latency_ms"`
	CheckedAt   time.Time `json:"checked_at" yaml:"checked_at"`
}

// Fingerprint identifies the observable state of an outcome. Timing fields
// are excluded so repeated identical results share a fingerprint.
func (o Outcome) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{
		o.ProbeID,
		strconv.Itoa(o.StatusCode),
		o.ContentType,
		strings.Join(o.Path, ">"),
		o.Captured,
		strconv.FormatBool(o.Healthy),
		o.Error,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
