package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/dispatchkit/internal/domain"
)

// Store remembers which probe outcomes were already published and the most
// recent outcome of every probe.
type Store interface {
	Close() error
	SeenOutcome(o domain.Outcome) (bool, error)
	MarkOutcome(o domain.Outcome) error
	LastOutcome(probeID string) (domain.Outcome, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	OutcomeTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultOutcomeTTL      = 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.OutcomeTTL <= 0 {
		opts.OutcomeTTL = defaultOutcomeTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                              { return nil }
func (noopStore) SeenOutcome(domain.Outcome) (bool, error) { return false, nil }
func (noopStore) MarkOutcome(domain.Outcome) error         { return nil }
func (noopStore) LastOutcome(string) (domain.Outcome, bool, error) {
	return domain.Outcome{}, false, nil
}
