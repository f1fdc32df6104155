package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/dispatchkit/internal/domain"
)

// EventTypeOutcome marks events carrying a probe outcome.
const EventTypeOutcome = "probe.outcome"

// Event represents the payload published downstream.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Outcome   domain.Outcome  `json:"outcome"`
	Previous  *domain.Outcome `json:"previous,omitempty"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// NewEvent constructs an Event for the outcome. previous is the last
// published outcome of the same probe, if any.
func NewEvent(outcome domain.Outcome, previous *domain.Outcome) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventTypeOutcome,
		Outcome:   outcome,
		Previous:  previous,
		EmittedAt: time.Now().UTC(),
	}
}

// Transition reports whether the probe's health changed since the previous outcome.
func (e Event) Transition() bool {
	return e.Previous != nil && e.Previous.Healthy != e.Outcome.Healthy
}
