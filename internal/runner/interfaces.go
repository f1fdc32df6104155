package runner

import (
	"context"

	"github.com/samvad-hq/dispatchkit/pkg/publishers"
)

// EventPublisher publishes outcome events downstream and reports how many
// sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
