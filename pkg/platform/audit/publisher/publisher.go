package publisher

import (
	"context"
	"log/slog"

	audit "landregistry/pkg/platform/audit"
)

// Channel emits events into an in-process inbox consumed by a worker. When
// the inbox is full the event is dropped rather than blocking the command
// path; the drop is logged.
type Channel struct {
	inbox  chan audit.Event
	logger *slog.Logger
}

func NewChannel(buffer int, logger *slog.Logger) *Channel {
	return &Channel{
		inbox:  make(chan audit.Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the receive side for the worker.
func (c *Channel) Inbox() <-chan audit.Event {
	return c.inbox
}

func (c *Channel) Emit(ctx context.Context, event audit.Event) error {
	select {
	case c.inbox <- event:
		return nil
	default:
		if c.logger != nil {
			c.logger.WarnContext(ctx, "audit inbox full, dropping event",
				"action", event.Action,
				"land_id", event.LandID,
			)
		}
		return nil
	}
}
