package worker

import (
	"context"
	"log/slog"

	audit "salegate/pkg/platform/audit"
)

// Worker drains the publisher's outbox into a sink. Sink failures are logged
// and the event is dropped from the sink only; the store already holds it.
type Worker struct {
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "audit sink publish failed",
						"action", event.Action,
						"account", event.Account,
						"error", err,
					)
				}
			}
		}
	}
}
