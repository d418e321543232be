package notifier

import (
	"context"

	"bookie/events"
)

// NoopNotifier drops every notification, used when NATS is not configured
type NoopNotifier struct{}

func (NoopNotifier) NotifyRoundOpened(ctx context.Context, event events.RoundOpenedEvent) error {
	return nil
}

func (NoopNotifier) NotifyRoundSettled(ctx context.Context, event events.RoundSettledEvent) error {
	return nil
}
