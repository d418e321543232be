package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"bookie/events"
)

// Notifier pushes round lifecycle notifications to external consumers.
// Delivery is best effort; the core settlement path never depends on it.
type Notifier interface {
	NotifyRoundOpened(ctx context.Context, event events.RoundOpenedEvent) error
	NotifyRoundSettled(ctx context.Context, event events.RoundSettledEvent) error
}

// envelope wraps every outgoing notification with identity and timing
type envelope struct {
	NotificationID string          `json:"notification_id"`
	Kind           string          `json:"kind"`
	Timestamp      time.Time       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload"`
}

// NATSNotifier publishes notifications over core NATS subjects
type NATSNotifier struct {
	nc *nats.Conn
}

// NewNATSNotifier creates a notifier over an established NATS connection
func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

func (n *NATSNotifier) publish(subject, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	env := envelope{
		NotificationID: uuid.New().String(),
		Kind:           kind,
		Timestamp:      time.Now().UTC(),
		Payload:        data,
	}
	envData, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal notification envelope: %w", err)
	}

	if err := n.nc.Publish(subject, envData); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject":        subject,
		"notificationId": env.NotificationID,
	}).Debug("Published notification")
	return nil
}

// NotifyRoundOpened announces a new betting round
func (n *NATSNotifier) NotifyRoundOpened(ctx context.Context, event events.RoundOpenedEvent) error {
	subject := fmt.Sprintf("bookie.rounds.%s.opened", event.GameType)
	return n.publish(subject, "round_opened", event)
}

// NotifyRoundSettled announces a round's final outcome
func (n *NATSNotifier) NotifyRoundSettled(ctx context.Context, event events.RoundSettledEvent) error {
	subject := fmt.Sprintf("bookie.rounds.%s.settled", event.GameType)
	return n.publish(subject, "round_settled", event)
}

// Attach subscribes the notifier to the in-process event bus. Notification
// failures are logged and dropped; round state is already committed.
func Attach(bus *events.Bus, n Notifier) {
	bus.Subscribe(events.EventTypeRoundOpened, func(ctx context.Context, event events.Event) {
		opened, ok := event.(events.RoundOpenedEvent)
		if !ok {
			return
		}
		if err := n.NotifyRoundOpened(ctx, opened); err != nil {
			log.WithError(err).WithField("roundId", opened.RoundID).Error("Failed to notify round opened")
		}
	})

	bus.Subscribe(events.EventTypeRoundSettled, func(ctx context.Context, event events.Event) {
		settled, ok := event.(events.RoundSettledEvent)
		if !ok {
			return
		}
		if err := n.NotifyRoundSettled(ctx, settled); err != nil {
			log.WithError(err).WithField("roundId", settled.RoundID).Error("Failed to notify round settled")
		}
	})
}
