package events

import (
	"context"
	"sync"

	"bookie/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange         EventType = "balance_change"
	EventTypeRoundOpened           EventType = "round_opened"
	EventTypeWagerPlaced           EventType = "wager_placed"
	EventTypeRoundSettled          EventType = "round_settled"
	EventTypeCommissionDistributed EventType = "commission_distributed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountID       int64
	NewBalance      int64
	ChangeAmount    int64
	TransactionType models.TransactionType
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// RoundOpenedEvent represents a newly created betting round
type RoundOpenedEvent struct {
	RoundID     int64
	GameType    models.GameType
	WindowStart int64 // unix seconds
	WindowEnd   int64
}

func (e RoundOpenedEvent) Type() EventType {
	return EventTypeRoundOpened
}

// WagerPlacedEvent represents a wager accepted into an open round
type WagerPlacedEvent struct {
	WagerID   int64
	RoundID   int64
	AccountID int64
	GameType  models.GameType
	Outcome   string
	Amount    int64
}

func (e WagerPlacedEvent) Type() EventType {
	return EventTypeWagerPlaced
}

// RoundSettledEvent represents a round reaching its terminal state
type RoundSettledEvent struct {
	RoundID        int64
	GameType       models.GameType
	WinningOutcome string
	TotalWagered   int64
	TotalPaid      int64
	HouseProfit    int64
}

func (e RoundSettledEvent) Type() EventType {
	return EventTypeRoundSettled
}

// CommissionDistributedEvent represents completed commission propagation for a round
type CommissionDistributedEvent struct {
	RoundID     int64
	TotalAmount int64
	EntryCount  int
	Failures    int
}

func (e CommissionDistributedEvent) Type() EventType {
	return EventTypeCommissionDistributed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events, called after a successful DB commit.
// Events are emitted on a background context because they outlive the
// transaction's lifecycle.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events, called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
