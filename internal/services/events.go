package services

import (
	"context"
	"log/slog"

	"familyledger/internal/amqp"
)

// Publisher announces committed writes. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Invalidator drops derived data cached for a family.
type Invalidator interface {
	InvalidateFamily(familyID int64)
}

// notifier runs after a write transaction commits. Nothing it does can fail
// the write: the rows are already stored.
type notifier struct {
	publisher    Publisher
	invalidators []Invalidator
}

func (n *notifier) committed(ctx context.Context, ev *amqp.LedgerEvent) {
	for _, inv := range n.invalidators {
		inv.InvalidateFamily(ev.FamilyID)
	}

	if n.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "type", ev.Type)
		return
	}
	if err := n.publisher.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", ev.Type,
			"family_id", ev.FamilyID,
			"error", err)
	}
}
