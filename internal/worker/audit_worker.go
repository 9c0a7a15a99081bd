// Package worker consumes ledger events and re-checks, against storage, the
// invariants each committed write promised.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"familyledger/internal/amqp"
	"familyledger/internal/core"
	"familyledger/internal/ledger"
)

// Stats counts what the auditor has seen since start.
type Stats struct {
	Handled    int64
	Violations int64
	Errors     int64
	Ignored    int64
}

// AuditWorker verifies ledger events. Storage failures are returned as-is so
// the delivery is requeued; violations are wrapped with amqp.Permanent.
type AuditWorker struct {
	reader ledger.Reader

	handled    atomic.Int64
	violations atomic.Int64
	failures   atomic.Int64
	ignored    atomic.Int64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewAuditWorker(reader ledger.Reader) *AuditWorker {
	return &AuditWorker{reader: reader}
}

// HandleEvent audits one event.
func (w *AuditWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	var err error
	switch ev.Type {
	case amqp.EventInvoicePaid:
		err = w.auditInvoicePaid(ctx, ev)
	case amqp.EventBatchCreated:
		err = w.auditBatch(ctx, ev)
	case amqp.EventGoalContributed, amqp.EventInvestmentContributed:
		err = w.auditMirrorExpense(ctx, ev)
	default:
		w.ignored.Add(1)
		slog.WarnContext(ctx, "Ignoring unknown ledger event", "type", ev.Type)
		return nil
	}

	var violation *core.InvariantViolation
	switch {
	case err == nil:
		w.handled.Add(1)
		slog.DebugContext(ctx, "Ledger event verified", "type", ev.Type, "family_id", ev.FamilyID)
		return nil
	case errors.As(err, &violation):
		w.violations.Add(1)
		slog.ErrorContext(ctx, "Ledger invariant violated",
			"type", ev.Type,
			"family_id", ev.FamilyID,
			"member_id", ev.MemberID,
			"op", violation.Op,
			"detail", violation.Detail)
		return amqp.Permanent(err)
	default:
		w.failures.Add(1)
		return fmt.Errorf("audit %s: %w", ev.Type, err)
	}
}

// auditInvoicePaid checks the settlement expense exists with the event's
// amount and that every settled line is flagged paid and sums to it.
func (w *AuditWorker) auditInvoicePaid(ctx context.Context, ev *amqp.LedgerEvent) error {
	const op = "invoice.paid"
	if len(ev.RowIDs) == 0 {
		return &core.InvariantViolation{Op: op, Detail: "settlement without line items"}
	}
	payment, err := w.expense(ctx, op, ev.TargetID)
	if err != nil {
		return err
	}
	if !payment.Amount.Equal(ev.Amount) {
		return &core.InvariantViolation{Op: op, Detail: fmt.Sprintf("payment %d amount %s, event says %s",
			payment.ID, payment.Amount.StringFixed(2), ev.Amount.StringFixed(2))}
	}

	sum := decimal.Zero
	for _, id := range ev.RowIDs {
		item, err := w.expense(ctx, op, id)
		if err != nil {
			return err
		}
		if !item.InvoicePaid {
			return &core.InvariantViolation{Op: op, Detail: fmt.Sprintf("line item %d is not marked paid", id)}
		}
		if item.CardID == nil || *item.CardID != ev.CardID {
			return &core.InvariantViolation{Op: op, Detail: fmt.Sprintf("line item %d is not on card %d", id, ev.CardID)}
		}
		sum = sum.Add(item.Amount)
	}
	if !sum.Equal(payment.Amount) {
		return &core.InvariantViolation{Op: op, Detail: fmt.Sprintf("line items sum to %s, payment is %s",
			sum.StringFixed(2), payment.Amount.StringFixed(2))}
	}
	return nil
}

func (w *AuditWorker) auditBatch(ctx context.Context, ev *amqp.LedgerEvent) error {
	n, err := w.reader.CountGroup(ctx, ev.GroupID)
	if err != nil {
		return fmt.Errorf("count group %s: %w", ev.GroupID, err)
	}
	if n != len(ev.RowIDs) {
		return &core.InvariantViolation{Op: "batch.created", Detail: fmt.Sprintf("group %s has %d rows, batch committed %d",
			ev.GroupID, n, len(ev.RowIDs))}
	}
	return nil
}

func (w *AuditWorker) auditMirrorExpense(ctx context.Context, ev *amqp.LedgerEvent) error {
	op := string(ev.Type)
	if len(ev.RowIDs) != 1 {
		return &core.InvariantViolation{Op: op, Detail: fmt.Sprintf("expected one mirror expense, got %d", len(ev.RowIDs))}
	}
	e, err := w.expense(ctx, op, ev.RowIDs[0])
	if err != nil {
		return err
	}
	if !e.Amount.Equal(ev.Amount) {
		return &core.InvariantViolation{Op: op, Detail: fmt.Sprintf("mirror expense %d amount %s, event says %s",
			e.ID, e.Amount.StringFixed(2), ev.Amount.StringFixed(2))}
	}
	return nil
}

// expense loads a row, turning a missing row into a violation.
func (w *AuditWorker) expense(ctx context.Context, op string, id int64) (core.Expense, error) {
	e, err := w.reader.GetExpense(ctx, id)
	if core.IsNotFound(err) {
		return core.Expense{}, &core.InvariantViolation{Op: op, Detail: fmt.Sprintf("expense %d does not exist", id)}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (w *AuditWorker) Stats() Stats {
	return Stats{
		Handled:    w.handled.Load(),
		Violations: w.violations.Load(),
		Errors:     w.failures.Load(),
		Ignored:    w.ignored.Load(),
	}
}

// Start logs Stats every interval until Stop. Returns an error if already
// running.
func (w *AuditWorker) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("audit interval must be positive, got %v", interval)
	}
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("audit worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx, interval, w.stopCh, w.doneCh)
	slog.InfoContext(ctx, "Audit worker started", "interval", interval)
	return nil
}

// Stop signals the loop and waits for it or for ctx.
func (w *AuditWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Audit worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Audit worker stop timed out")
		return ctx.Err()
	}
}

func (w *AuditWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *AuditWorker) runLoop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := w.Stats()
			slog.InfoContext(ctx, "Audit stats",
				"handled", s.Handled,
				"violations", s.Violations,
				"errors", s.Errors,
				"ignored", s.Ignored)
		}
	}
}
