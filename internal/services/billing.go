package services

import (
	"context"
	"fmt"
	"log/slog"

	"familyledger/internal/amqp"
	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/shopspring/decimal"
)

// ResolveCycle returns the invoice period of card that contains asOf. The
// closing date is the closing day of asOf's month when asOf has not passed
// it, otherwise of the following month; a closing day past the month's
// length falls on the month's last day. The period starts the day after the
// previous closing date.
func ResolveCycle(card core.Card, asOf core.Date) (start, end core.Date) {
	closing := core.ClampToMonthEnd(asOf.Year(), asOf.Month(), card.ClosingDay)
	if asOf.After(closing) {
		closing = core.ClampToMonthEnd(asOf.Year(), asOf.Month()+1, card.ClosingDay)
	}
	prev := core.ClampToMonthEnd(closing.Year(), closing.Month()-1, card.ClosingDay)
	return prev.AddDays(1), closing
}

// DueDate is the first due day strictly after the closing date.
func DueDate(card core.Card, closing core.Date) core.Date {
	due := core.ClampToMonthEnd(closing.Year(), closing.Month(), card.DueDay)
	if !due.After(closing) {
		due = core.ClampToMonthEnd(closing.Year(), closing.Month()+1, card.DueDay)
	}
	return due
}

type Invoice struct {
	Card        core.Card
	PeriodStart core.Date
	PeriodEnd   core.Date
	DueDate     core.Date
	Items       []core.Expense
	Total       decimal.Decimal
}

// Settlement is the outcome of PayInvoice. NoOp is set when nothing was
// outstanding; no rows were written in that case.
type Settlement struct {
	NoOp    bool
	Invoice Invoice
	Payment core.Expense
}

type BillingService struct {
	store  ledger.Store
	clock  Clock
	notify *notifier
}

func NewBillingService(store ledger.Store, clock Clock, notify *notifier) *BillingService {
	return &BillingService{store: store, clock: clock, notify: notify}
}

func invoiceFilter(card core.Card, members []int64, start, end core.Date) ledger.ExpenseFilter {
	return ledger.ExpenseFilter{
		Members: members,
		CardID:  &card.ID,
		Range:   ledger.Between(start, end),
		Paid:    ledger.Unpaid(),
	}
}

// OpenInvoice lists the unpaid card expenses of members in the period that
// contains asOf. A zero asOf means today. It reads only and may be called
// with any historical date.
func (s *BillingService) OpenInvoice(ctx context.Context, card core.Card, members []int64, asOf core.Date) (Invoice, error) {
	return openInvoice(ctx, s.store, card, members, s.dateOrToday(asOf))
}

func openInvoice(ctx context.Context, r ledger.Reader, card core.Card, members []int64, asOf core.Date) (Invoice, error) {
	if err := card.Validate(); err != nil {
		return Invoice{}, err
	}
	start, end := ResolveCycle(card, asOf)
	items, err := r.ListExpenses(ctx, invoiceFilter(card, members, start, end))
	if err != nil {
		return Invoice{}, fmt.Errorf("open invoice of card %d: %w", card.ID, err)
	}

	total := decimal.Zero
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return Invoice{
		Card:        card,
		PeriodStart: start,
		PeriodEnd:   end,
		DueDate:     DueDate(card, end),
		Items:       items,
		Total:       total,
	}, nil
}

// PayInvoice settles the card's current invoice for the view's members from
// account. The period is always recomputed from today so a stale period is
// never paid. The payment expense and the paid flags are written in one
// transaction. A zero paymentDate means today.
func (s *BillingService) PayInvoice(ctx context.Context, view View, cardID, accountID int64, paymentDate core.Date) (Settlement, error) {
	familyID := view.FamilyID()
	card, err := s.store.GetCard(ctx, familyID, cardID)
	if err != nil {
		return Settlement{}, err
	}
	account, err := s.store.GetAccount(ctx, familyID, accountID)
	if err != nil {
		return Settlement{}, err
	}
	today := s.clock.Today()
	paymentDate = s.dateOrToday(paymentDate)

	var result Settlement
	err = s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		inv, err := openInvoice(ctx, tx, card, view.Members, today)
		if err != nil {
			return err
		}
		result = Settlement{Invoice: inv}
		if !inv.Total.IsPositive() {
			result.NoOp = true
			return nil
		}

		category, err := tx.GetOrCreateCategory(ctx, familyID, core.InvoicePaymentCategory)
		if err != nil {
			return err
		}
		payment := core.Expense{
			MemberID:    view.Requester.ID,
			Description: "Invoice payment - " + card.Name,
			Amount:      inv.Total,
			Date:        paymentDate,
			CategoryID:  category.ID,
			AccountID:   &account.ID,
		}
		ids, err := tx.InsertExpenses(ctx, []core.Expense{payment})
		if err != nil {
			return fmt.Errorf("insert invoice payment: %w", err)
		}
		payment.ID = ids[0]

		itemIDs := make([]int64, len(inv.Items))
		for i, e := range inv.Items {
			itemIDs[i] = e.ID
		}
		marked, err := tx.MarkInvoicePaid(ctx, itemIDs)
		if err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		if marked != int64(len(itemIDs)) {
			return &core.InvariantViolation{
				Op:     "pay invoice",
				Detail: fmt.Sprintf("card %d: marked %d of %d line items", card.ID, marked, len(itemIDs)),
			}
		}
		for i := range result.Invoice.Items {
			result.Invoice.Items[i].InvoicePaid = true
		}
		result.Payment = payment
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}

	if result.NoOp {
		slog.InfoContext(ctx, "Invoice has nothing outstanding", "card_id", card.ID, "period_end", result.Invoice.PeriodEnd)
		return result, nil
	}

	slog.InfoContext(ctx, "Invoice paid",
		"card_id", card.ID,
		"account_id", account.ID,
		"amount", result.Payment.Amount.StringFixed(2),
		"items", len(result.Invoice.Items),
		"period_end", result.Invoice.PeriodEnd)

	ev := amqp.NewLedgerEvent(amqp.EventInvoicePaid, familyID, view.Requester.ID)
	ev.CardID = card.ID
	ev.TargetID = result.Payment.ID
	ev.Amount = result.Payment.Amount
	for _, e := range result.Invoice.Items {
		ev.RowIDs = append(ev.RowIDs, e.ID)
	}
	s.notify.committed(ctx, ev)
	return result, nil
}

func (s *BillingService) dateOrToday(d core.Date) core.Date {
	if d.IsZero() {
		return s.clock.Today()
	}
	return d
}
