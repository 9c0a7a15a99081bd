package services

import (
	"errors"
	"testing"

	"familyledger/internal/amqp"
	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCycle(t *testing.T) {
	tests := []struct {
		name       string
		closingDay int
		asOf       string
		wantStart  string
		wantEnd    string
	}{
		{"before closing", 10, "2025-04-05", "2025-03-11", "2025-04-10"},
		{"on closing day", 10, "2025-04-10", "2025-03-11", "2025-04-10"},
		{"after closing", 10, "2025-04-11", "2025-04-11", "2025-05-10"},
		{"closing 31 in a 30-day month", 31, "2025-04-15", "2025-04-01", "2025-04-30"},
		{"closing 31 after a clamped month", 31, "2025-05-15", "2025-05-01", "2025-05-31"},
		{"closing 30 in february", 30, "2025-02-10", "2025-01-31", "2025-02-28"},
		{"closing 30 in leap february", 30, "2024-02-29", "2024-01-31", "2024-02-29"},
		{"year rollover forward", 5, "2025-12-20", "2025-12-06", "2026-01-05"},
		{"year rollover backward", 5, "2025-01-03", "2024-12-06", "2025-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := core.Card{ClosingDay: tt.closingDay, DueDay: 1}
			start, end := ResolveCycle(card, day(tt.asOf))
			assert.Equal(t, tt.wantStart, start.String())
			assert.Equal(t, tt.wantEnd, end.String())
		})
	}
}

func TestResolveCycleIsContiguous(t *testing.T) {
	card := core.Card{ClosingDay: 31, DueDay: 10}
	_, end := ResolveCycle(card, day("2025-01-15"))
	for range 24 {
		nextStart, nextEnd := ResolveCycle(card, end.AddDays(1))
		require.True(t, nextStart.Equal(end.AddDays(1)), "cycle after %s starts %s", end, nextStart)
		end = nextEnd
	}
}

func TestDueDate(t *testing.T) {
	tests := []struct {
		closing string
		dueDay  int
		want    string
	}{
		{"2025-04-10", 20, "2025-04-20"},
		{"2025-04-25", 5, "2025-05-05"},
		{"2025-04-10", 10, "2025-05-10"},
		{"2025-01-20", 31, "2025-01-31"},
		{"2025-01-31", 30, "2025-02-28"},
	}
	for _, tt := range tests {
		got := DueDate(core.Card{ClosingDay: 1, DueDay: tt.dueDay}, day(tt.closing))
		assert.Equal(t, tt.want, got.String(), "closing %s due day %d", tt.closing, tt.dueDay)
	}
}

func TestOpenInvoice(t *testing.T) {
	f := newFixture(t, true)
	view := f.view(t, f.ana, core.Combined)

	f.cardExpense(f.ana, "10.00", "2025-04-10") // previous cycle
	a := f.cardExpense(f.ana, "40.00", "2025-04-11")
	b := f.cardExpense(f.bia, "60.00", "2025-05-10")
	f.cardExpense(f.ana, "5.00", "2025-05-11") // next cycle
	paid := f.cardExpense(f.ana, "7.00", "2025-04-20")
	f.accountExpense(f.ana, "99.00", "2025-04-20")
	require.NoError(t, f.store.WithinTx(f.ctx, func(tx ledger.Tx) error {
		_, err := tx.MarkInvoicePaid(f.ctx, []int64{paid.ID})
		return err
	}))

	first, err := f.engine.Billing.OpenInvoice(f.ctx, f.card, view.Members, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, "2025-04-11", first.PeriodStart.String())
	assert.Equal(t, "2025-05-10", first.PeriodEnd.String())
	assert.Equal(t, "2025-05-20", first.DueDate.String())
	require.Len(t, first.Items, 2)
	assert.Equal(t, a.ID, first.Items[0].ID)
	assert.Equal(t, b.ID, first.Items[1].ID)
	assert.True(t, amt("100").Equal(first.Total))

	second, err := f.engine.Billing.OpenInvoice(f.ctx, f.card, view.Members, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, first.PeriodStart, second.PeriodStart)
	assert.Equal(t, first.PeriodEnd, second.PeriodEnd)
	assert.True(t, first.Total.Equal(second.Total))

	historical, err := f.engine.Billing.OpenInvoice(f.ctx, f.card, view.Members, day("2025-04-01"))
	require.NoError(t, err)
	assert.Equal(t, "2025-04-10", historical.PeriodEnd.String())
	assert.True(t, amt("10").Equal(historical.Total))
}

func TestOpenInvoiceRejectsBadCard(t *testing.T) {
	f := newFixture(t, false)
	bad := core.Card{ID: 99, ClosingDay: 0, DueDay: 10}
	_, err := f.engine.Billing.OpenInvoice(f.ctx, bad, []int64{f.ana.ID}, f.today)
	require.Error(t, err)
	assert.True(t, core.IsConfiguration(err))
}

func TestOpenInvoiceEmptyMemberSet(t *testing.T) {
	f := newFixture(t, false)
	f.cardExpense(f.ana, "40.00", "2025-04-20")
	inv, err := f.engine.Billing.OpenInvoice(f.ctx, f.card, nil, f.today)
	require.NoError(t, err)
	assert.Empty(t, inv.Items)
	assert.True(t, inv.Total.IsZero())
}

func TestPayInvoiceNoOp(t *testing.T) {
	f := newFixture(t, false)
	view := f.view(t, f.ana, core.Individual)

	res, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, core.Date{})
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Zero(t, res.Payment.ID)

	all, err := f.store.ListExpenses(f.ctx, ledger.ExpenseFilter{Members: []int64{f.ana.ID, f.bia.ID}})
	require.NoError(t, err)
	assert.Empty(t, all)
	cats, err := f.store.ListCategories(f.ctx, f.family.ID)
	require.NoError(t, err)
	assert.Len(t, cats, 1, "no reserved category is created for a no-op")
	assert.Empty(t, f.pub.Events())
}

func TestPayInvoiceSettlesAndMarks(t *testing.T) {
	f := newFixture(t, true)
	view := f.view(t, f.ana, core.Combined)
	a := f.cardExpense(f.ana, "40.00", "2025-04-12")
	b := f.cardExpense(f.bia, "60.00", "2025-04-14")

	res, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, day("2025-04-16"))
	require.NoError(t, err)
	require.False(t, res.NoOp)
	assert.True(t, amt("100").Equal(res.Payment.Amount))
	assert.Equal(t, "Invoice payment - Visa", res.Payment.Description)
	assert.Equal(t, "2025-04-16", res.Payment.Date.String())
	require.NotNil(t, res.Payment.AccountID)
	assert.Equal(t, f.checking.ID, *res.Payment.AccountID)
	assert.Nil(t, res.Payment.CardID)

	for _, id := range []int64{a.ID, b.ID} {
		e, err := f.store.GetExpense(f.ctx, id)
		require.NoError(t, err)
		assert.True(t, e.InvoicePaid, "expense %d", id)
	}

	stored, err := f.store.GetExpense(f.ctx, res.Payment.ID)
	require.NoError(t, err)
	cat, err := f.store.GetCategory(f.ctx, f.family.ID, stored.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, core.InvoicePaymentCategory, cat.Name)

	again, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, core.Date{})
	require.NoError(t, err)
	assert.True(t, again.NoOp)

	events := f.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, amqp.EventInvoicePaid, events[0].Type)
	assert.Equal(t, f.card.ID, events[0].CardID)
	assert.Equal(t, res.Payment.ID, events[0].TargetID)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, events[0].RowIDs)
	assert.True(t, amt("100").Equal(events[0].Amount))
}

func TestPayInvoiceIndividualLeavesOthersUnpaid(t *testing.T) {
	f := newFixture(t, true)
	view := f.view(t, f.ana, core.Individual)
	f.cardExpense(f.ana, "40.00", "2025-04-12")
	other := f.cardExpense(f.bia, "60.00", "2025-04-14")

	res, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, core.Date{})
	require.NoError(t, err)
	assert.True(t, amt("40").Equal(res.Payment.Amount))
	assert.Equal(t, f.today, res.Payment.Date)

	e, err := f.store.GetExpense(f.ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, e.InvoicePaid)
}

func TestPayInvoiceIsAtomic(t *testing.T) {
	for _, op := range []string{"GetOrCreateCategory", "InsertExpenses", "MarkInvoicePaid"} {
		t.Run(op, func(t *testing.T) {
			f := newFixture(t, false)
			view := f.view(t, f.ana, core.Individual)
			a := f.cardExpense(f.ana, "40.00", "2025-04-12")

			injected := errors.New("write failed")
			f.store.FailOnce(op, injected)
			_, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, core.Date{})
			require.ErrorIs(t, err, injected)

			all, err := f.store.ListExpenses(f.ctx, ledger.ExpenseFilter{Members: []int64{f.ana.ID}})
			require.NoError(t, err)
			require.Len(t, all, 1, "no settlement row may survive")
			assert.Equal(t, a.ID, all[0].ID)
			assert.False(t, all[0].InvoicePaid)
			assert.Empty(t, f.pub.Events())

			// retry succeeds once the failure is gone
			res, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, core.Date{})
			require.NoError(t, err)
			assert.True(t, amt("40").Equal(res.Payment.Amount))
		})
	}
}

func TestPayInvoiceOutsideFamily(t *testing.T) {
	f := newFixture(t, false)
	stranger := f.store.AddMember("zé", 0)
	view := f.view(t, stranger, core.Individual)

	_, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, core.Date{})
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func TestPayInvoicePublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, false)
	f.pub.err = errors.New("broker down")
	view := f.view(t, f.ana, core.Individual)
	f.cardExpense(f.ana, "40.00", "2025-04-12")

	res, err := f.engine.Billing.PayInvoice(f.ctx, view, f.card.ID, f.checking.ID, core.Date{})
	require.NoError(t, err)
	assert.False(t, res.NoOp)
}
