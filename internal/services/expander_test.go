package services

import (
	"errors"
	"testing"

	"familyledger/internal/amqp"
	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInstallments(t *testing.T) {
	group := uuid.New()
	cardID := int64(7)
	rows, err := BuildInstallments(1, InstallmentPlan{
		Description: "Sofa",
		Total:       amt("100.00"),
		Count:       3,
		Start:       day("2025-01-31"),
		CategoryID:  3,
		CardID:      &cardID,
	}, group)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	wantAmounts := []string{"33.33", "33.33", "33.34"}
	wantDates := []string{"2025-01-31", "2025-02-28", "2025-03-31"}
	wantDesc := []string{"Sofa (1/3)", "Sofa (2/3)", "Sofa (3/3)"}
	total := amt("0")
	for i, r := range rows {
		assert.True(t, amt(wantAmounts[i]).Equal(r.Amount), "installment %d amount %s", i+1, r.Amount)
		assert.Equal(t, wantDates[i], r.Date.String())
		assert.Equal(t, wantDesc[i], r.Description)
		assert.Equal(t, i+1, r.InstallmentIndex)
		assert.Equal(t, 3, r.InstallmentCount)
		assert.True(t, r.IsInstallment)
		assert.Equal(t, uuid.NullUUID{UUID: group, Valid: true}, r.PurchaseGroupID)
		assert.False(t, r.RecurrenceGroupID.Valid)
		total = total.Add(r.Amount)
	}
	assert.True(t, amt("100.00").Equal(total))
}

func TestBuildInstallmentsSumsToTotal(t *testing.T) {
	cardID := int64(1)
	for _, tc := range []struct {
		total string
		count int
	}{
		{"0.01", 1}, {"0.05", 3}, {"999.99", 7}, {"1234.56", 12}, {"10", 360},
	} {
		rows, err := BuildInstallments(1, InstallmentPlan{
			Description: "x", Total: amt(tc.total), Count: tc.count,
			Start: day("2025-01-01"), CardID: &cardID,
		}, uuid.New())
		require.NoError(t, err)
		sum := amt("0")
		for _, r := range rows {
			sum = sum.Add(r.Amount)
		}
		assert.True(t, amt(tc.total).Equal(sum), "%s / %d", tc.total, tc.count)
	}
}

func TestBuildInstallmentsRejects(t *testing.T) {
	cardID := int64(1)
	base := InstallmentPlan{Description: "x", Total: amt("10"), Count: 2, Start: day("2025-01-01"), CardID: &cardID}

	p := base
	p.Count = 0
	_, err := BuildInstallments(1, p, uuid.New())
	assert.ErrorIs(t, err, core.ErrInvalidCount)

	p = base
	p.Count = core.MaxBatchSize + 1
	_, err = BuildInstallments(1, p, uuid.New())
	assert.ErrorIs(t, err, core.ErrInvalidCount)

	p = base
	p.Total = amt("0")
	_, err = BuildInstallments(1, p, uuid.New())
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	p = base
	p.CardID = nil
	_, err = BuildInstallments(1, p, uuid.New())
	assert.ErrorIs(t, err, core.ErrNoSettlement)
}

func TestBuildRecurringExpensesMonthlyFromMonthEnd(t *testing.T) {
	acct := int64(1)
	group := uuid.New()
	rows, err := BuildRecurringExpenses(1, RecurringExpense{
		Description: "Rent", Amount: amt("1500"), Frequency: core.Monthly, Repeat: 4,
		Start: day("2025-01-31"), AccountID: &acct,
	}, group)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	want := []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30"}
	for i, r := range rows {
		assert.Equal(t, want[i], r.Date.String())
		assert.True(t, r.IsRecurring)
		assert.Equal(t, "Rent", r.Description)
		assert.Equal(t, uuid.NullUUID{UUID: group, Valid: true}, r.RecurrenceGroupID)
		assert.True(t, amt("1500").Equal(r.Amount))
	}
}

func TestBuildRecurringIncomes(t *testing.T) {
	rows, err := BuildRecurringIncomes(1, RecurringIncome{
		Description: "Salary", Amount: amt("5000"), Frequency: core.Biweekly, Repeat: 3,
		Start: day("2025-12-20"), AccountID: 1,
	}, uuid.New())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2025-12-20", rows[0].Date.String())
	assert.Equal(t, "2026-01-03", rows[1].Date.String())
	assert.Equal(t, "2026-01-17", rows[2].Date.String())

	_, err = BuildRecurringIncomes(1, RecurringIncome{
		Description: "Salary", Amount: amt("5000"), Frequency: "daily", Repeat: 3,
		Start: day("2025-12-20"), AccountID: 1,
	}, uuid.New())
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)
}

func TestExpandInstallmentsPersistsBatch(t *testing.T) {
	f := newFixture(t, false)
	view := f.view(t, f.ana, core.Individual)

	batch, err := f.engine.Expander.ExpandInstallments(f.ctx, view, InstallmentPlan{
		Description: "Laptop", Total: amt("100.00"), Count: 3,
		Start: day("2025-04-15"), CategoryID: f.groceries.ID, CardID: &f.card.ID,
	})
	require.NoError(t, err)
	require.Len(t, batch.Expenses, 3)
	assert.Equal(t, 3, batch.Size())

	n, err := f.store.CountGroup(f.ctx, batch.GroupID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, e := range batch.Expenses {
		stored, err := f.store.GetExpense(f.ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.Description, stored.Description)
		assert.Equal(t, f.ana.ID, stored.MemberID)
	}

	events := f.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, amqp.EventBatchCreated, events[0].Type)
	assert.Equal(t, batch.GroupID, events[0].GroupID)
	assert.Len(t, events[0].RowIDs, 3)
	assert.True(t, amt("100").Equal(events[0].Amount))
}

func TestExpandIsAllOrNothing(t *testing.T) {
	f := newFixture(t, false)
	view := f.view(t, f.ana, core.Individual)
	injected := errors.New("constraint failed")

	f.store.FailOnce("InsertExpenses", injected)
	_, err := f.engine.Expander.ExpandRecurringExpense(f.ctx, view, RecurringExpense{
		Description: "Gym", Amount: amt("90"), Frequency: core.Monthly, Repeat: 12,
		Start: day("2025-01-05"), CategoryID: f.groceries.ID, AccountID: &f.checking.ID,
	})
	require.ErrorIs(t, err, injected)

	f.store.FailOnce("InsertIncomes", injected)
	_, err = f.engine.Expander.ExpandRecurringIncome(f.ctx, view, RecurringIncome{
		Description: "Salary", Amount: amt("5000"), Frequency: core.Monthly, Repeat: 12,
		Start: day("2025-01-05"), AccountID: f.checking.ID,
	})
	require.ErrorIs(t, err, injected)

	spent, err := f.store.SumExpense(f.ctx, ledger.ExpenseFilter{Members: []int64{f.ana.ID}})
	require.NoError(t, err)
	assert.True(t, spent.IsZero())
	earned, err := f.store.SumIncome(f.ctx, ledger.IncomeFilter{Members: []int64{f.ana.ID}})
	require.NoError(t, err)
	assert.True(t, earned.IsZero())
	assert.Empty(t, f.pub.Events())
}

func TestExpandRecurringIncome(t *testing.T) {
	f := newFixture(t, false)
	view := f.view(t, f.bia, core.Individual)
	salary := f.store.AddRevenueCategory(core.RevenueCategory{FamilyID: f.family.ID, Name: "Salary"})

	batch, err := f.engine.Expander.ExpandRecurringIncome(f.ctx, view, RecurringIncome{
		Description: "Salary", Amount: amt("5000"), Frequency: core.Monthly, Repeat: 6,
		Start: day("2025-01-05"), CategoryID: salary.ID, AccountID: f.checking.ID,
	})
	require.NoError(t, err)
	require.Len(t, batch.Incomes, 6)

	earned, err := f.store.SumIncome(f.ctx, ledger.IncomeFilter{Members: []int64{f.bia.ID}})
	require.NoError(t, err)
	assert.True(t, amt("30000").Equal(earned))
	assert.True(t, amt("30000").Equal(f.pub.Events()[0].Amount))
}

func TestExpandRejectsForeignEntities(t *testing.T) {
	f := newFixture(t, false)
	view := f.view(t, f.ana, core.Individual)
	other := f.store.AddFamily("Other")
	foreignCat := f.store.AddCategory(core.Category{FamilyID: other.ID, Name: "Theirs"})
	foreignAcct := f.store.AddAccount(core.Account{FamilyID: other.ID, Name: "Theirs"})

	_, err := f.engine.Expander.ExpandInstallments(f.ctx, view, InstallmentPlan{
		Description: "x", Total: amt("10"), Count: 2, Start: f.today,
		CategoryID: foreignCat.ID, CardID: &f.card.ID,
	})
	assert.True(t, core.IsNotFound(err))

	_, err = f.engine.Expander.ExpandRecurringExpense(f.ctx, view, RecurringExpense{
		Description: "x", Amount: amt("10"), Frequency: core.Weekly, Repeat: 2, Start: f.today,
		CategoryID: f.groceries.ID, AccountID: &foreignAcct.ID,
	})
	assert.True(t, core.IsNotFound(err))

	_, err = f.engine.Expander.ExpandRecurringIncome(f.ctx, view, RecurringIncome{
		Description: "x", Amount: amt("10"), Frequency: core.Weekly, Repeat: 2, Start: f.today,
		AccountID: foreignAcct.ID,
	})
	assert.True(t, core.IsNotFound(err))
}
