package services

import (
	"testing"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalance(t *testing.T) {
	f := newFixture(t, true)
	members := []int64{f.ana.ID, f.bia.ID}
	f.income(f.ana, "2500", "2025-04-05")
	f.accountExpense(f.ana, "100.10", "2025-04-05")
	f.accountExpense(f.bia, "49.90", "2025-04-15")
	f.accountExpense(f.bia, "300", "2025-04-16") // after today
	f.cardExpense(f.ana, "999", "2025-04-01")    // card, not account

	got, err := f.engine.Balances.Balance(f.ctx, f.checking, members, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, "3350.00", got.StringFixed(2))

	future, err := f.engine.Balances.Balance(f.ctx, f.checking, members, day("2025-04-30"))
	require.NoError(t, err)
	assert.Equal(t, "3050.00", future.StringFixed(2))

	before, err := f.engine.Balances.Balance(f.ctx, f.checking, members, day("2025-04-04"))
	require.NoError(t, err)
	assert.True(t, f.checking.InitialBalance.Equal(before))
}

func TestBalanceUnknownMembers(t *testing.T) {
	f := newFixture(t, false)
	f.income(f.ana, "2500", "2025-04-05")
	got, err := f.engine.Balances.Balance(f.ctx, f.checking, []int64{9999}, f.today)
	require.NoError(t, err)
	assert.True(t, f.checking.InitialBalance.Equal(got))
}

// Moving asOf from d1 to d2 changes the balance by exactly the incomes minus
// expenses dated in (d1, d2].
func TestBalanceRegression(t *testing.T) {
	f := newFixture(t, true)
	members := []int64{f.ana.ID, f.bia.ID}
	f.income(f.ana, "1000", "2025-01-10")
	f.accountExpense(f.bia, "12.34", "2025-02-01")
	f.income(f.bia, "300.50", "2025-02-28")
	f.accountExpense(f.ana, "800", "2025-03-15")
	f.accountExpense(f.ana, "0.01", "2025-03-31")

	dates := []string{"2025-01-01", "2025-01-10", "2025-02-15", "2025-03-01", "2025-03-31", "2025-06-30"}
	for i := 0; i < len(dates); i++ {
		for j := i; j < len(dates); j++ {
			d1, d2 := day(dates[i]), day(dates[j])
			b1, err := f.engine.Balances.Balance(f.ctx, f.checking, members, d1)
			require.NoError(t, err)
			b2, err := f.engine.Balances.Balance(f.ctx, f.checking, members, d2)
			require.NoError(t, err)

			window := ledger.Between(d1.AddDays(1), d2)
			in, err := f.store.SumIncome(f.ctx, ledger.IncomeFilter{Members: members, AccountID: &f.checking.ID, Range: window})
			require.NoError(t, err)
			out, err := f.store.SumExpense(f.ctx, ledger.ExpenseFilter{Members: members, AccountID: &f.checking.ID, Range: window})
			require.NoError(t, err)
			assert.True(t, b2.Equal(b1.Sub(out).Add(in)), "%s -> %s", d1, d2)
		}
	}
}

func TestBalancesConcurrent(t *testing.T) {
	f := newFixture(t, false)
	f.store.AddAccount(core.Account{FamilyID: f.family.ID, Name: "Savings", Type: core.Savings, InitialBalance: amt("250.25")})
	f.income(f.ana, "100", "2025-04-01")

	accounts, err := f.store.ListAccounts(f.ctx, f.family.ID)
	require.NoError(t, err)
	got, total, err := f.engine.Balances.Balances(f.ctx, accounts, []int64{f.ana.ID}, core.Date{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i, ab := range got {
		assert.Equal(t, accounts[i].ID, ab.Account.ID)
		assert.Equal(t, f.today, ab.AsOf)
	}
	assert.Equal(t, "1350.25", total.StringFixed(2))
}
