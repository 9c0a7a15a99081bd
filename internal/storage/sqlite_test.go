package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *SQLiteStore
	family   core.Family
	member   core.Member
	account  core.Account
	card     core.Card
	category core.Category
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	store, err := Open(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fam, err := store.CreateFamily(ctx, "Silva")
	require.NoError(t, err)
	m, err := store.CreateMember(ctx, "ana", fam.ID)
	require.NoError(t, err)
	acct, err := store.CreateAccount(ctx, core.Account{FamilyID: fam.ID, Name: "Checking", InitialBalance: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	card, err := store.CreateCard(ctx, core.Card{FamilyID: fam.ID, Name: "Visa", Limit: decimal.NewFromInt(5000), ClosingDay: 25, DueDay: 5})
	require.NoError(t, err)
	cat, err := store.CreateCategory(ctx, core.Category{FamilyID: fam.ID, Name: "Groceries", Macro: core.Need, MonthlyBudget: decimal.NewFromInt(800)})
	require.NoError(t, err)

	return fixture{store: store, family: fam, member: m, account: acct, card: card, category: cat}
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOpenRunsMigrationsTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestInsertAndAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	members := []int64{f.member.ID}

	err := f.store.WithinTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.InsertIncomes(ctx, []core.Income{
			{MemberID: f.member.ID, Description: "Salary", Amount: amt("3000.00"), Date: core.NewDate(2025, 3, 5), AccountID: f.account.ID},
		}); err != nil {
			return err
		}
		_, err := tx.InsertExpenses(ctx, []core.Expense{
			{MemberID: f.member.ID, Description: "Market", Amount: amt("120.50"), Date: core.NewDate(2025, 3, 10), CategoryID: f.category.ID, AccountID: &f.account.ID},
			{MemberID: f.member.ID, Description: "Shoes", Amount: amt("200.00"), Date: core.NewDate(2025, 3, 12), CategoryID: f.category.ID, CardID: &f.card.ID},
			{MemberID: f.member.ID, Description: "Later", Amount: amt("10.00"), Date: core.NewDate(2025, 4, 1), CategoryID: f.category.ID, AccountID: &f.account.ID},
		})
		return err
	})
	require.NoError(t, err)

	income, err := f.store.SumIncome(ctx, ledger.IncomeFilter{Members: members, AccountID: &f.account.ID, Range: ledger.UpTo(core.NewDate(2025, 3, 31))})
	require.NoError(t, err)
	assert.Equal(t, "3000.00", core.FormatAmount(income))

	spent, err := f.store.SumExpense(ctx, ledger.ExpenseFilter{Members: members, AccountID: &f.account.ID, Range: ledger.UpTo(core.NewDate(2025, 3, 31))})
	require.NoError(t, err)
	assert.Equal(t, "120.50", core.FormatAmount(spent))

	onCard, err := f.store.ListExpenses(ctx, ledger.ExpenseFilter{Members: members, Settlement: ledger.CardSettled, Paid: ledger.Unpaid()})
	require.NoError(t, err)
	require.Len(t, onCard, 1)
	assert.Equal(t, "Shoes", onCard[0].Description)
	assert.Equal(t, core.NewDate(2025, 3, 12), onCard[0].Date)
	require.NotNil(t, onCard[0].CardID)
	assert.Nil(t, onCard[0].AccountID)

	byCat, err := f.store.SumExpenseByCategory(ctx, ledger.ExpenseFilter{Members: members, Range: ledger.Month(core.NewDate(2025, 3, 1))})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "Groceries", byCat[0].Name)
	assert.Equal(t, "320.50", core.FormatAmount(byCat[0].Amount))

	none, err := f.store.SumExpense(ctx, ledger.ExpenseFilter{})
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestWithinTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.WithinTx(ctx, func(tx ledger.Tx) error {
		if _, err := tx.InsertExpenses(ctx, []core.Expense{
			{MemberID: f.member.ID, Description: "x", Amount: amt("1"), Date: core.NewDate(2025, 1, 1), CategoryID: f.category.ID, AccountID: &f.account.ID},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	total, err := f.store.SumExpense(ctx, ledger.ExpenseFilter{Members: []int64{f.member.ID}})
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestMarkInvoicePaidCountsChangedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	require.NoError(t, f.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		ids, err = tx.InsertExpenses(ctx, []core.Expense{
			{MemberID: f.member.ID, Description: "a", Amount: amt("40"), Date: core.NewDate(2025, 3, 1), CategoryID: f.category.ID, CardID: &f.card.ID},
			{MemberID: f.member.ID, Description: "b", Amount: amt("60"), Date: core.NewDate(2025, 3, 2), CategoryID: f.category.ID, CardID: &f.card.ID},
		})
		return err
	}))

	var first, second int64
	require.NoError(t, f.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		if first, err = tx.MarkInvoicePaid(ctx, ids); err != nil {
			return err
		}
		second, err = tx.MarkInvoicePaid(ctx, ids)
		return err
	}))
	assert.Equal(t, int64(2), first)
	assert.Zero(t, second)

	e, err := f.store.GetExpense(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, e.InvoicePaid)
}

func TestGetOrCreateCategoryCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var a, b core.Category
	require.NoError(t, f.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		if a, err = tx.GetOrCreateCategory(ctx, f.family.ID, core.InvoicePaymentCategory); err != nil {
			return err
		}
		b, err = tx.GetOrCreateCategory(ctx, f.family.ID, "INVOICE PAYMENT")
		return err
	}))
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, core.Unclassified, a.Macro)

	cats, err := f.store.ListCategories(ctx, f.family.ID)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestDirectoryLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.store.CreateFamily(ctx, "Other")
	require.NoError(t, err)
	_, err = f.store.GetAccount(ctx, other.ID, f.account.ID)
	assert.True(t, core.IsNotFound(err))

	sub, err := f.store.GetSubscription(ctx, f.family.ID)
	require.NoError(t, err)
	assert.Equal(t, "Free", sub.Plan.Name)
	assert.False(t, sub.IsPremium())

	require.NoError(t, f.store.SetSubscription(ctx, core.Subscription{FamilyID: f.family.ID, Plan: core.Plan{Name: "Premium", MonthlyPrice: amt("19.90")}, Status: core.SubscriptionActive}))
	sub, err = f.store.GetSubscription(ctx, f.family.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsPremium())

	card, err := f.store.GetCard(ctx, f.family.ID, f.card.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, card.ClosingDay)
	assert.Equal(t, "5000.00", core.FormatAmount(card.Limit))

	fam, err := f.store.GetFamily(ctx, f.family.ID)
	require.NoError(t, err)
	assert.Equal(t, f.family.InviteCode, fam.InviteCode)

	members, err := f.store.ListFamilyMembers(ctx, f.family.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "ana", members[0].Username)
}

func TestGoalAndInvestmentUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	goal, err := f.store.CreateGoal(ctx, core.Goal{FamilyID: f.family.ID, Name: "Trip", Target: amt("1000"), CreatedOn: core.NewDate(2025, 1, 1)})
	require.NoError(t, err)
	inv, err := f.store.CreateInvestment(ctx, core.Investment{FamilyID: f.family.ID, Name: "Index fund", CurrentValue: amt("500"), CreatedOn: core.NewDate(2025, 1, 1)})
	require.NoError(t, err)

	require.NoError(t, f.store.WithinTx(ctx, func(tx ledger.Tx) error {
		if err := tx.AddToGoal(ctx, goal.ID, amt("250")); err != nil {
			return err
		}
		if _, err := tx.InsertContribution(ctx, core.Contribution{InvestmentID: inv.ID, MemberID: f.member.ID, AccountID: f.account.ID, Amount: amt("100"), Date: core.NewDate(2025, 2, 1)}); err != nil {
			return err
		}
		return tx.AddToInvestment(ctx, inv.ID, amt("100"))
	}))

	g, err := f.store.GetGoal(ctx, f.family.ID, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "250.00", core.FormatAmount(g.Current))
	assert.Nil(t, g.Deadline)

	got, err := f.store.GetInvestment(ctx, f.family.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "600.00", core.FormatAmount(got.CurrentValue))

	total, err := f.store.SumContributions(ctx, ledger.ContributionFilter{Members: []int64{f.member.ID}, Range: ledger.UpTo(core.NewDate(2025, 2, 1))})
	require.NoError(t, err)
	assert.Equal(t, "100.00", core.FormatAmount(total))

	err = f.store.WithinTx(ctx, func(tx ledger.Tx) error { return tx.AddToGoal(ctx, 9999, amt("1")) })
	assert.True(t, core.IsNotFound(err))
}

func TestCountGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := uuid.New()

	require.NoError(t, f.store.WithinTx(ctx, func(tx ledger.Tx) error {
		_, err := tx.InsertExpenses(ctx, []core.Expense{
			{MemberID: f.member.ID, Description: "TV 1/2", Amount: amt("50"), Date: core.NewDate(2025, 1, 10), CategoryID: f.category.ID, CardID: &f.card.ID,
				IsInstallment: true, InstallmentIndex: 1, InstallmentCount: 2, PurchaseGroupID: uuid.NullUUID{UUID: group, Valid: true}},
			{MemberID: f.member.ID, Description: "TV 2/2", Amount: amt("50"), Date: core.NewDate(2025, 2, 10), CategoryID: f.category.ID, CardID: &f.card.ID,
				IsInstallment: true, InstallmentIndex: 2, InstallmentCount: 2, PurchaseGroupID: uuid.NullUUID{UUID: group, Valid: true}},
		})
		return err
	}))

	n, err := f.store.CountGroup(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := f.store.ListExpenses(ctx, ledger.ExpenseFilter{Members: []int64{f.member.ID}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, group, list[1].PurchaseGroupID.UUID)
	assert.Equal(t, 2, list[1].InstallmentIndex)
}

func TestLoadSeedIsRepeatable(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	seed := ledger.Seed{
		Families: []ledger.SeedFamily{{ID: 1, Name: "Silva", Plan: &ledger.SeedPlan{Name: "Premium", MonthlyPrice: amt("19.90"), Status: "active"}}},
		Members:  []ledger.SeedMember{{ID: 1, Username: "ana", FamilyID: 1}, {ID: 2, Username: "solo"}},
		Accounts: []ledger.SeedAccount{{ID: 1, FamilyID: 1, Name: "Checking", Type: "checking", InitialBalance: amt("100")}},
		Cards:    []ledger.SeedCard{{ID: 1, FamilyID: 1, Name: "Visa", ClosingDay: 31, DueDay: 10}},
	}
	require.NoError(t, store.Load(ctx, seed))
	require.NoError(t, store.Load(ctx, seed))

	sub, err := store.GetSubscription(ctx, 1)
	require.NoError(t, err)
	assert.True(t, sub.IsPremium())

	solo, err := store.GetMember(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, solo.FamilyID)

	seed.Cards[0].ClosingDay = 0
	err = store.Load(ctx, seed)
	assert.True(t, core.IsConfiguration(err))
}
