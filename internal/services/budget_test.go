package services

import (
	"testing"

	"familyledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCategory(t *testing.T, r BudgetReport, name string) CategoryBudget {
	t.Helper()
	for _, c := range r.Categories {
		if c.Category.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not in report", name)
	return CategoryBudget{}
}

func findMacro(t *testing.T, r BudgetReport, m core.MacroClass) MacroBudget {
	t.Helper()
	for _, mb := range r.Macros {
		if mb.Macro == m {
			return mb
		}
	}
	t.Fatalf("macro %s not in report", m)
	return MacroBudget{}
}

func TestBudgetReport(t *testing.T) {
	f := newFixture(t, true)
	view := f.view(t, f.ana, core.Combined)

	rent := f.store.AddCategory(core.Category{FamilyID: f.family.ID, Name: "Rent", Macro: core.Need, MonthlyBudget: amt("1000")})
	fun := f.store.AddCategory(core.Category{FamilyID: f.family.ID, Name: "Fun", Macro: core.Want, MonthlyBudget: amt("200")})
	movies := f.store.AddCategory(core.Category{FamilyID: f.family.ID, Name: "Movies", ParentID: &fun.ID})
	savings := f.store.AddCategory(core.Category{FamilyID: f.family.ID, Name: "Savings", Macro: core.GoalMacro})

	add := func(m core.Member, cat core.Category, amount, date string) {
		f.store.AddExpense(core.Expense{MemberID: m.ID, Description: cat.Name, Amount: amt(amount), Date: day(date), CategoryID: cat.ID, AccountID: &f.checking.ID})
	}
	f.income(f.ana, "4000", "2025-04-01")
	f.income(f.bia, "1000", "2025-04-02")
	f.income(f.ana, "7777", "2025-03-31")
	add(f.ana, rent, "1200", "2025-04-05")
	add(f.bia, fun, "50", "2025-04-06")
	add(f.bia, movies, "30", "2025-04-07")
	add(f.ana, savings, "500", "2025-04-08")
	add(f.ana, fun, "999", "2025-03-20")
	f.cardExpense(f.bia, "400", "2025-04-30")

	r, err := f.engine.Budget.Report(f.ctx, view, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", r.Month.String())
	assert.Equal(t, "5000.00", r.Income.StringFixed(2))
	require.Len(t, r.Categories, 2, "only categories with a budget")

	rentB := findCategory(t, r, "Rent")
	assert.Equal(t, "1200.00", rentB.Spent.StringFixed(2))
	assert.Equal(t, "-200.00", rentB.Remaining.StringFixed(2))
	assert.Equal(t, "100.00", rentB.Progress.StringFixed(2), "progress is capped")

	funB := findCategory(t, r, "Fun")
	assert.Equal(t, "50.00", funB.Spent.StringFixed(2))
	assert.Equal(t, "150.00", funB.Remaining.StringFixed(2))
	assert.Equal(t, "25.00", funB.Progress.StringFixed(2))

	need := findMacro(t, r, core.Need)
	assert.Equal(t, "2500.00", need.Target.StringFixed(2))
	assert.Equal(t, "1600.00", need.Spent.StringFixed(2))
	assert.Equal(t, "64.00", need.Progress.StringFixed(2))

	want := findMacro(t, r, core.Want)
	assert.Equal(t, "1500.00", want.Target.StringFixed(2))
	assert.Equal(t, "80.00", want.Spent.StringFixed(2), "a child inherits its parent's macro")
	assert.Equal(t, "5.33", want.Progress.StringFixed(2))

	goal := findMacro(t, r, core.GoalMacro)
	assert.Equal(t, "1000.00", goal.Target.StringFixed(2))
	assert.Equal(t, "50.00", goal.Progress.StringFixed(2))

	for _, c := range r.Categories {
		assert.False(t, c.Progress.GreaterThan(amt("100")))
	}
	for _, m := range r.Macros {
		assert.False(t, m.Progress.GreaterThan(amt("100")))
	}
}

func TestBudgetReportWithoutIncome(t *testing.T) {
	f := newFixture(t, false)
	view := f.view(t, f.ana, core.Individual)
	f.cardExpense(f.ana, "400", "2025-04-03")

	r, err := f.engine.Budget.Report(f.ctx, view, core.Date{})
	require.NoError(t, err)
	assert.Empty(t, r.Categories)
	need := findMacro(t, r, core.Need)
	assert.True(t, need.Target.IsZero())
	assert.True(t, need.Progress.IsZero())
	assert.Equal(t, "-400.00", need.Remaining.StringFixed(2))
}

func TestBudgetReportPastMonth(t *testing.T) {
	f := newFixture(t, false)
	view := f.view(t, f.ana, core.Individual)
	f.income(f.ana, "1000", "2025-02-10")
	f.cardExpense(f.ana, "100", "2025-02-11")

	r, err := f.engine.Budget.Report(f.ctx, view, day("2025-02-20"))
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", r.Month.String())
	assert.Equal(t, "100.00", findMacro(t, r, core.Need).Spent.StringFixed(2))
}
