package services

import (
	"context"
	"fmt"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/shopspring/decimal"
)

// macroShares is the 50/30/20 split of monthly income.
var macroShares = []struct {
	Macro core.MacroClass
	Share decimal.Decimal
}{
	{core.Need, decimal.New(5, -1)},
	{core.Want, decimal.New(3, -1)},
	{core.GoalMacro, decimal.New(2, -1)},
}

type CategoryBudget struct {
	Category  core.Category
	Budget    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Progress  decimal.Decimal
}

type MacroBudget struct {
	Macro     core.MacroClass
	Target    decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Progress  decimal.Decimal
}

type BudgetReport struct {
	Month      core.Date // first day of the month
	Income     decimal.Decimal
	Categories []CategoryBudget
	Macros     []MacroBudget
}

type BudgetEvaluator struct {
	store ledger.Store
	clock Clock
}

func NewBudgetEvaluator(store ledger.Store, clock Clock) *BudgetEvaluator {
	return &BudgetEvaluator{store: store, clock: clock}
}

// Report compares the month's spend with the category budgets and with the
// 50/30/20 split of the month's income. A zero month means the current one.
func (b *BudgetEvaluator) Report(ctx context.Context, view View, month core.Date) (BudgetReport, error) {
	if month.IsZero() {
		month = b.clock.Today()
	}
	rng := ledger.Month(month)

	categories, err := b.store.ListCategories(ctx, view.FamilyID())
	if err != nil {
		return BudgetReport{}, fmt.Errorf("list categories: %w", err)
	}
	totals, err := b.store.SumExpenseByCategory(ctx, ledger.ExpenseFilter{Members: view.Members, Range: rng})
	if err != nil {
		return BudgetReport{}, fmt.Errorf("sum spend by category: %w", err)
	}
	income, err := b.store.SumIncome(ctx, ledger.IncomeFilter{Members: view.Members, Range: rng})
	if err != nil {
		return BudgetReport{}, fmt.Errorf("sum income: %w", err)
	}

	spent := make(map[int64]decimal.Decimal, len(totals))
	for _, t := range totals {
		spent[t.CategoryID] = t.Amount
	}
	byID := make(map[int64]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	report := BudgetReport{Month: month.FirstOfMonth(), Income: income}
	for _, c := range categories {
		if !c.MonthlyBudget.IsPositive() {
			continue
		}
		s := spent[c.ID]
		report.Categories = append(report.Categories, CategoryBudget{
			Category:  c,
			Budget:    c.MonthlyBudget,
			Spent:     s,
			Remaining: c.MonthlyBudget.Sub(s),
			Progress:  core.Percent(s, c.MonthlyBudget),
		})
	}

	macroSpent := make(map[core.MacroClass]decimal.Decimal)
	for id, amount := range spent {
		c, ok := byID[id]
		if !ok {
			continue
		}
		var parent *core.Category
		if c.ParentID != nil {
			if p, ok := byID[*c.ParentID]; ok {
				parent = &p
			}
		}
		m := c.EffectiveMacro(parent)
		macroSpent[m] = macroSpent[m].Add(amount)
	}
	for _, ms := range macroShares {
		target := income.Mul(ms.Share).Round(2)
		s := macroSpent[ms.Macro]
		report.Macros = append(report.Macros, MacroBudget{
			Macro:     ms.Macro,
			Target:    target,
			Spent:     s,
			Remaining: target.Sub(s),
			Progress:  core.Percent(s, target),
		})
	}
	return report, nil
}
