package services

import (
	"context"
	"fmt"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	topCategories = 5
	topGoals      = 3

	uncategorized = "Uncategorized"
)

// DashboardSummary is the landing-page aggregate for one view.
type DashboardSummary struct {
	View  View
	Mode  core.PeriodMode
	Today core.Date

	// BalancesAsOf is today, or the end of the window in projected mode.
	BalancesAsOf  core.Date
	Balances      []AccountBalance
	BalanceTotal  decimal.Decimal
	Month         core.MonthTotals
	Invoices      []Invoice
	CardDebt      decimal.Decimal
	TopCategories []core.CategoryAmount
	TopGoals      []core.Goal
	NetWorth      decimal.Decimal

	ShowFamilyToggle    bool
	FamilyToggleEnabled bool
}

type Dashboard struct {
	store     ledger.Store
	clock     Clock
	balances  *BalanceCalculator
	projector *Projector
}

func NewDashboard(store ledger.Store, clock Clock, projector *Projector) *Dashboard {
	return &Dashboard{
		store:     store,
		clock:     clock,
		balances:  NewBalanceCalculator(store, clock),
		projector: projector,
	}
}

// SpendingByCategory totals the month's expenses per category, largest
// first. A zero month means the current one.
func (d *Dashboard) SpendingByCategory(ctx context.Context, view View, month core.Date) ([]core.CategoryAmount, error) {
	if month.IsZero() {
		month = d.clock.Today()
	}
	return spendingByCategory(ctx, d.store, view.Members, ledger.Month(month))
}

func spendingByCategory(ctx context.Context, r ledger.Reader, members []int64, rng ledger.DateRange) ([]core.CategoryAmount, error) {
	out, err := r.SumExpenseByCategory(ctx, ledger.ExpenseFilter{Members: members, Range: rng})
	if err != nil {
		return nil, fmt.Errorf("spending by category: %w", err)
	}
	for i := range out {
		if out[i].Name == "" {
			out[i].Name = uncategorized
		}
	}
	return out, nil
}

// Summary gathers every dashboard card concurrently. All of them use the
// same member set.
func (d *Dashboard) Summary(ctx context.Context, view View, mode core.PeriodMode) (DashboardSummary, error) {
	if mode != core.Realized && mode != core.Projected {
		return DashboardSummary{}, core.ErrInvalidMode
	}
	today := d.clock.Today()
	familyID := view.FamilyID()
	sum := DashboardSummary{
		View:                view,
		Mode:                mode,
		Today:               today,
		BalancesAsOf:        today,
		ShowFamilyToggle:    view.Family != nil,
		FamilyToggleEnabled: view.Family != nil && view.Premium,
	}
	if mode == core.Projected {
		sum.BalancesAsOf = today.AddMonths(d.projector.Window())
	}

	accounts, err := d.store.ListAccounts(ctx, familyID)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list accounts: %w", err)
	}
	cards, err := d.store.ListCards(ctx, familyID)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list cards: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum.Balances, sum.BalanceTotal, err = d.balances.Balances(gctx, accounts, view.Members, sum.BalancesAsOf)
		return err
	})
	g.Go(func() error {
		var err error
		sum.Month, err = d.monthTotals(gctx, view.Members, today)
		return err
	})
	sum.Invoices = make([]Invoice, len(cards))
	for i, card := range cards {
		g.Go(func() error {
			inv, err := openInvoice(gctx, d.store, card, view.Members, today)
			if err != nil {
				return err
			}
			sum.Invoices[i] = inv
			return nil
		})
	}
	g.Go(func() error {
		cats, err := spendingByCategory(gctx, d.store, view.Members, ledger.Between(today.FirstOfMonth(), today))
		if err != nil {
			return err
		}
		sum.TopCategories = cats[:min(len(cats), topCategories)]
		return nil
	})
	g.Go(func() error {
		goals, err := d.store.ListGoals(gctx, familyID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		sum.TopGoals = goals[:min(len(goals), topGoals)]
		return nil
	})
	g.Go(func() error {
		proj, err := d.projector.Project(gctx, view, mode)
		if err != nil {
			return err
		}
		if cur, ok := proj.Current(); ok {
			sum.NetWorth = cur.NetWorth
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}

	sum.CardDebt = decimal.Zero
	for _, inv := range sum.Invoices {
		sum.CardDebt = sum.CardDebt.Add(inv.Total)
	}
	return sum, nil
}

// monthTotals sums the current month from its first day through today.
func (d *Dashboard) monthTotals(ctx context.Context, members []int64, today core.Date) (core.MonthTotals, error) {
	rng := ledger.Between(today.FirstOfMonth(), today)
	totals := core.MonthTotals{Year: today.Year(), Month: today.Month()}

	var err error
	totals.Income, err = d.store.SumIncome(ctx, ledger.IncomeFilter{Members: members, Range: rng})
	if err != nil {
		return totals, fmt.Errorf("month income: %w", err)
	}
	totals.AccountSpend, err = d.store.SumExpense(ctx, ledger.ExpenseFilter{Members: members, Range: rng, Settlement: ledger.AccountSettled})
	if err != nil {
		return totals, fmt.Errorf("month account spend: %w", err)
	}
	totals.CardSpend, err = d.store.SumExpense(ctx, ledger.ExpenseFilter{Members: members, Range: rng, Settlement: ledger.CardSettled})
	if err != nil {
		return totals, fmt.Errorf("month card spend: %w", err)
	}
	totals.TotalSpend = totals.AccountSpend.Add(totals.CardSpend)
	totals.CashBalance = totals.Income.Sub(totals.AccountSpend)
	return totals, nil
}
