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

// GoalContribution is the outcome of ContributeToGoal.
type GoalContribution struct {
	Goal    core.Goal
	Expense core.Expense
}

type InvestmentContribution struct {
	Investment   core.Investment
	Contribution core.Contribution
	Expense      core.Expense
}

// ContributionService moves money from an account into a goal or an
// investment. Each contribution is mirrored by an expense on the paying
// account so balances stay derived from transactions alone.
type ContributionService struct {
	store  ledger.Store
	clock  Clock
	notify *notifier
}

func NewContributionService(store ledger.Store, clock Clock, notify *notifier) *ContributionService {
	return &ContributionService{store: store, clock: clock, notify: notify}
}

// ContributeToGoal raises the goal's current amount and records the mirror
// expense in one transaction. A zero date means today.
func (s *ContributionService) ContributeToGoal(ctx context.Context, view View, goalID, accountID int64, amount decimal.Decimal, date core.Date) (GoalContribution, error) {
	if !amount.IsPositive() {
		return GoalContribution{}, core.ErrInvalidAmount
	}
	familyID := view.FamilyID()
	goal, err := s.store.GetGoal(ctx, familyID, goalID)
	if err != nil {
		return GoalContribution{}, err
	}
	account, err := s.store.GetAccount(ctx, familyID, accountID)
	if err != nil {
		return GoalContribution{}, err
	}
	if date.IsZero() {
		date = s.clock.Today()
	}

	var out GoalContribution
	err = s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		if err := tx.AddToGoal(ctx, goal.ID, amount); err != nil {
			return fmt.Errorf("add to goal %d: %w", goal.ID, err)
		}
		expense, err := insertMirrorExpense(ctx, tx, view, core.GoalContributionCategory,
			"Contribution to goal: "+goal.Name, account.ID, amount, date)
		if err != nil {
			return err
		}
		goal.Current = goal.Current.Add(amount)
		out = GoalContribution{Goal: goal, Expense: expense}
		return nil
	})
	if err != nil {
		return GoalContribution{}, err
	}

	slog.InfoContext(ctx, "Goal contribution recorded",
		"goal_id", goal.ID,
		"account_id", account.ID,
		"amount", amount.StringFixed(2),
		"progress", goal.Progress().StringFixed(2))

	ev := amqp.NewLedgerEvent(amqp.EventGoalContributed, familyID, view.Requester.ID)
	ev.TargetID = goal.ID
	ev.RowIDs = []int64{out.Expense.ID}
	ev.Amount = amount
	s.notify.committed(ctx, ev)
	return out, nil
}

// ContributeToInvestment records the contribution row, raises the
// investment's current value and records the mirror expense in one
// transaction. A zero date means today.
func (s *ContributionService) ContributeToInvestment(ctx context.Context, view View, investmentID, accountID int64, amount decimal.Decimal, date core.Date) (InvestmentContribution, error) {
	if !amount.IsPositive() {
		return InvestmentContribution{}, core.ErrInvalidAmount
	}
	familyID := view.FamilyID()
	inv, err := s.store.GetInvestment(ctx, familyID, investmentID)
	if err != nil {
		return InvestmentContribution{}, err
	}
	account, err := s.store.GetAccount(ctx, familyID, accountID)
	if err != nil {
		return InvestmentContribution{}, err
	}
	if date.IsZero() {
		date = s.clock.Today()
	}

	var out InvestmentContribution
	err = s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		c := core.Contribution{
			InvestmentID: inv.ID,
			MemberID:     view.Requester.ID,
			AccountID:    account.ID,
			Amount:       amount,
			Date:         date,
		}
		id, err := tx.InsertContribution(ctx, c)
		if err != nil {
			return fmt.Errorf("insert contribution: %w", err)
		}
		c.ID = id
		if err := tx.AddToInvestment(ctx, inv.ID, amount); err != nil {
			return fmt.Errorf("add to investment %d: %w", inv.ID, err)
		}
		expense, err := insertMirrorExpense(ctx, tx, view, core.InvestmentCategory,
			"Contribution to investment: "+inv.Name, account.ID, amount, date)
		if err != nil {
			return err
		}
		inv.CurrentValue = inv.CurrentValue.Add(amount)
		out = InvestmentContribution{Investment: inv, Contribution: c, Expense: expense}
		return nil
	})
	if err != nil {
		return InvestmentContribution{}, err
	}

	slog.InfoContext(ctx, "Investment contribution recorded",
		"investment_id", inv.ID,
		"account_id", account.ID,
		"amount", amount.StringFixed(2))

	ev := amqp.NewLedgerEvent(amqp.EventInvestmentContributed, familyID, view.Requester.ID)
	ev.TargetID = inv.ID
	ev.RowIDs = []int64{out.Expense.ID}
	ev.Amount = amount
	s.notify.committed(ctx, ev)
	return out, nil
}

func insertMirrorExpense(ctx context.Context, tx ledger.Tx, view View, categoryName, description string,
	accountID int64, amount decimal.Decimal, date core.Date) (core.Expense, error) {
	category, err := tx.GetOrCreateCategory(ctx, view.FamilyID(), categoryName)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		MemberID:    view.Requester.ID,
		Description: description,
		Amount:      amount,
		Date:        date,
		CategoryID:  category.ID,
		AccountID:   &accountID,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	ids, err := tx.InsertExpenses(ctx, []core.Expense{e})
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert mirror expense: %w", err)
	}
	e.ID = ids[0]
	return e, nil
}
