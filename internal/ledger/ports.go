// Package ledger defines the storage boundary of the aggregation engine.
//
// Every query is filtered by an explicit member-id set and date bounds; the
// engine never filters transactions by family id. Implementations live in
// internal/storage (SQLite) and internal/storage/memory.
package ledger

import (
	"context"

	"familyledger/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ports for outbound adapters.
type (
	// Reader holds the aggregate query shapes. Sums over no rows are zero,
	// never an error.
	Reader interface {
		SumIncome(ctx context.Context, f IncomeFilter) (decimal.Decimal, error)
		SumExpense(ctx context.Context, f ExpenseFilter) (decimal.Decimal, error)
		// ListExpenses returns matching expenses ordered by date, then id.
		ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
		// SumExpenseByCategory returns per-category totals, largest first.
		SumExpenseByCategory(ctx context.Context, f ExpenseFilter) ([]core.CategoryAmount, error)
		SumContributions(ctx context.Context, f ContributionFilter) (decimal.Decimal, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		// CountGroup counts expense and income rows carrying the group id as
		// purchase or recurrence group.
		CountGroup(ctx context.Context, groupID uuid.UUID) (int, error)
	}

	// Directory resolves family-scoped configuration entities. Lookups that
	// take a family id return a *core.NotFoundError when the entity belongs to
	// another family.
	Directory interface {
		GetMember(ctx context.Context, id int64) (core.Member, error)
		GetFamily(ctx context.Context, id int64) (core.Family, error)
		// ListFamilyMembers returns members ordered by id.
		ListFamilyMembers(ctx context.Context, familyID int64) ([]core.Member, error)
		// GetSubscription returns the free plan when the family has none.
		GetSubscription(ctx context.Context, familyID int64) (core.Subscription, error)
		ListAccounts(ctx context.Context, familyID int64) ([]core.Account, error)
		GetAccount(ctx context.Context, familyID, id int64) (core.Account, error)
		ListCards(ctx context.Context, familyID int64) ([]core.Card, error)
		GetCard(ctx context.Context, familyID, id int64) (core.Card, error)
		ListCategories(ctx context.Context, familyID int64) ([]core.Category, error)
		GetCategory(ctx context.Context, familyID, id int64) (core.Category, error)
		GetRevenueCategory(ctx context.Context, familyID, id int64) (core.RevenueCategory, error)
		ListInvestments(ctx context.Context, familyID int64) ([]core.Investment, error)
		GetInvestment(ctx context.Context, familyID, id int64) (core.Investment, error)
		GetGoal(ctx context.Context, familyID, id int64) (core.Goal, error)
		// ListGoals returns goals with the largest current amount first.
		ListGoals(ctx context.Context, familyID int64) ([]core.Goal, error)
	}

	// Tx is the write side, only reachable inside Store.WithinTx.
	Tx interface {
		Reader
		// GetOrCreateCategory finds a family category by case-insensitive
		// name, creating it when missing.
		GetOrCreateCategory(ctx context.Context, familyID int64, name string) (core.Category, error)
		InsertExpenses(ctx context.Context, expenses []core.Expense) ([]int64, error)
		InsertIncomes(ctx context.Context, incomes []core.Income) ([]int64, error)
		// MarkInvoicePaid flags the expenses as paid and returns how many rows
		// changed.
		MarkInvoicePaid(ctx context.Context, ids []int64) (int64, error)
		AddToGoal(ctx context.Context, goalID int64, amount decimal.Decimal) error
		InsertContribution(ctx context.Context, c core.Contribution) (int64, error)
		AddToInvestment(ctx context.Context, investmentID int64, amount decimal.Decimal) error
	}

	Store interface {
		Reader
		Directory
		// WithinTx runs fn in a single storage transaction. Any error returned
		// by fn rolls back every write made through tx.
		WithinTx(ctx context.Context, fn func(tx Tx) error) error
	}
)
