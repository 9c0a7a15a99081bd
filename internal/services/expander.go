package services

import (
	"context"
	"fmt"
	"log/slog"

	"familyledger/internal/amqp"
	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentPlan describes one purchase split into Count monthly parts.
type InstallmentPlan struct {
	Description string
	Total       decimal.Decimal
	Count       int
	Start       core.Date
	CategoryID  int64
	AccountID   *int64
	CardID      *int64
}

// RecurringExpense describes Repeat occurrences of the same expense.
type RecurringExpense struct {
	Description string
	Amount      decimal.Decimal
	Frequency   core.Frequency
	Repeat      int
	Start       core.Date
	CategoryID  int64
	AccountID   *int64
	CardID      *int64
}

// RecurringIncome describes Repeat occurrences of the same income.
// CategoryID 0 leaves the rows uncategorized.
type RecurringIncome struct {
	Description string
	Amount      decimal.Decimal
	Frequency   core.Frequency
	Repeat      int
	Start       core.Date
	CategoryID  int64
	AccountID   int64
}

// Batch is a persisted expansion.
type Batch struct {
	GroupID  uuid.UUID
	Expenses []core.Expense
	Incomes  []core.Income
}

func (b Batch) Size() int {
	return len(b.Expenses) + len(b.Incomes)
}

func validCount(n int) error {
	if n < 1 || n > core.MaxBatchSize {
		return core.ErrInvalidCount
	}
	return nil
}

// BuildInstallments expands p into dated rows sharing group. Each part is
// the total divided by Count truncated to the cent; the last part takes the
// remainder so the parts add up to the total exactly.
func BuildInstallments(memberID int64, p InstallmentPlan, group uuid.UUID) ([]core.Expense, error) {
	if err := validCount(p.Count); err != nil {
		return nil, err
	}
	if !p.Total.IsPositive() {
		return nil, core.ErrInvalidAmount
	}
	parts := core.SplitEvenly(p.Total, p.Count)
	rows := make([]core.Expense, p.Count)
	for i := range rows {
		rows[i] = core.Expense{
			MemberID:         memberID,
			Description:      fmt.Sprintf("%s (%d/%d)", p.Description, i+1, p.Count),
			Amount:           parts[i],
			Date:             p.Start.AddMonths(i),
			CategoryID:       p.CategoryID,
			AccountID:        p.AccountID,
			CardID:           p.CardID,
			IsInstallment:    true,
			InstallmentIndex: i + 1,
			InstallmentCount: p.Count,
			PurchaseGroupID:  uuid.NullUUID{UUID: group, Valid: true},
		}
		if err := rows[i].Validate(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func BuildRecurringExpenses(memberID int64, p RecurringExpense, group uuid.UUID) ([]core.Expense, error) {
	if err := validCount(p.Repeat); err != nil {
		return nil, err
	}
	dates, err := Occurrences(p.Frequency, p.Start, p.Repeat)
	if err != nil {
		return nil, err
	}
	rows := make([]core.Expense, len(dates))
	for i, d := range dates {
		rows[i] = core.Expense{
			MemberID:          memberID,
			Description:       p.Description,
			Amount:            p.Amount,
			Date:              d,
			CategoryID:        p.CategoryID,
			AccountID:         p.AccountID,
			CardID:            p.CardID,
			IsRecurring:       true,
			RecurrenceGroupID: uuid.NullUUID{UUID: group, Valid: true},
		}
		if err := rows[i].Validate(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func BuildRecurringIncomes(memberID int64, p RecurringIncome, group uuid.UUID) ([]core.Income, error) {
	if err := validCount(p.Repeat); err != nil {
		return nil, err
	}
	dates, err := Occurrences(p.Frequency, p.Start, p.Repeat)
	if err != nil {
		return nil, err
	}
	rows := make([]core.Income, len(dates))
	for i, d := range dates {
		rows[i] = core.Income{
			MemberID:          memberID,
			Description:       p.Description,
			Amount:            p.Amount,
			Date:              d,
			CategoryID:        p.CategoryID,
			AccountID:         p.AccountID,
			IsRecurring:       true,
			RecurrenceGroupID: uuid.NullUUID{UUID: group, Valid: true},
		}
		if err := rows[i].Validate(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Expander persists installment and recurrence batches. A batch is written
// in one transaction: every row or none.
type Expander struct {
	store  ledger.Store
	notify *notifier
	newID  func() uuid.UUID
}

func NewExpander(store ledger.Store, notify *notifier) *Expander {
	return &Expander{store: store, notify: notify, newID: uuid.New}
}

// checkExpenseTargets confirms the category and the settlement target belong
// to the requester's family.
func (x *Expander) checkExpenseTargets(ctx context.Context, familyID, categoryID int64, accountID, cardID *int64) error {
	if _, err := x.store.GetCategory(ctx, familyID, categoryID); err != nil {
		return err
	}
	if accountID != nil {
		if _, err := x.store.GetAccount(ctx, familyID, *accountID); err != nil {
			return err
		}
	}
	if cardID != nil {
		card, err := x.store.GetCard(ctx, familyID, *cardID)
		if err != nil {
			return err
		}
		if err := card.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (x *Expander) ExpandInstallments(ctx context.Context, view View, p InstallmentPlan) (Batch, error) {
	group := x.newID()
	rows, err := BuildInstallments(view.Requester.ID, p, group)
	if err != nil {
		return Batch{}, err
	}
	if err := x.checkExpenseTargets(ctx, view.FamilyID(), p.CategoryID, p.AccountID, p.CardID); err != nil {
		return Batch{}, err
	}
	return x.persistExpenses(ctx, view, group, rows)
}

func (x *Expander) ExpandRecurringExpense(ctx context.Context, view View, p RecurringExpense) (Batch, error) {
	group := x.newID()
	rows, err := BuildRecurringExpenses(view.Requester.ID, p, group)
	if err != nil {
		return Batch{}, err
	}
	if err := x.checkExpenseTargets(ctx, view.FamilyID(), p.CategoryID, p.AccountID, p.CardID); err != nil {
		return Batch{}, err
	}
	return x.persistExpenses(ctx, view, group, rows)
}

func (x *Expander) ExpandRecurringIncome(ctx context.Context, view View, p RecurringIncome) (Batch, error) {
	group := x.newID()
	rows, err := BuildRecurringIncomes(view.Requester.ID, p, group)
	if err != nil {
		return Batch{}, err
	}
	familyID := view.FamilyID()
	if _, err := x.store.GetAccount(ctx, familyID, p.AccountID); err != nil {
		return Batch{}, err
	}
	if p.CategoryID != 0 {
		if _, err := x.store.GetRevenueCategory(ctx, familyID, p.CategoryID); err != nil {
			return Batch{}, err
		}
	}

	err = x.store.WithinTx(ctx, func(tx ledger.Tx) error {
		ids, err := tx.InsertIncomes(ctx, rows)
		if err != nil {
			return fmt.Errorf("insert recurring incomes: %w", err)
		}
		for i := range rows {
			rows[i].ID = ids[i]
		}
		return verifyGroup(ctx, tx, group, len(rows))
	})
	if err != nil {
		return Batch{}, err
	}

	batch := Batch{GroupID: group, Incomes: rows}
	x.committed(ctx, view, batch, p.Amount.Mul(decimal.NewFromInt(int64(len(rows)))))
	return batch, nil
}

func (x *Expander) persistExpenses(ctx context.Context, view View, group uuid.UUID, rows []core.Expense) (Batch, error) {
	err := x.store.WithinTx(ctx, func(tx ledger.Tx) error {
		ids, err := tx.InsertExpenses(ctx, rows)
		if err != nil {
			return fmt.Errorf("insert expense batch: %w", err)
		}
		for i := range rows {
			rows[i].ID = ids[i]
		}
		return verifyGroup(ctx, tx, group, len(rows))
	})
	if err != nil {
		return Batch{}, err
	}

	total := decimal.Zero
	for _, e := range rows {
		total = total.Add(e.Amount)
	}
	batch := Batch{GroupID: group, Expenses: rows}
	x.committed(ctx, view, batch, total)
	return batch, nil
}

// verifyGroup re-counts the group inside the transaction so a short write
// rolls back instead of committing a partial batch.
func verifyGroup(ctx context.Context, tx ledger.Tx, group uuid.UUID, want int) error {
	got, err := tx.CountGroup(ctx, group)
	if err != nil {
		return err
	}
	if got != want {
		return &core.InvariantViolation{
			Op:     "expand batch",
			Detail: fmt.Sprintf("group %s holds %d of %d rows", group, got, want),
		}
	}
	return nil
}

func (x *Expander) committed(ctx context.Context, view View, b Batch, total decimal.Decimal) {
	slog.InfoContext(ctx, "Batch created",
		"group_id", b.GroupID,
		"rows", b.Size(),
		"member_id", view.Requester.ID,
		"total", total.StringFixed(2))

	ev := amqp.NewLedgerEvent(amqp.EventBatchCreated, view.FamilyID(), view.Requester.ID)
	ev.GroupID = b.GroupID
	ev.Amount = total
	for _, e := range b.Expenses {
		ev.RowIDs = append(ev.RowIDs, e.ID)
	}
	for _, in := range b.Incomes {
		ev.RowIDs = append(ev.RowIDs, in.ID)
	}
	x.notify.committed(ctx, ev)
}
