package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// queries runs every statement against q, which is the pool outside a
// transaction and the *sql.Tx inside one.
type queries struct {
	q querier
}

var _ ledger.Tx = (*queries)(nil)

const expenseColumns = `e.id, e.member_id, e.description, e.amount_cents, e.date, e.category_id,
	e.account_id, e.card_id, e.is_installment, e.installment_index, e.installment_count,
	e.purchase_group_id, e.is_recurring, e.recurrence_group_id, e.invoice_paid`

func (r *queries) sumCents(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	var cents int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, err
	}
	return core.FromCents(cents), nil
}

func (r *queries) SumIncome(ctx context.Context, f ledger.IncomeFilter) (decimal.Decimal, error) {
	w := incomeWhere(f)
	total, err := r.sumCents(ctx, "SELECT COALESCE(SUM(amount_cents), 0) FROM incomes"+w.String(), w.args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum income: %w", err)
	}
	return total, nil
}

func (r *queries) SumExpense(ctx context.Context, f ledger.ExpenseFilter) (decimal.Decimal, error) {
	w := expenseWhere(f)
	total, err := r.sumCents(ctx, "SELECT COALESCE(SUM(e.amount_cents), 0) FROM expenses e"+w.String(), w.args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expense: %w", err)
	}
	return total, nil
}

func (r *queries) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	w := expenseWhere(f)
	rows, err := r.q.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses e"+w.String()+" ORDER BY e.date, e.id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *queries) SumExpenseByCategory(ctx context.Context, f ledger.ExpenseFilter) ([]core.CategoryAmount, error) {
	w := expenseWhere(f)
	query := `SELECT e.category_id, COALESCE(c.name, ''), SUM(e.amount_cents) AS total
		FROM expenses e LEFT JOIN categories c ON c.id = e.category_id` + w.String() + `
		GROUP BY e.category_id ORDER BY total DESC, e.category_id`
	rows, err := r.q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("sum expense by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		var cents int64
		if err := rows.Scan(&ca.CategoryID, &ca.Name, &cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		ca.Amount = core.FromCents(cents)
		out = append(out, ca)
	}
	return out, rows.Err()
}

func (r *queries) SumContributions(ctx context.Context, f ledger.ContributionFilter) (decimal.Decimal, error) {
	w := contributionWhere(f)
	total, err := r.sumCents(ctx, "SELECT COALESCE(SUM(amount_cents), 0) FROM investment_contributions"+w.String(), w.args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum contributions: %w", err)
	}
	return total, nil
}

func (r *queries) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses e WHERE e.id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{Entity: "expense", ID: id}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *queries) CountGroup(ctx context.Context, groupID uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM expenses WHERE purchase_group_id = ?1 OR recurrence_group_id = ?1) +
		(SELECT COUNT(*) FROM incomes WHERE recurrence_group_id = ?1)`, groupID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count group: %w", err)
	}
	return n, nil
}

// Tx

func (r *queries) GetOrCreateCategory(ctx context.Context, familyID int64, name string) (core.Category, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE family_id = ? AND lower(name) = lower(?) ORDER BY id LIMIT 1", familyID, name)
	c, err := scanCategory(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("find category %q: %w", name, err)
	}

	res, err := r.q.ExecContext(ctx, "INSERT INTO categories (family_id, name, macro) VALUES (?, ?, ?)", familyID, name, string(core.Unclassified))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}
	slog.InfoContext(ctx, "Reserved category created", "family_id", familyID, "name", name, "id", id)
	return core.Category{ID: id, FamilyID: familyID, Name: name, Macro: core.Unclassified}, nil
}

func (r *queries) InsertExpenses(ctx context.Context, expenses []core.Expense) ([]int64, error) {
	ids := make([]int64, 0, len(expenses))
	for _, e := range expenses {
		res, err := r.q.ExecContext(ctx, `INSERT INTO expenses (member_id, description, amount_cents, date, category_id,
			account_id, card_id, is_installment, installment_index, installment_count,
			purchase_group_id, is_recurring, recurrence_group_id, invoice_paid)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.MemberID, e.Description, core.Cents(e.Amount), e.Date.String(), e.CategoryID,
			nullID(e.AccountID), nullID(e.CardID), boolInt(e.IsInstallment), e.InstallmentIndex, e.InstallmentCount,
			nullUUID(e.PurchaseGroupID), boolInt(e.IsRecurring), nullUUID(e.RecurrenceGroupID), boolInt(e.InvoicePaid))
		if err != nil {
			return nil, fmt.Errorf("insert expense: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert expense: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *queries) InsertIncomes(ctx context.Context, incomes []core.Income) ([]int64, error) {
	ids := make([]int64, 0, len(incomes))
	for _, in := range incomes {
		var category any
		if in.CategoryID != 0 {
			category = in.CategoryID
		}
		res, err := r.q.ExecContext(ctx, `INSERT INTO incomes (member_id, description, amount_cents, date, category_id,
			account_id, is_recurring, recurrence_group_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			in.MemberID, in.Description, core.Cents(in.Amount), in.Date.String(), category,
			in.AccountID, boolInt(in.IsRecurring), nullUUID(in.RecurrenceGroupID))
		if err != nil {
			return nil, fmt.Errorf("insert income: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert income: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *queries) MarkInvoicePaid(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	w := &where{}
	w.in("id", ids)
	w.add("invoice_paid = 0")
	res, err := r.q.ExecContext(ctx, "UPDATE expenses SET invoice_paid = 1"+w.String(), w.args...)
	if err != nil {
		return 0, fmt.Errorf("mark invoice paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark invoice paid: %w", err)
	}
	return n, nil
}

func (r *queries) AddToGoal(ctx context.Context, goalID int64, amount decimal.Decimal) error {
	return r.addCents(ctx, "UPDATE goals SET current_cents = current_cents + ? WHERE id = ?", "goal", goalID, amount)
}

func (r *queries) InsertContribution(ctx context.Context, c core.Contribution) (int64, error) {
	res, err := r.q.ExecContext(ctx, `INSERT INTO investment_contributions (investment_id, member_id, account_id, amount_cents, date)
		VALUES (?, ?, ?, ?, ?)`, c.InvestmentID, c.MemberID, c.AccountID, core.Cents(c.Amount), c.Date.String())
	if err != nil {
		return 0, fmt.Errorf("insert contribution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert contribution: %w", err)
	}
	return id, nil
}

func (r *queries) AddToInvestment(ctx context.Context, investmentID int64, amount decimal.Decimal) error {
	return r.addCents(ctx, "UPDATE investments SET current_value_cents = current_value_cents + ? WHERE id = ?", "investment", investmentID, amount)
}

func (r *queries) addCents(ctx context.Context, stmt, entity string, id int64, amount decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx, stmt, core.Cents(amount), id)
	if err != nil {
		return fmt.Errorf("update %s: %w", entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", entity, err)
	}
	if n == 0 {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// scanning

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                        core.Expense
		cents                    int64
		date                     string
		account, card            sql.NullInt64
		installment, recur, paid int
	)
	err := s.Scan(&e.ID, &e.MemberID, &e.Description, &cents, &date, &e.CategoryID,
		&account, &card, &installment, &e.InstallmentIndex, &e.InstallmentCount,
		&e.PurchaseGroupID, &recur, &e.RecurrenceGroupID, &paid)
	if err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.FromCents(cents)
	e.AccountID = ptrID(account)
	e.CardID = ptrID(card)
	e.IsInstallment = installment != 0
	e.IsRecurring = recur != 0
	e.InvoicePaid = paid != 0
	return e, nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func ptrID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullUUID(u uuid.NullUUID) any {
	if !u.Valid {
		return nil
	}
	return u.UUID.String()
}

func nullDate(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
