package storage

import (
	"strings"

	"familyledger/internal/ledger"
)

// where accumulates AND-ed SQL conditions with their positional arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) in(column string, ids []int64) {
	if len(ids) == 0 {
		w.add("1 = 0")
		return
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	w.add(column+" IN ("+placeholders(len(ids))+")", args...)
}

func (w *where) dates(column string, r ledger.DateRange) {
	if !r.From.IsZero() {
		w.add(column+" >= ?", r.From.String())
	}
	if !r.To.IsZero() {
		w.add(column+" <= ?", r.To.String())
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func expenseWhere(f ledger.ExpenseFilter) *where {
	w := &where{}
	w.in("e.member_id", f.Members)
	if f.AccountID != nil {
		w.add("e.account_id = ?", *f.AccountID)
	}
	if f.CardID != nil {
		w.add("e.card_id = ?", *f.CardID)
	}
	switch f.Settlement {
	case ledger.AccountSettled:
		w.add("e.account_id IS NOT NULL")
	case ledger.CardSettled:
		w.add("e.card_id IS NOT NULL")
	}
	if len(f.CategoryIDs) > 0 {
		w.in("e.category_id", f.CategoryIDs)
	}
	if f.Paid != nil {
		w.add("e.invoice_paid = ?", boolInt(*f.Paid))
	}
	w.dates("e.date", f.Range)
	return w
}

func incomeWhere(f ledger.IncomeFilter) *where {
	w := &where{}
	w.in("member_id", f.Members)
	if f.AccountID != nil {
		w.add("account_id = ?", *f.AccountID)
	}
	w.dates("date", f.Range)
	return w
}

func contributionWhere(f ledger.ContributionFilter) *where {
	w := &where{}
	w.in("member_id", f.Members)
	if len(f.InvestmentIDs) > 0 {
		w.in("investment_id", f.InvestmentIDs)
	}
	w.dates("date", f.Range)
	return w
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
