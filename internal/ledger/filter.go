package ledger

import (
	"slices"

	"familyledger/internal/core"
)

// Settlement restricts expenses by what they were settled against.
type Settlement int

const (
	AnySettlement Settlement = iota
	AccountSettled
	CardSettled
)

// DateRange is inclusive on both ends; a zero bound is open.
type DateRange struct {
	From core.Date
	To   core.Date
}

func UpTo(d core.Date) DateRange {
	return DateRange{To: d}
}

func Between(from, to core.Date) DateRange {
	return DateRange{From: from, To: to}
}

// Month covers the whole calendar month of d.
func Month(d core.Date) DateRange {
	return DateRange{From: d.FirstOfMonth(), To: d.LastOfMonth()}
}

func (r DateRange) Contains(d core.Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// ExpenseFilter selects expenses. An empty Members set matches nothing.
type ExpenseFilter struct {
	Members     []int64
	AccountID   *int64
	CardID      *int64
	Settlement  Settlement
	CategoryIDs []int64
	Range       DateRange
	Paid        *bool
}

func (f ExpenseFilter) Match(e core.Expense) bool {
	if !slices.Contains(f.Members, e.MemberID) {
		return false
	}
	if f.AccountID != nil && (e.AccountID == nil || *e.AccountID != *f.AccountID) {
		return false
	}
	if f.CardID != nil && (e.CardID == nil || *e.CardID != *f.CardID) {
		return false
	}
	switch f.Settlement {
	case AccountSettled:
		if e.AccountID == nil {
			return false
		}
	case CardSettled:
		if e.CardID == nil {
			return false
		}
	}
	if len(f.CategoryIDs) > 0 && !slices.Contains(f.CategoryIDs, e.CategoryID) {
		return false
	}
	if f.Paid != nil && e.InvoicePaid != *f.Paid {
		return false
	}
	return f.Range.Contains(e.Date)
}

// IncomeFilter selects incomes. An empty Members set matches nothing.
type IncomeFilter struct {
	Members   []int64
	AccountID *int64
	Range     DateRange
}

func (f IncomeFilter) Match(i core.Income) bool {
	if !slices.Contains(f.Members, i.MemberID) {
		return false
	}
	if f.AccountID != nil && i.AccountID != *f.AccountID {
		return false
	}
	return f.Range.Contains(i.Date)
}

// ContributionFilter selects investment contributions. An empty Members set
// matches nothing; an empty InvestmentIDs set matches every investment.
type ContributionFilter struct {
	Members       []int64
	InvestmentIDs []int64
	Range         DateRange
}

func (f ContributionFilter) Match(c core.Contribution) bool {
	if !slices.Contains(f.Members, c.MemberID) {
		return false
	}
	if len(f.InvestmentIDs) > 0 && !slices.Contains(f.InvestmentIDs, c.InvestmentID) {
		return false
	}
	return f.Range.Contains(c.Date)
}

// Unpaid is a convenience for ExpenseFilter.Paid.
func Unpaid() *bool {
	b := false
	return &b
}
