package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// state is the whole dataset. Its methods do no locking; Store and tx
// guard access.
type state struct {
	nextID int64

	families          map[int64]core.Family
	members           map[int64]core.Member
	subscriptions     map[int64]core.Subscription
	accounts          map[int64]core.Account
	cards             map[int64]core.Card
	categories        map[int64]core.Category
	revenueCategories map[int64]core.RevenueCategory
	goals             map[int64]core.Goal
	investments       map[int64]core.Investment

	expenses      []core.Expense
	incomes       []core.Income
	contributions []core.Contribution

	// failures maps a write operation name to an error it returns once.
	failures map[string]error
}

func newState() *state {
	return &state{
		families:          map[int64]core.Family{},
		members:           map[int64]core.Member{},
		subscriptions:     map[int64]core.Subscription{},
		accounts:          map[int64]core.Account{},
		cards:             map[int64]core.Card{},
		categories:        map[int64]core.Category{},
		revenueCategories: map[int64]core.RevenueCategory{},
		goals:             map[int64]core.Goal{},
		investments:       map[int64]core.Investment{},
		failures:          map[string]error{},
	}
}

func (s *state) clone() *state {
	return &state{
		nextID:            s.nextID,
		families:          maps.Clone(s.families),
		members:           maps.Clone(s.members),
		subscriptions:     maps.Clone(s.subscriptions),
		accounts:          maps.Clone(s.accounts),
		cards:             maps.Clone(s.cards),
		categories:        maps.Clone(s.categories),
		revenueCategories: maps.Clone(s.revenueCategories),
		goals:             maps.Clone(s.goals),
		investments:       maps.Clone(s.investments),
		expenses:          slices.Clone(s.expenses),
		incomes:           slices.Clone(s.incomes),
		contributions:     slices.Clone(s.contributions),
		failures:          s.failures,
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// Reader

func (s *state) SumIncome(_ context.Context, f ledger.IncomeFilter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, i := range s.incomes {
		if f.Match(i) {
			total = total.Add(i.Amount)
		}
	}
	return total, nil
}

func (s *state) SumExpense(_ context.Context, f ledger.ExpenseFilter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range s.expenses {
		if f.Match(e) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *state) ListExpenses(_ context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range s.expenses {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *state) SumExpenseByCategory(_ context.Context, f ledger.ExpenseFilter) ([]core.CategoryAmount, error) {
	totals := map[int64]decimal.Decimal{}
	for _, e := range s.expenses {
		if f.Match(e) {
			totals[e.CategoryID] = totals[e.CategoryID].Add(e.Amount)
		}
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for id, amount := range totals {
		out = append(out, core.CategoryAmount{CategoryID: id, Name: s.categories[id].Name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (s *state) SumContributions(_ context.Context, f ledger.ContributionFilter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range s.contributions {
		if f.Match(c) {
			total = total.Add(c.Amount)
		}
	}
	return total, nil
}

func (s *state) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, &core.NotFoundError{Entity: "expense", ID: id}
}

func (s *state) CountGroup(_ context.Context, groupID uuid.UUID) (int, error) {
	n := 0
	for _, e := range s.expenses {
		if inGroup(groupID, e.PurchaseGroupID, e.RecurrenceGroupID) {
			n++
		}
	}
	for _, i := range s.incomes {
		if inGroup(groupID, uuid.NullUUID{}, i.RecurrenceGroupID) {
			n++
		}
	}
	return n, nil
}

func inGroup(id uuid.UUID, ids ...uuid.NullUUID) bool {
	for _, g := range ids {
		if g.Valid && g.UUID == id {
			return true
		}
	}
	return false
}

// Directory

func (s *state) GetMember(_ context.Context, id int64) (core.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return core.Member{}, &core.NotFoundError{Entity: "member", ID: id}
	}
	return m, nil
}

func (s *state) GetFamily(_ context.Context, id int64) (core.Family, error) {
	f, ok := s.families[id]
	if !ok {
		return core.Family{}, &core.NotFoundError{Entity: "family", ID: id}
	}
	return f, nil
}

func (s *state) ListFamilyMembers(_ context.Context, familyID int64) ([]core.Member, error) {
	var out []core.Member
	for _, m := range s.members {
		if m.FamilyID != nil && *m.FamilyID == familyID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) GetSubscription(_ context.Context, familyID int64) (core.Subscription, error) {
	sub, ok := s.subscriptions[familyID]
	if !ok {
		return core.Subscription{FamilyID: familyID, Plan: core.Plan{Name: "Free"}, Status: core.SubscriptionActive}, nil
	}
	return sub, nil
}

func (s *state) ListAccounts(_ context.Context, familyID int64) ([]core.Account, error) {
	out := byFamily(s.accounts, func(a core.Account) bool { return a.FamilyID == familyID })
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *state) GetAccount(_ context.Context, familyID, id int64) (core.Account, error) {
	a, ok := s.accounts[id]
	if !ok || a.FamilyID != familyID {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: id}
	}
	return a, nil
}

func (s *state) ListCards(_ context.Context, familyID int64) ([]core.Card, error) {
	out := byFamily(s.cards, func(c core.Card) bool { return c.FamilyID == familyID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) GetCard(_ context.Context, familyID, id int64) (core.Card, error) {
	c, ok := s.cards[id]
	if !ok || c.FamilyID != familyID {
		return core.Card{}, &core.NotFoundError{Entity: "card", ID: id}
	}
	return c, nil
}

func (s *state) ListCategories(_ context.Context, familyID int64) ([]core.Category, error) {
	out := byFamily(s.categories, func(c core.Category) bool { return c.FamilyID == familyID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) GetCategory(_ context.Context, familyID, id int64) (core.Category, error) {
	c, ok := s.categories[id]
	if !ok || c.FamilyID != familyID {
		return core.Category{}, &core.NotFoundError{Entity: "category", ID: id}
	}
	return c, nil
}

func (s *state) GetRevenueCategory(_ context.Context, familyID, id int64) (core.RevenueCategory, error) {
	c, ok := s.revenueCategories[id]
	if !ok || c.FamilyID != familyID {
		return core.RevenueCategory{}, &core.NotFoundError{Entity: "revenue category", ID: id}
	}
	return c, nil
}

func (s *state) ListInvestments(_ context.Context, familyID int64) ([]core.Investment, error) {
	out := byFamily(s.investments, func(i core.Investment) bool { return i.FamilyID == familyID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) GetInvestment(_ context.Context, familyID, id int64) (core.Investment, error) {
	inv, ok := s.investments[id]
	if !ok || inv.FamilyID != familyID {
		return core.Investment{}, &core.NotFoundError{Entity: "investment", ID: id}
	}
	return inv, nil
}

func (s *state) GetGoal(_ context.Context, familyID, id int64) (core.Goal, error) {
	g, ok := s.goals[id]
	if !ok || g.FamilyID != familyID {
		return core.Goal{}, &core.NotFoundError{Entity: "goal", ID: id}
	}
	return g, nil
}

func (s *state) ListGoals(_ context.Context, familyID int64) ([]core.Goal, error) {
	out := byFamily(s.goals, func(g core.Goal) bool { return g.FamilyID == familyID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Current.Equal(out[j].Current) {
			return out[i].Current.GreaterThan(out[j].Current)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func byFamily[T any](m map[int64]T, keep func(T) bool) []T {
	var out []T
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Tx

func (s *state) GetOrCreateCategory(_ context.Context, familyID int64, name string) (core.Category, error) {
	if err := s.fail("GetOrCreateCategory"); err != nil {
		return core.Category{}, err
	}
	for _, c := range s.categories {
		if c.FamilyID == familyID && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	c := core.Category{ID: s.id(), FamilyID: familyID, Name: name, Macro: core.Unclassified}
	s.categories[c.ID] = c
	return c, nil
}

func (s *state) InsertExpenses(_ context.Context, expenses []core.Expense) ([]int64, error) {
	if err := s.fail("InsertExpenses"); err != nil {
		return nil, err
	}
	ids := make([]int64, len(expenses))
	for i, e := range expenses {
		e.ID = s.id()
		s.expenses = append(s.expenses, e)
		ids[i] = e.ID
	}
	return ids, nil
}

func (s *state) InsertIncomes(_ context.Context, incomes []core.Income) ([]int64, error) {
	if err := s.fail("InsertIncomes"); err != nil {
		return nil, err
	}
	ids := make([]int64, len(incomes))
	for i, in := range incomes {
		in.ID = s.id()
		s.incomes = append(s.incomes, in)
		ids[i] = in.ID
	}
	return ids, nil
}

func (s *state) MarkInvoicePaid(_ context.Context, ids []int64) (int64, error) {
	if err := s.fail("MarkInvoicePaid"); err != nil {
		return 0, err
	}
	var n int64
	for i := range s.expenses {
		if slices.Contains(ids, s.expenses[i].ID) && !s.expenses[i].InvoicePaid {
			s.expenses[i].InvoicePaid = true
			n++
		}
	}
	return n, nil
}

func (s *state) AddToGoal(_ context.Context, goalID int64, amount decimal.Decimal) error {
	if err := s.fail("AddToGoal"); err != nil {
		return err
	}
	g, ok := s.goals[goalID]
	if !ok {
		return &core.NotFoundError{Entity: "goal", ID: goalID}
	}
	g.Current = g.Current.Add(amount)
	s.goals[goalID] = g
	return nil
}

func (s *state) InsertContribution(_ context.Context, c core.Contribution) (int64, error) {
	if err := s.fail("InsertContribution"); err != nil {
		return 0, err
	}
	c.ID = s.id()
	s.contributions = append(s.contributions, c)
	return c.ID, nil
}

func (s *state) AddToInvestment(_ context.Context, investmentID int64, amount decimal.Decimal) error {
	if err := s.fail("AddToInvestment"); err != nil {
		return err
	}
	inv, ok := s.investments[investmentID]
	if !ok {
		return &core.NotFoundError{Entity: "investment", ID: investmentID}
	}
	inv.CurrentValue = inv.CurrentValue.Add(amount)
	s.investments[investmentID] = inv
	return nil
}
