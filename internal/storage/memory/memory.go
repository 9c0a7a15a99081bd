package memory

import (
	"context"
	"sync"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-process ledger.Store. Transactions work on a copy of the
// dataset that replaces the live one only when the callback succeeds.
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

// NewFromFile seeds a store from a JSON document (see ledger.Seed). A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	seed, ok, err := ledger.ReadSeedFile(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s, nil
	}
	if err := s.Load(seed); err != nil {
		return nil, err
	}
	return s, nil
}

// WithinTx implements ledger.Store. fn must only use tx; calling back into
// the Store from fn deadlocks.
func (s *Store) WithinTx(_ context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

// FailOnce makes the next call of the named write operation return err.
func (s *Store) FailOnce(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.failures[op] = err
}

// Reader

func (s *Store) SumIncome(ctx context.Context, f ledger.IncomeFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.SumIncome(ctx, f)
}

func (s *Store) SumExpense(ctx context.Context, f ledger.ExpenseFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.SumExpense(ctx, f)
}

func (s *Store) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListExpenses(ctx, f)
}

func (s *Store) SumExpenseByCategory(ctx context.Context, f ledger.ExpenseFilter) ([]core.CategoryAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.SumExpenseByCategory(ctx, f)
}

func (s *Store) SumContributions(ctx context.Context, f ledger.ContributionFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.SumContributions(ctx, f)
}

func (s *Store) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetExpense(ctx, id)
}

func (s *Store) CountGroup(ctx context.Context, groupID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.CountGroup(ctx, groupID)
}

// Directory

func (s *Store) GetMember(ctx context.Context, id int64) (core.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetMember(ctx, id)
}

func (s *Store) GetFamily(ctx context.Context, id int64) (core.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetFamily(ctx, id)
}

func (s *Store) ListFamilyMembers(ctx context.Context, familyID int64) ([]core.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListFamilyMembers(ctx, familyID)
}

func (s *Store) GetSubscription(ctx context.Context, familyID int64) (core.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetSubscription(ctx, familyID)
}

func (s *Store) ListAccounts(ctx context.Context, familyID int64) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListAccounts(ctx, familyID)
}

func (s *Store) GetAccount(ctx context.Context, familyID, id int64) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetAccount(ctx, familyID, id)
}

func (s *Store) ListCards(ctx context.Context, familyID int64) ([]core.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListCards(ctx, familyID)
}

func (s *Store) GetCard(ctx context.Context, familyID, id int64) (core.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetCard(ctx, familyID, id)
}

func (s *Store) ListCategories(ctx context.Context, familyID int64) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListCategories(ctx, familyID)
}

func (s *Store) GetCategory(ctx context.Context, familyID, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetCategory(ctx, familyID, id)
}

func (s *Store) GetRevenueCategory(ctx context.Context, familyID, id int64) (core.RevenueCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetRevenueCategory(ctx, familyID, id)
}

func (s *Store) ListInvestments(ctx context.Context, familyID int64) ([]core.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListInvestments(ctx, familyID)
}

func (s *Store) GetInvestment(ctx context.Context, familyID, id int64) (core.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetInvestment(ctx, familyID, id)
}

func (s *Store) GetGoal(ctx context.Context, familyID, id int64) (core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetGoal(ctx, familyID, id)
}

func (s *Store) ListGoals(ctx context.Context, familyID int64) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListGoals(ctx, familyID)
}

// Seeding. These helpers assign ids and return the stored entity.

func (s *Store) AddFamily(name string) core.Family {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := core.Family{ID: s.st.id(), Name: name, InviteCode: uuid.New()}
	s.st.families[f.ID] = f
	return f
}

// AddMember adds a member; familyID 0 means no family.
func (s *Store) AddMember(username string, familyID int64) core.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := core.Member{ID: s.st.id(), Username: username}
	if familyID != 0 {
		fid := familyID
		m.FamilyID = &fid
	}
	s.st.members[m.ID] = m
	return m
}

func (s *Store) SetSubscription(sub core.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.subscriptions[sub.FamilyID] = sub
}

func (s *Store) AddAccount(a core.Account) core.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.st.id()
	s.st.accounts[a.ID] = a
	return a
}

func (s *Store) AddCard(c core.Card) core.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.st.id()
	s.st.cards[c.ID] = c
	return c
}

func (s *Store) AddCategory(c core.Category) core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.st.id()
	if c.Macro == "" {
		c.Macro = core.Unclassified
	}
	s.st.categories[c.ID] = c
	return c
}

func (s *Store) AddRevenueCategory(c core.RevenueCategory) core.RevenueCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.st.id()
	s.st.revenueCategories[c.ID] = c
	return c
}

func (s *Store) AddGoal(g core.Goal) core.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.st.id()
	s.st.goals[g.ID] = g
	return g
}

func (s *Store) AddInvestment(inv core.Investment) core.Investment {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.st.id()
	s.st.investments[inv.ID] = inv
	return inv
}

func (s *Store) AddExpense(e core.Expense) core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.st.id()
	s.st.expenses = append(s.st.expenses, e)
	return e
}

func (s *Store) AddIncome(i core.Income) core.Income {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.st.id()
	s.st.incomes = append(s.st.incomes, i)
	return i
}

func (s *Store) AddContribution(c core.Contribution) core.Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.st.id()
	s.st.contributions = append(s.st.contributions, c)
	return c
}
