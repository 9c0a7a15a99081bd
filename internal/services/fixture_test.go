package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"familyledger/internal/amqp"
	"familyledger/internal/cache"
	"familyledger/internal/core"
	"familyledger/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Events() []*amqp.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.LedgerEvent(nil), p.events...)
}

// fixture is a two-member family with one account, one card and one
// category. Today is 2025-04-15.
type fixture struct {
	ctx    context.Context
	store  *memory.Store
	engine *Engine
	pub    *fakePublisher
	cache  *cache.LRUCache[Projection]
	today  core.Date

	family    core.Family
	ana, bia  core.Member
	checking  core.Account
	card      core.Card
	groceries core.Category
}

func newFixture(t *testing.T, premium bool) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.New(),
		pub:   &fakePublisher{},
		today: day("2025-04-15"),
	}
	f.family = f.store.AddFamily("Silva")
	f.ana = f.store.AddMember("ana", f.family.ID)
	f.bia = f.store.AddMember("bia", f.family.ID)
	if premium {
		f.store.SetSubscription(core.Subscription{
			FamilyID: f.family.ID,
			Plan:     core.Plan{ID: 2, Name: "Family", MonthlyPrice: amt("19.90")},
			Status:   core.SubscriptionActive,
		})
	}
	f.checking = f.store.AddAccount(core.Account{FamilyID: f.family.ID, Name: "Checking", Type: core.Checking, InitialBalance: amt("1000")})
	f.card = f.store.AddCard(core.Card{FamilyID: f.family.ID, Name: "Visa", Limit: amt("5000"), ClosingDay: 10, DueDay: 20})
	f.groceries = f.store.AddCategory(core.Category{FamilyID: f.family.ID, Name: "Groceries", Macro: core.Need})

	f.cache = cache.NewLRUCache[Projection](16, time.Minute)
	f.engine = NewEngine(f.store, Options{
		Clock:     FixedClock{Date: f.today},
		Publisher: f.pub,
		Window:    DefaultWindow,
		Cache:     f.cache,
	})
	return f
}

func (f *fixture) view(t *testing.T, m core.Member, scope core.Scope) View {
	t.Helper()
	v, err := f.engine.Resolve(f.ctx, m.ID, scope)
	require.NoError(t, err)
	return v
}

func (f *fixture) cardExpense(m core.Member, amount, date string) core.Expense {
	return f.store.AddExpense(core.Expense{
		MemberID: m.ID, Description: "card purchase", Amount: amt(amount), Date: day(date),
		CategoryID: f.groceries.ID, CardID: &f.card.ID,
	})
}

func (f *fixture) accountExpense(m core.Member, amount, date string) core.Expense {
	return f.store.AddExpense(core.Expense{
		MemberID: m.ID, Description: "debit purchase", Amount: amt(amount), Date: day(date),
		CategoryID: f.groceries.ID, AccountID: &f.checking.ID,
	})
}

func (f *fixture) income(m core.Member, amount, date string) core.Income {
	return f.store.AddIncome(core.Income{
		MemberID: m.ID, Description: "salary", Amount: amt(amount), Date: day(date),
		AccountID: f.checking.ID,
	})
}
