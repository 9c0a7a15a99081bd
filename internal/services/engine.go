package services

import (
	"context"
	"time"

	"familyledger/internal/cache"
	"familyledger/internal/core"
	"familyledger/internal/ledger"
)

type Options struct {
	// Clock defaults to the system clock in UTC.
	Clock Clock
	// Publisher receives ledger events after commit; nil disables events.
	Publisher Publisher
	// Window is the projection half-width in months.
	Window int
	// Cache holds projections; nil disables caching.
	Cache cache.Cache[Projection]
}

// Engine bundles the aggregation components over one store. Every write
// goes through a shared notifier so the projection cache and the event
// stream see the same commits.
type Engine struct {
	Store         ledger.Store
	Clock         Clock
	Visibility    *Resolver
	Balances      *BalanceCalculator
	Billing       *BillingService
	Expander      *Expander
	Projector     *Projector
	Budget        *BudgetEvaluator
	Contributions *ContributionService
	Dashboard     *Dashboard
}

func NewEngine(store ledger.Store, opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{Location: time.UTC}
	}
	projector := NewProjector(store, clock, opts.Window, opts.Cache)
	notify := &notifier{publisher: opts.Publisher, invalidators: []Invalidator{projector}}

	return &Engine{
		Store:         store,
		Clock:         clock,
		Visibility:    NewResolver(store),
		Balances:      NewBalanceCalculator(store, clock),
		Billing:       NewBillingService(store, clock, notify),
		Expander:      NewExpander(store, notify),
		Projector:     projector,
		Budget:        NewBudgetEvaluator(store, clock),
		Contributions: NewContributionService(store, clock, notify),
		Dashboard:     NewDashboard(store, clock, projector),
	}
}

// Resolve is a shorthand for Visibility.Resolve.
func (e *Engine) Resolve(ctx context.Context, memberID int64, scope core.Scope) (View, error) {
	return e.Visibility.Resolve(ctx, memberID, scope)
}
