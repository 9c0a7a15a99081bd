package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"familyledger/internal/cache"
	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultWindow is the number of months on each side of today.
const DefaultWindow = 6

type NetWorthPoint struct {
	Offset      int
	Label       string // YYYY-MM
	Cutoff      core.Date
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	NetWorth    decimal.Decimal
}

// Projection is a net-worth series ordered oldest first.
type Projection struct {
	Mode   core.PeriodMode
	Today  core.Date
	Points []NetWorthPoint
}

// Current returns the offset 0 point.
func (p Projection) Current() (NetWorthPoint, bool) {
	for _, pt := range p.Points {
		if pt.Offset == 0 {
			return pt, true
		}
	}
	return NetWorthPoint{}, false
}

type Projector struct {
	store    ledger.Store
	balances *BalanceCalculator
	clock    Clock
	window   int
	cache    cache.Cache[Projection]
}

// NewProjector builds a projector over [-window, +window] months. A nil
// cache disables caching.
func NewProjector(store ledger.Store, clock Clock, window int, c cache.Cache[Projection]) *Projector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Projector{
		store:    store,
		balances: NewBalanceCalculator(store, clock),
		clock:    clock,
		window:   window,
		cache:    c,
	}
}

func (p *Projector) Window() int {
	return p.window
}

func familyPrefix(familyID int64) string {
	return "family:" + strconv.FormatInt(familyID, 10) + "|"
}

func projectionKey(familyID int64, members []int64, mode core.PeriodMode, today core.Date) string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = strconv.FormatInt(m, 10)
	}
	return fmt.Sprintf("%smembers:%s|mode:%s|today:%s",
		familyPrefix(familyID), strings.Join(ids, ","), mode, today)
}

// InvalidateFamily drops every cached projection of the family.
func (p *Projector) InvalidateFamily(familyID int64) {
	if p.cache == nil {
		return
	}
	prefix := familyPrefix(familyID)
	p.cache.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Project builds the series for view. Realized mode stops at offset 0;
// projected mode covers the whole window.
func (p *Projector) Project(ctx context.Context, view View, mode core.PeriodMode) (Projection, error) {
	if mode != core.Realized && mode != core.Projected {
		return Projection{}, core.ErrInvalidMode
	}
	today := p.clock.Today()
	key := projectionKey(view.FamilyID(), view.Members, mode, today)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
	}

	familyID := view.FamilyID()
	accounts, err := p.store.ListAccounts(ctx, familyID)
	if err != nil {
		return Projection{}, fmt.Errorf("list accounts: %w", err)
	}
	cards, err := p.store.ListCards(ctx, familyID)
	if err != nil {
		return Projection{}, fmt.Errorf("list cards: %w", err)
	}
	investments, err := p.store.ListInvestments(ctx, familyID)
	if err != nil {
		return Projection{}, fmt.Errorf("list investments: %w", err)
	}

	last := p.window
	if mode == core.Realized {
		last = 0
	}
	points := make([]NetWorthPoint, last+p.window+1)
	g, gctx := errgroup.WithContext(ctx)
	for i := range points {
		offset := i - p.window
		g.Go(func() error {
			pt, err := p.point(gctx, view.Members, accounts, cards, investments, today, offset, mode)
			if err != nil {
				return err
			}
			points[i] = pt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Projection{}, err
	}

	proj := Projection{Mode: mode, Today: today, Points: points}
	if p.cache != nil {
		p.cache.Set(key, proj)
	}
	return proj, nil
}

// point evaluates one month. Account balances and card invoices are fetched
// concurrently into indexed slots and summed afterwards.
func (p *Projector) point(ctx context.Context, members []int64, accounts []core.Account, cards []core.Card,
	investments []core.Investment, today core.Date, offset int, mode core.PeriodMode) (NetWorthPoint, error) {
	monthEnd := today.AddMonths(offset).LastOfMonth()
	cutoff := monthEnd
	if mode == core.Realized {
		cutoff = core.MinDate(monthEnd, today)
	}

	balances := make([]decimal.Decimal, len(accounts))
	debts := make([]decimal.Decimal, len(cards))
	contributed := decimal.Zero

	g, gctx := errgroup.WithContext(ctx)
	for i, acct := range accounts {
		g.Go(func() error {
			bal, err := p.balances.Balance(gctx, acct, members, cutoff)
			if err != nil {
				return err
			}
			balances[i] = bal
			return nil
		})
	}
	for i, card := range cards {
		g.Go(func() error {
			inv, err := openInvoice(gctx, p.store, card, members, monthEnd)
			if err != nil {
				return err
			}
			debts[i] = inv.Total
			return nil
		})
	}

	var ids []int64
	for _, inv := range investments {
		if !inv.CreatedOn.After(cutoff) {
			ids = append(ids, inv.ID)
		}
	}
	// an empty id set would match every investment
	if len(ids) > 0 {
		g.Go(func() error {
			sum, err := p.store.SumContributions(gctx, ledger.ContributionFilter{
				Members:       members,
				InvestmentIDs: ids,
				Range:         ledger.UpTo(cutoff),
			})
			if err != nil {
				return fmt.Errorf("sum contributions: %w", err)
			}
			contributed = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return NetWorthPoint{}, err
	}

	assets := core.Sum(balances...).Add(contributed)
	liabilities := core.Sum(debts...)
	return NetWorthPoint{
		Offset:      offset,
		Label:       fmt.Sprintf("%04d-%02d", monthEnd.Year(), monthEnd.Month()),
		Cutoff:      cutoff,
		Assets:      assets,
		Liabilities: liabilities,
		NetWorth:    assets.Sub(liabilities),
	}, nil
}
