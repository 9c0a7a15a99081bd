package services

import (
	"context"
	"fmt"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type BalanceCalculator struct {
	reader ledger.Reader
	clock  Clock
}

func NewBalanceCalculator(reader ledger.Reader, clock Clock) *BalanceCalculator {
	return &BalanceCalculator{reader: reader, clock: clock}
}

// Balance is initial balance + incomes - expenses on the account up to and
// including asOf, counting only rows owned by members. A zero asOf means
// today.
func (b *BalanceCalculator) Balance(ctx context.Context, account core.Account, members []int64, asOf core.Date) (decimal.Decimal, error) {
	if asOf.IsZero() {
		asOf = b.clock.Today()
	}
	upTo := ledger.UpTo(asOf)

	income, err := b.reader.SumIncome(ctx, ledger.IncomeFilter{Members: members, AccountID: &account.ID, Range: upTo})
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of account %d: %w", account.ID, err)
	}
	spent, err := b.reader.SumExpense(ctx, ledger.ExpenseFilter{Members: members, AccountID: &account.ID, Range: upTo})
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of account %d: %w", account.ID, err)
	}
	return account.InitialBalance.Add(income).Sub(spent), nil
}

type AccountBalance struct {
	Account core.Account
	AsOf    core.Date
	Balance decimal.Decimal
}

// Balances computes every account concurrently and returns them in input
// order with their sum.
func (b *BalanceCalculator) Balances(ctx context.Context, accounts []core.Account, members []int64, asOf core.Date) ([]AccountBalance, decimal.Decimal, error) {
	if asOf.IsZero() {
		asOf = b.clock.Today()
	}
	out := make([]AccountBalance, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, acct := range accounts {
		g.Go(func() error {
			bal, err := b.Balance(gctx, acct, members, asOf)
			if err != nil {
				return err
			}
			out[i] = AccountBalance{Account: acct, AsOf: asOf, Balance: bal}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	for _, ab := range out {
		total = total.Add(ab.Balance)
	}
	return out, total, nil
}
