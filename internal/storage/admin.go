package storage

import (
	"context"
	"fmt"
	"log/slog"

	"familyledger/internal/core"
	"familyledger/internal/ledger"

	"github.com/google/uuid"
)

// Load inserts a fixture document in one transaction, keeping its ids.
// Rows that already exist are left untouched, so loading twice is harmless.
func (s *SQLiteStore) Load(ctx context.Context, seed ledger.Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	exec := func(what string, query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed %s: %w", what, err)
		}
		return nil
	}

	for _, f := range seed.Families {
		if err := exec("family", "INSERT OR IGNORE INTO families (id, name, invite_code) VALUES (?, ?, ?)", f.ID, f.Name, uuid.NewString()); err != nil {
			return err
		}
		if f.Plan == nil {
			continue
		}
		if err := exec("plan", "INSERT OR IGNORE INTO plans (name, monthly_price_cents) VALUES (?, ?)", f.Plan.Name, core.Cents(f.Plan.MonthlyPrice)); err != nil {
			return err
		}
		if err := exec("subscription", `INSERT OR REPLACE INTO subscriptions (family_id, plan_id, status)
			SELECT ?, id, ? FROM plans WHERE name = ?`, f.ID, f.Plan.Status, f.Plan.Name); err != nil {
			return err
		}
	}
	for _, m := range seed.Members {
		var family any
		if m.FamilyID != 0 {
			family = m.FamilyID
		}
		if err := exec("member", "INSERT OR IGNORE INTO members (id, username, family_id) VALUES (?, ?, ?)", m.ID, m.Username, family); err != nil {
			return err
		}
	}
	for _, a := range seed.Accounts {
		if err := exec("account", "INSERT OR IGNORE INTO accounts (id, family_id, name, type, initial_balance_cents) VALUES (?, ?, ?, ?, ?)",
			a.ID, a.FamilyID, a.Name, a.Type, core.Cents(a.InitialBalance)); err != nil {
			return err
		}
	}
	for _, c := range seed.Cards {
		if err := exec("card", "INSERT OR IGNORE INTO cards (id, family_id, name, limit_cents, closing_day, due_day) VALUES (?, ?, ?, ?, ?, ?)",
			c.ID, c.FamilyID, c.Name, core.Cents(c.Limit), c.ClosingDay, c.DueDay); err != nil {
			return err
		}
	}
	for _, sc := range seed.Categories {
		c := sc.Category()
		if err := exec("category", "INSERT OR IGNORE INTO categories (id, family_id, name, parent_id, macro, monthly_budget_cents) VALUES (?, ?, ?, ?, ?, ?)",
			c.ID, c.FamilyID, c.Name, nullID(c.ParentID), string(c.Macro), core.Cents(c.MonthlyBudget)); err != nil {
			return err
		}
	}
	for _, c := range seed.RevenueCategories {
		if err := exec("revenue category", "INSERT OR IGNORE INTO revenue_categories (id, family_id, name) VALUES (?, ?, ?)", c.ID, c.FamilyID, c.Name); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	slog.InfoContext(ctx, "Seed loaded",
		"families", len(seed.Families),
		"members", len(seed.Members),
		"accounts", len(seed.Accounts),
		"cards", len(seed.Cards),
		"categories", len(seed.Categories))
	return nil
}

func (s *SQLiteStore) insert(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", what, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", what, err)
	}
	return id, nil
}

func (s *SQLiteStore) CreateFamily(ctx context.Context, name string) (core.Family, error) {
	f := core.Family{Name: name, InviteCode: uuid.New()}
	id, err := s.insert(ctx, "family", "INSERT INTO families (name, invite_code) VALUES (?, ?)", name, f.InviteCode.String())
	f.ID = id
	return f, err
}

// CreateMember adds a member; familyID 0 means no family.
func (s *SQLiteStore) CreateMember(ctx context.Context, username string, familyID int64) (core.Member, error) {
	m := core.Member{Username: username}
	var family any
	if familyID != 0 {
		family = familyID
		m.FamilyID = &familyID
	}
	id, err := s.insert(ctx, "member", "INSERT INTO members (username, family_id) VALUES (?, ?)", username, family)
	m.ID = id
	return m, err
}

// SetSubscription puts the family on the plan, creating the plan row by name.
func (s *SQLiteStore) SetSubscription(ctx context.Context, sub core.Subscription) error {
	if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO plans (name, monthly_price_cents) VALUES (?, ?)",
		sub.Plan.Name, core.Cents(sub.Plan.MonthlyPrice)); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO subscriptions (family_id, plan_id, status)
		SELECT ?, id, ? FROM plans WHERE name = ?`, sub.FamilyID, string(sub.Status), sub.Plan.Name); err != nil {
		return fmt.Errorf("set subscription: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.Type == "" {
		a.Type = core.Checking
	}
	id, err := s.insert(ctx, "account", "INSERT INTO accounts (family_id, name, type, initial_balance_cents) VALUES (?, ?, ?, ?)",
		a.FamilyID, a.Name, string(a.Type), core.Cents(a.InitialBalance))
	a.ID = id
	return a, err
}

func (s *SQLiteStore) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	id, err := s.insert(ctx, "card", "INSERT INTO cards (family_id, name, limit_cents, closing_day, due_day) VALUES (?, ?, ?, ?, ?)",
		c.FamilyID, c.Name, core.Cents(c.Limit), c.ClosingDay, c.DueDay)
	c.ID = id
	return c, err
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.Macro == "" {
		c.Macro = core.Unclassified
	}
	id, err := s.insert(ctx, "category", "INSERT INTO categories (family_id, name, parent_id, macro, monthly_budget_cents) VALUES (?, ?, ?, ?, ?)",
		c.FamilyID, c.Name, nullID(c.ParentID), string(c.Macro), core.Cents(c.MonthlyBudget))
	c.ID = id
	return c, err
}

func (s *SQLiteStore) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	id, err := s.insert(ctx, "goal", "INSERT INTO goals (family_id, name, target_cents, current_cents, created_on, deadline) VALUES (?, ?, ?, ?, ?, ?)",
		g.FamilyID, g.Name, core.Cents(g.Target), core.Cents(g.Current), g.CreatedOn.String(), nullDate(g.Deadline))
	g.ID = id
	return g, err
}

func (s *SQLiteStore) CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	id, err := s.insert(ctx, "investment", "INSERT INTO investments (family_id, name, kind, current_value_cents, created_on) VALUES (?, ?, ?, ?, ?)",
		inv.FamilyID, inv.Name, inv.Kind, core.Cents(inv.CurrentValue), inv.CreatedOn.String())
	inv.ID = id
	return inv, err
}
