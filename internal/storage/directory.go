package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familyledger/internal/core"

	"github.com/google/uuid"
)

const categoryColumns = "id, family_id, name, parent_id, macro, monthly_budget_cents"

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("get %s %d: %w", entity, id, err)
}

func (r *queries) GetMember(ctx context.Context, id int64) (core.Member, error) {
	var m core.Member
	var family sql.NullInt64
	err := r.q.QueryRowContext(ctx, "SELECT id, username, family_id FROM members WHERE id = ?", id).
		Scan(&m.ID, &m.Username, &family)
	if err != nil {
		return core.Member{}, notFound(err, "member", id)
	}
	m.FamilyID = ptrID(family)
	return m, nil
}

func (r *queries) GetFamily(ctx context.Context, id int64) (core.Family, error) {
	var f core.Family
	var invite string
	err := r.q.QueryRowContext(ctx, "SELECT id, name, invite_code FROM families WHERE id = ?", id).
		Scan(&f.ID, &f.Name, &invite)
	if err != nil {
		return core.Family{}, notFound(err, "family", id)
	}
	if f.InviteCode, err = uuid.Parse(invite); err != nil {
		return core.Family{}, fmt.Errorf("family %d invite code: %w", id, err)
	}
	return f, nil
}

func (r *queries) ListFamilyMembers(ctx context.Context, familyID int64) ([]core.Member, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, username FROM members WHERE family_id = ? ORDER BY id", familyID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		m := core.Member{FamilyID: &familyID}
		if err := rows.Scan(&m.ID, &m.Username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *queries) GetSubscription(ctx context.Context, familyID int64) (core.Subscription, error) {
	sub := core.Subscription{FamilyID: familyID}
	var cents int64
	var status string
	err := r.q.QueryRowContext(ctx, `SELECT p.id, p.name, p.monthly_price_cents, s.status
		FROM subscriptions s JOIN plans p ON p.id = s.plan_id WHERE s.family_id = ?`, familyID).
		Scan(&sub.Plan.ID, &sub.Plan.Name, &cents, &status)
	if errors.Is(err, sql.ErrNoRows) {
		sub.Plan = core.Plan{Name: "Free"}
		sub.Status = core.SubscriptionActive
		return sub, nil
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	sub.Plan.MonthlyPrice = core.FromCents(cents)
	sub.Status = core.SubscriptionStatus(status)
	return sub, nil
}

func scanAccount(s scanner) (core.Account, error) {
	var a core.Account
	var typ string
	var cents int64
	if err := s.Scan(&a.ID, &a.FamilyID, &a.Name, &typ, &cents); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	a.InitialBalance = core.FromCents(cents)
	return a, nil
}

func (r *queries) ListAccounts(ctx context.Context, familyID int64) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, family_id, name, type, initial_balance_cents FROM accounts WHERE family_id = ? ORDER BY name, id", familyID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return collect(rows, scanAccount)
}

func (r *queries) GetAccount(ctx context.Context, familyID, id int64) (core.Account, error) {
	a, err := scanAccount(r.q.QueryRowContext(ctx, "SELECT id, family_id, name, type, initial_balance_cents FROM accounts WHERE id = ? AND family_id = ?", id, familyID))
	if err != nil {
		return core.Account{}, notFound(err, "account", id)
	}
	return a, nil
}

func scanCard(s scanner) (core.Card, error) {
	var c core.Card
	var cents int64
	if err := s.Scan(&c.ID, &c.FamilyID, &c.Name, &cents, &c.ClosingDay, &c.DueDay); err != nil {
		return core.Card{}, err
	}
	c.Limit = core.FromCents(cents)
	return c, nil
}

func (r *queries) ListCards(ctx context.Context, familyID int64) ([]core.Card, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, family_id, name, limit_cents, closing_day, due_day FROM cards WHERE family_id = ? ORDER BY id", familyID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return collect(rows, scanCard)
}

func (r *queries) GetCard(ctx context.Context, familyID, id int64) (core.Card, error) {
	c, err := scanCard(r.q.QueryRowContext(ctx, "SELECT id, family_id, name, limit_cents, closing_day, due_day FROM cards WHERE id = ? AND family_id = ?", id, familyID))
	if err != nil {
		return core.Card{}, notFound(err, "card", id)
	}
	return c, nil
}

func scanCategory(s scanner) (core.Category, error) {
	var c core.Category
	var parent sql.NullInt64
	var macro string
	var cents int64
	if err := s.Scan(&c.ID, &c.FamilyID, &c.Name, &parent, &macro, &cents); err != nil {
		return core.Category{}, err
	}
	c.ParentID = ptrID(parent)
	c.Macro = core.MacroClass(macro)
	c.MonthlyBudget = core.FromCents(cents)
	return c, nil
}

func (r *queries) ListCategories(ctx context.Context, familyID int64) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE family_id = ? ORDER BY id", familyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return collect(rows, scanCategory)
}

func (r *queries) GetCategory(ctx context.Context, familyID, id int64) (core.Category, error) {
	c, err := scanCategory(r.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ? AND family_id = ?", id, familyID))
	if err != nil {
		return core.Category{}, notFound(err, "category", id)
	}
	return c, nil
}

func (r *queries) GetRevenueCategory(ctx context.Context, familyID, id int64) (core.RevenueCategory, error) {
	var c core.RevenueCategory
	err := r.q.QueryRowContext(ctx, "SELECT id, family_id, name FROM revenue_categories WHERE id = ? AND family_id = ?", id, familyID).
		Scan(&c.ID, &c.FamilyID, &c.Name)
	if err != nil {
		return core.RevenueCategory{}, notFound(err, "revenue category", id)
	}
	return c, nil
}

func scanInvestment(s scanner) (core.Investment, error) {
	var inv core.Investment
	var cents int64
	var created string
	if err := s.Scan(&inv.ID, &inv.FamilyID, &inv.Name, &inv.Kind, &cents, &created); err != nil {
		return core.Investment{}, err
	}
	inv.CurrentValue = core.FromCents(cents)
	var err error
	if inv.CreatedOn, err = core.ParseDate(created); err != nil {
		return core.Investment{}, err
	}
	return inv, nil
}

func (r *queries) ListInvestments(ctx context.Context, familyID int64) ([]core.Investment, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id, family_id, name, kind, current_value_cents, created_on FROM investments WHERE family_id = ? ORDER BY id", familyID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	return collect(rows, scanInvestment)
}

func (r *queries) GetInvestment(ctx context.Context, familyID, id int64) (core.Investment, error) {
	inv, err := scanInvestment(r.q.QueryRowContext(ctx, "SELECT id, family_id, name, kind, current_value_cents, created_on FROM investments WHERE id = ? AND family_id = ?", id, familyID))
	if err != nil {
		return core.Investment{}, notFound(err, "investment", id)
	}
	return inv, nil
}

const goalColumns = "id, family_id, name, target_cents, current_cents, created_on, deadline"

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g               core.Goal
		target, current int64
		created         string
		deadline        sql.NullString
	)
	if err := s.Scan(&g.ID, &g.FamilyID, &g.Name, &target, &current, &created, &deadline); err != nil {
		return core.Goal{}, err
	}
	g.Target = core.FromCents(target)
	g.Current = core.FromCents(current)
	var err error
	if g.CreatedOn, err = core.ParseDate(created); err != nil {
		return core.Goal{}, err
	}
	if deadline.Valid {
		d, err := core.ParseDate(deadline.String)
		if err != nil {
			return core.Goal{}, err
		}
		g.Deadline = &d
	}
	return g, nil
}

func (r *queries) GetGoal(ctx context.Context, familyID, id int64) (core.Goal, error) {
	g, err := scanGoal(r.q.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ? AND family_id = ?", id, familyID))
	if err != nil {
		return core.Goal{}, notFound(err, "goal", id)
	}
	return g, nil
}

func (r *queries) ListGoals(ctx context.Context, familyID int64) ([]core.Goal, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE family_id = ? ORDER BY current_cents DESC, id", familyID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return collect(rows, scanGoal)
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
