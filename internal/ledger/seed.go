package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"familyledger/internal/core"

	"github.com/shopspring/decimal"
)

// Seed is the JSON fixture document both stores can load. Ids are kept as
// given so rows can reference each other.
type Seed struct {
	Families          []SeedFamily          `json:"families"`
	Members           []SeedMember          `json:"members"`
	Accounts          []SeedAccount         `json:"accounts"`
	Cards             []SeedCard            `json:"cards"`
	Categories        []SeedCategory        `json:"categories"`
	RevenueCategories []SeedRevenueCategory `json:"revenue_categories"`
}

// ReadSeedFile decodes a seed document. ok is false when the file does not
// exist.
func ReadSeedFile(path string) (seed Seed, ok bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Seed{}, false, nil
	}
	if err != nil {
		return Seed{}, false, fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(raw, &seed); err != nil {
		return Seed{}, false, fmt.Errorf("decode seed file: %w", err)
	}
	return seed, true, nil
}

type SeedFamily struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Plan *SeedPlan `json:"plan,omitempty"`
}

type SeedPlan struct {
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	Status       string          `json:"status"`
}

// SeedMember with FamilyID 0 belongs to no family.
type SeedMember struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FamilyID int64  `json:"family_id"`
}

type SeedAccount struct {
	ID             int64           `json:"id"`
	FamilyID       int64           `json:"family_id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type SeedCard struct {
	ID         int64           `json:"id"`
	FamilyID   int64           `json:"family_id"`
	Name       string          `json:"name"`
	Limit      decimal.Decimal `json:"limit"`
	ClosingDay int             `json:"closing_day"`
	DueDay     int             `json:"due_day"`
}

type SeedCategory struct {
	ID            int64           `json:"id"`
	FamilyID      int64           `json:"family_id"`
	Name          string          `json:"name"`
	ParentID      *int64          `json:"parent_id"`
	Macro         string          `json:"macro"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
}

type SeedRevenueCategory struct {
	ID       int64  `json:"id"`
	FamilyID int64  `json:"family_id"`
	Name     string `json:"name"`
}

func (c SeedCard) Card() core.Card {
	return core.Card{ID: c.ID, FamilyID: c.FamilyID, Name: c.Name, Limit: c.Limit, ClosingDay: c.ClosingDay, DueDay: c.DueDay}
}

// Category returns the category with an empty macro defaulted to
// unclassified.
func (c SeedCategory) Category() core.Category {
	macro := core.MacroClass(c.Macro)
	if macro == "" {
		macro = core.Unclassified
	}
	return core.Category{ID: c.ID, FamilyID: c.FamilyID, Name: c.Name, ParentID: c.ParentID, Macro: macro, MonthlyBudget: c.MonthlyBudget}
}

// Validate checks cross references and card configuration before any row
// is written.
func (s Seed) Validate() error {
	families := map[int64]bool{}
	for _, f := range s.Families {
		families[f.ID] = true
	}
	for _, m := range s.Members {
		if m.FamilyID != 0 && !families[m.FamilyID] {
			return fmt.Errorf("seed member %d: unknown family %d", m.ID, m.FamilyID)
		}
	}
	for _, c := range s.Cards {
		if err := c.Card().Validate(); err != nil {
			return fmt.Errorf("seed card %d: %w", c.ID, err)
		}
	}
	for _, c := range s.Categories {
		if !c.Category().Macro.Valid() {
			return fmt.Errorf("seed category %d: invalid macro classification %q", c.ID, c.Macro)
		}
	}
	return nil
}
