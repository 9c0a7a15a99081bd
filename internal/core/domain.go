package core

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Individual Scope = "individual"
	Combined   Scope = "combined"
)

const (
	Realized  PeriodMode = "realized"
	Projected PeriodMode = "projected"
)

const (
	Need         MacroClass = "NEED"
	Want         MacroClass = "WANT"
	GoalMacro    MacroClass = "GOAL"
	Unclassified MacroClass = "UNCLASSIFIED"
)

const (
	Wallet   AccountType = "wallet"
	Checking AccountType = "checking"
	Savings  AccountType = "savings"
)

const (
	Weekly     Frequency = "weekly"
	Biweekly   Frequency = "biweekly"
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Annual     Frequency = "annual"
)

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Names of the categories the settlement paths materialize on first use.
const (
	InvoicePaymentCategory   = "Invoice Payment"
	GoalContributionCategory = "Goal Contributions"
	InvestmentCategory       = "Investments"
)

type (
	// Scope selects whose transactions an aggregation includes.
	Scope string

	PeriodMode string

	// MacroClass is the 50/30/20 bucket of a category.
	MacroClass string

	AccountType string

	Frequency string

	SubscriptionStatus string

	Family struct {
		ID         int64
		Name       string
		InviteCode uuid.UUID
	}

	// Member is a user profile. FamilyID is nil for members without a family.
	Member struct {
		ID       int64
		Username string
		FamilyID *int64
	}

	Plan struct {
		ID           int64
		Name         string
		MonthlyPrice decimal.Decimal
	}

	Subscription struct {
		FamilyID int64
		Plan     Plan
		Status   SubscriptionStatus
	}

	Account struct {
		ID             int64
		FamilyID       int64
		Name           string
		Type           AccountType
		InitialBalance decimal.Decimal
	}

	Card struct {
		ID         int64
		FamilyID   int64
		Name       string
		Limit      decimal.Decimal
		ClosingDay int
		DueDay     int
	}

	Category struct {
		ID            int64
		FamilyID      int64
		Name          string
		ParentID      *int64
		Macro         MacroClass
		MonthlyBudget decimal.Decimal
	}

	RevenueCategory struct {
		ID       int64
		FamilyID int64
		Name     string
	}

	// Expense is settled against exactly one of AccountID or CardID.
	Expense struct {
		ID                int64
		MemberID          int64
		Description       string
		Amount            decimal.Decimal
		Date              Date
		CategoryID        int64
		AccountID         *int64
		CardID            *int64
		IsInstallment     bool
		InstallmentIndex  int
		InstallmentCount  int
		PurchaseGroupID   uuid.NullUUID
		IsRecurring       bool
		RecurrenceGroupID uuid.NullUUID
		InvoicePaid       bool
	}

	Income struct {
		ID                int64
		MemberID          int64
		Description       string
		Amount            decimal.Decimal
		Date              Date
		CategoryID        int64
		AccountID         int64
		IsRecurring       bool
		RecurrenceGroupID uuid.NullUUID
	}

	Goal struct {
		ID        int64
		FamilyID  int64
		Name      string
		Target    decimal.Decimal
		Current   decimal.Decimal
		CreatedOn Date
		Deadline  *Date
	}

	Investment struct {
		ID           int64
		FamilyID     int64
		Name         string
		Kind         string
		CurrentValue decimal.Decimal
		CreatedOn    Date
	}

	Contribution struct {
		ID           int64
		InvestmentID int64
		MemberID     int64
		AccountID    int64
		Amount       decimal.Decimal
		Date         Date
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidScope     = errors.New("invalid scope")
	ErrInvalidMode      = errors.New("invalid period mode")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrNoSettlement     = errors.New("expense must target exactly one of account or card")
	ErrInvalidCount     = errors.New("count must be between 1 and 360")
	ErrDescriptionLong  = errors.New("description too long (max 255 characters)")
)

// MaxBatchSize bounds installment and repeat counts.
const MaxBatchSize = 360

func (s Scope) Valid() bool {
	return s == Individual || s == Combined
}

// ParseScope maps an empty string to Individual.
func ParseScope(s string) (Scope, error) {
	if strings.TrimSpace(s) == "" {
		return Individual, nil
	}
	scope := Scope(strings.ToLower(strings.TrimSpace(s)))
	if !scope.Valid() {
		return "", ErrInvalidScope
	}
	return scope, nil
}

// ParsePeriodMode maps an empty string to Realized.
func ParsePeriodMode(s string) (PeriodMode, error) {
	switch PeriodMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Realized:
		return Realized, nil
	case Projected:
		return Projected, nil
	default:
		return "", ErrInvalidMode
	}
}

func (m MacroClass) Valid() bool {
	switch m {
	case Need, Want, GoalMacro, Unclassified:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly, Quarterly, Semiannual, Annual:
		return true
	}
	return false
}

// IsPremium reports whether the subscription unlocks combined family views.
// The zero-priced plan is the free plan.
func (s Subscription) IsPremium() bool {
	return s.Status == SubscriptionActive && s.Plan.MonthlyPrice.IsPositive()
}

// Validate checks closing and due days independently.
func (c Card) Validate() error {
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return &ConfigurationError{Entity: "card", ID: c.ID, Reason: "closing day must be between 1 and 31"}
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return &ConfigurationError{Entity: "card", ID: c.ID, Reason: "due day must be between 1 and 31"}
	}
	return nil
}

// EffectiveMacro returns the category's own classification, falling back to
// the parent's when the category itself is unclassified.
func (c Category) EffectiveMacro(parent *Category) MacroClass {
	if c.Macro != "" && c.Macro != Unclassified {
		return c.Macro
	}
	if parent != nil && parent.Macro != "" {
		return parent.Macro
	}
	return Unclassified
}

// Progress is the goal completion percentage, capped at 100.
func (g Goal) Progress() decimal.Decimal {
	return Percent(g.Current, g.Target)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 255 {
		return ErrDescriptionLong
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if (e.AccountID == nil) == (e.CardID == nil) {
		return ErrNoSettlement
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(i.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(i.Description) > 255 {
		return ErrDescriptionLong
	}
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
