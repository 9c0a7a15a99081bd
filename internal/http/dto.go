package http

import (
	"fmt"

	"github.com/shopspring/decimal"

	"familyledger/internal/core"
	"familyledger/internal/services"
)

// Amounts are rendered as fixed two-place strings so clients never see
// binary floating point.
func money(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

type viewDTO struct {
	MemberID       int64      `json:"member_id"`
	FamilyID       int64      `json:"family_id,omitempty"`
	RequestedScope core.Scope `json:"requested_scope"`
	Scope          core.Scope `json:"scope"`
	Downgraded     bool       `json:"downgraded"`
	Premium        bool       `json:"premium"`
	Members        []int64    `json:"members"`
}

func newViewDTO(v services.View) viewDTO {
	return viewDTO{
		MemberID:       v.Requester.ID,
		FamilyID:       v.FamilyID(),
		RequestedScope: v.Requested,
		Scope:          v.Scope,
		Downgraded:     v.Downgraded(),
		Premium:        v.Premium,
		Members:        v.Members,
	}
}

type accountBalanceDTO struct {
	AccountID int64            `json:"account_id"`
	Name      string           `json:"name"`
	Type      core.AccountType `json:"type"`
	AsOf      core.Date        `json:"as_of"`
	Balance   string           `json:"balance"`
}

func newAccountBalanceDTO(b services.AccountBalance) accountBalanceDTO {
	return accountBalanceDTO{
		AccountID: b.Account.ID,
		Name:      b.Account.Name,
		Type:      b.Account.Type,
		AsOf:      b.AsOf,
		Balance:   money(b.Balance),
	}
}

type expenseDTO struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Date        core.Date `json:"date"`
	CategoryID  int64     `json:"category_id,omitempty"`
	AccountID   *int64    `json:"account_id,omitempty"`
	CardID      *int64    `json:"card_id,omitempty"`
	Installment string    `json:"installment,omitempty"`
	GroupID     string    `json:"group_id,omitempty"`
	InvoicePaid bool      `json:"invoice_paid"`
}

func newExpenseDTO(e core.Expense) expenseDTO {
	dto := expenseDTO{
		ID:          e.ID,
		MemberID:    e.MemberID,
		Description: e.Description,
		Amount:      money(e.Amount),
		Date:        e.Date,
		CategoryID:  e.CategoryID,
		AccountID:   e.AccountID,
		CardID:      e.CardID,
		InvoicePaid: e.InvoicePaid,
	}
	if e.IsInstallment {
		dto.Installment = fmt.Sprintf("%d/%d", e.InstallmentIndex, e.InstallmentCount)
	}
	switch {
	case e.PurchaseGroupID.Valid:
		dto.GroupID = e.PurchaseGroupID.UUID.String()
	case e.RecurrenceGroupID.Valid:
		dto.GroupID = e.RecurrenceGroupID.UUID.String()
	}
	return dto
}

func newExpenseDTOs(rows []core.Expense) []expenseDTO {
	out := make([]expenseDTO, 0, len(rows))
	for _, e := range rows {
		out = append(out, newExpenseDTO(e))
	}
	return out
}

type incomeDTO struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Date        core.Date `json:"date"`
	CategoryID  int64     `json:"category_id,omitempty"`
	AccountID   int64     `json:"account_id"`
	GroupID     string    `json:"group_id,omitempty"`
}

func newIncomeDTO(i core.Income) incomeDTO {
	dto := incomeDTO{
		ID:          i.ID,
		MemberID:    i.MemberID,
		Description: i.Description,
		Amount:      money(i.Amount),
		Date:        i.Date,
		CategoryID:  i.CategoryID,
		AccountID:   i.AccountID,
	}
	if i.RecurrenceGroupID.Valid {
		dto.GroupID = i.RecurrenceGroupID.UUID.String()
	}
	return dto
}

type invoiceDTO struct {
	CardID      int64        `json:"card_id"`
	CardName    string       `json:"card_name"`
	PeriodStart core.Date    `json:"period_start"`
	PeriodEnd   core.Date    `json:"period_end"`
	DueDate     core.Date    `json:"due_date"`
	Total       string       `json:"total"`
	Items       []expenseDTO `json:"items"`
}

func newInvoiceDTO(inv services.Invoice) invoiceDTO {
	return invoiceDTO{
		CardID:      inv.Card.ID,
		CardName:    inv.Card.Name,
		PeriodStart: inv.PeriodStart,
		PeriodEnd:   inv.PeriodEnd,
		DueDate:     inv.DueDate,
		Total:       money(inv.Total),
		Items:       newExpenseDTOs(inv.Items),
	}
}

type settlementDTO struct {
	NoOp    bool        `json:"no_op"`
	Invoice invoiceDTO  `json:"invoice"`
	Payment *expenseDTO `json:"payment,omitempty"`
}

func newSettlementDTO(s services.Settlement) settlementDTO {
	dto := settlementDTO{NoOp: s.NoOp, Invoice: newInvoiceDTO(s.Invoice)}
	if !s.NoOp {
		p := newExpenseDTO(s.Payment)
		dto.Payment = &p
	}
	return dto
}

type netWorthPointDTO struct {
	Offset      int       `json:"offset"`
	Label       string    `json:"label"`
	Cutoff      core.Date `json:"cutoff"`
	Assets      string    `json:"assets"`
	Liabilities string    `json:"liabilities"`
	NetWorth    string    `json:"net_worth"`
}

type projectionDTO struct {
	View   viewDTO            `json:"view"`
	Mode   core.PeriodMode    `json:"mode"`
	Today  core.Date          `json:"today"`
	Points []netWorthPointDTO `json:"points"`
}

func newNetWorthPointDTO(p services.NetWorthPoint) netWorthPointDTO {
	return netWorthPointDTO{
		Offset:      p.Offset,
		Label:       p.Label,
		Cutoff:      p.Cutoff,
		Assets:      money(p.Assets),
		Liabilities: money(p.Liabilities),
		NetWorth:    money(p.NetWorth),
	}
}

func newProjectionDTO(v services.View, p services.Projection) projectionDTO {
	dto := projectionDTO{View: newViewDTO(v), Mode: p.Mode, Today: p.Today, Points: make([]netWorthPointDTO, 0, len(p.Points))}
	for _, pt := range p.Points {
		dto.Points = append(dto.Points, newNetWorthPointDTO(pt))
	}
	return dto
}

type categoryBudgetDTO struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Macro      core.MacroClass `json:"macro"`
	Budget     string          `json:"budget"`
	Spent      string          `json:"spent"`
	Remaining  string          `json:"remaining"`
	Progress   string          `json:"progress"`
}

type macroBudgetDTO struct {
	Macro     core.MacroClass `json:"macro"`
	Target    string          `json:"target"`
	Spent     string          `json:"spent"`
	Remaining string          `json:"remaining"`
	Progress  string          `json:"progress"`
}

type budgetDTO struct {
	View       viewDTO             `json:"view"`
	Month      string              `json:"month"`
	Income     string              `json:"income"`
	Categories []categoryBudgetDTO `json:"categories"`
	Macros     []macroBudgetDTO    `json:"macros"`
}

func newBudgetDTO(v services.View, b services.BudgetReport) budgetDTO {
	dto := budgetDTO{
		View:       newViewDTO(v),
		Month:      b.Month.Format("2006-01"),
		Income:     money(b.Income),
		Categories: make([]categoryBudgetDTO, 0, len(b.Categories)),
		Macros:     make([]macroBudgetDTO, 0, len(b.Macros)),
	}
	for _, c := range b.Categories {
		dto.Categories = append(dto.Categories, categoryBudgetDTO{
			CategoryID: c.Category.ID,
			Name:       c.Category.Name,
			Macro:      c.Category.Macro,
			Budget:     money(c.Budget),
			Spent:      money(c.Spent),
			Remaining:  money(c.Remaining),
			Progress:   money(c.Progress),
		})
	}
	for _, m := range b.Macros {
		dto.Macros = append(dto.Macros, macroBudgetDTO{
			Macro:     m.Macro,
			Target:    money(m.Target),
			Spent:     money(m.Spent),
			Remaining: money(m.Remaining),
			Progress:  money(m.Progress),
		})
	}
	return dto
}

type categoryAmountDTO struct {
	CategoryID int64  `json:"category_id,omitempty"`
	Name       string `json:"name"`
	Amount     string `json:"amount"`
}

func newCategoryAmountDTOs(rows []core.CategoryAmount) []categoryAmountDTO {
	out := make([]categoryAmountDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, categoryAmountDTO{CategoryID: r.CategoryID, Name: r.Name, Amount: money(r.Amount)})
	}
	return out
}

type goalDTO struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Target   string     `json:"target"`
	Current  string     `json:"current"`
	Progress string     `json:"progress"`
	Deadline *core.Date `json:"deadline,omitempty"`
}

func newGoalDTO(g core.Goal) goalDTO {
	return goalDTO{
		ID:       g.ID,
		Name:     g.Name,
		Target:   money(g.Target),
		Current:  money(g.Current),
		Progress: money(g.Progress()),
		Deadline: g.Deadline,
	}
}

type monthTotalsDTO struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	Income       string `json:"income"`
	AccountSpend string `json:"account_spend"`
	CardSpend    string `json:"card_spend"`
	TotalSpend   string `json:"total_spend"`
	CashBalance  string `json:"cash_balance"`
}

type dashboardDTO struct {
	View                viewDTO             `json:"view"`
	Mode                core.PeriodMode     `json:"mode"`
	Today               core.Date           `json:"today"`
	BalancesAsOf        core.Date           `json:"balances_as_of"`
	Balances            []accountBalanceDTO `json:"balances"`
	BalanceTotal        string              `json:"balance_total"`
	Month               monthTotalsDTO      `json:"month"`
	Invoices            []invoiceDTO        `json:"invoices"`
	CardDebt            string              `json:"card_debt"`
	TopCategories       []categoryAmountDTO `json:"top_categories"`
	TopGoals            []goalDTO           `json:"top_goals"`
	NetWorth            string              `json:"net_worth"`
	ShowFamilyToggle    bool                `json:"show_family_toggle"`
	FamilyToggleEnabled bool                `json:"family_toggle_enabled"`
}

func newDashboardDTO(d services.DashboardSummary) dashboardDTO {
	dto := dashboardDTO{
		View:         newViewDTO(d.View),
		Mode:         d.Mode,
		Today:        d.Today,
		BalancesAsOf: d.BalancesAsOf,
		Balances:     make([]accountBalanceDTO, 0, len(d.Balances)),
		BalanceTotal: money(d.BalanceTotal),
		Month: monthTotalsDTO{
			Year:         d.Month.Year,
			Month:        d.Month.Month,
			Income:       money(d.Month.Income),
			AccountSpend: money(d.Month.AccountSpend),
			CardSpend:    money(d.Month.CardSpend),
			TotalSpend:   money(d.Month.TotalSpend),
			CashBalance:  money(d.Month.CashBalance),
		},
		Invoices:            make([]invoiceDTO, 0, len(d.Invoices)),
		CardDebt:            money(d.CardDebt),
		TopCategories:       newCategoryAmountDTOs(d.TopCategories),
		TopGoals:            make([]goalDTO, 0, len(d.TopGoals)),
		NetWorth:            money(d.NetWorth),
		ShowFamilyToggle:    d.ShowFamilyToggle,
		FamilyToggleEnabled: d.FamilyToggleEnabled,
	}
	for _, b := range d.Balances {
		dto.Balances = append(dto.Balances, newAccountBalanceDTO(b))
	}
	for _, inv := range d.Invoices {
		dto.Invoices = append(dto.Invoices, newInvoiceDTO(inv))
	}
	for _, g := range d.TopGoals {
		dto.TopGoals = append(dto.TopGoals, newGoalDTO(g))
	}
	return dto
}

type batchDTO struct {
	GroupID  string       `json:"group_id"`
	Count    int          `json:"count"`
	Expenses []expenseDTO `json:"expenses,omitempty"`
	Incomes  []incomeDTO  `json:"incomes,omitempty"`
}

func newBatchDTO(b services.Batch) batchDTO {
	dto := batchDTO{GroupID: b.GroupID.String(), Count: b.Size()}
	if len(b.Expenses) > 0 {
		dto.Expenses = newExpenseDTOs(b.Expenses)
	}
	for _, i := range b.Incomes {
		dto.Incomes = append(dto.Incomes, newIncomeDTO(i))
	}
	return dto
}
