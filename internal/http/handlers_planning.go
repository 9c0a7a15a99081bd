package http

import (
	"net/http"

	"familyledger/internal/core"
	applog "familyledger/internal/log"
	"familyledger/internal/services"
)

type installmentRequest struct {
	Description string    `json:"description"`
	Total       string    `json:"total"`
	Count       int       `json:"count"`
	StartDate   core.Date `json:"start_date"`
	CategoryID  int64     `json:"category_id"`
	AccountID   *int64    `json:"account_id"`
	CardID      *int64    `json:"card_id"`
}

type recurringRequest struct {
	Description string         `json:"description"`
	Amount      string         `json:"amount"`
	Frequency   core.Frequency `json:"frequency"`
	Repeat      int            `json:"repeat"`
	StartDate   core.Date      `json:"start_date"`
	CategoryID  int64          `json:"category_id"`
	AccountID   *int64         `json:"account_id"`
	CardID      *int64         `json:"card_id"`
}

type contributionRequest struct {
	AccountID int64     `json:"account_id"`
	Amount    string    `json:"amount"`
	Date      core.Date `json:"date"`
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req installmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	total, err := parseAmount("total", req.Total)
	if err != nil {
		writeError(w, r, err)
		return
	}

	batch, err := s.engine.Expander.ExpandInstallments(r.Context(), view, services.InstallmentPlan{
		Description: req.Description,
		Total:       total,
		Count:       req.Count,
		Start:       orToday(req.StartDate, s.engine.Clock.Today()),
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		CardID:      req.CardID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logBatch(r, view, batch)
	writeJSON(w, http.StatusCreated, newBatchDTO(batch))
}

func (s *Server) handleRecurringExpense(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	batch, err := s.engine.Expander.ExpandRecurringExpense(r.Context(), view, services.RecurringExpense{
		Description: req.Description,
		Amount:      amount,
		Frequency:   req.Frequency,
		Repeat:      req.Repeat,
		Start:       orToday(req.StartDate, s.engine.Clock.Today()),
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		CardID:      req.CardID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logBatch(r, view, batch)
	writeJSON(w, http.StatusCreated, newBatchDTO(batch))
}

// handleRecurringIncome takes the recurring body; card_id is rejected and
// account_id is required.
func (s *Server) handleRecurringIncome(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CardID != nil {
		writeError(w, r, badRequestf("incomes cannot target a card"))
		return
	}
	if req.AccountID == nil {
		writeError(w, r, badRequestf("account_id is required"))
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	batch, err := s.engine.Expander.ExpandRecurringIncome(r.Context(), view, services.RecurringIncome{
		Description: req.Description,
		Amount:      amount,
		Frequency:   req.Frequency,
		Repeat:      req.Repeat,
		Start:       orToday(req.StartDate, s.engine.Clock.Today()),
		CategoryID:  req.CategoryID,
		AccountID:   *req.AccountID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logBatch(r, view, batch)
	writeJSON(w, http.StatusCreated, newBatchDTO(batch))
}

func (s *Server) logBatch(r *http.Request, view services.View, b services.Batch) {
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Batch expanded",
		applog.FieldMemberID, view.Requester.ID, applog.FieldGroupID, b.GroupID.String(), "rows", b.Size())
}

func (s *Server) decodeContribution(w http.ResponseWriter, r *http.Request) (services.View, int64, contributionRequest, error) {
	var req contributionRequest
	view, err := s.resolveView(r)
	if err != nil {
		return view, 0, req, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return view, 0, req, err
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return view, 0, req, err
	}
	if req.AccountID <= 0 {
		return view, 0, req, badRequestf("account_id is required")
	}
	return view, id, req, nil
}

func (s *Server) handleGoalContribution(w http.ResponseWriter, r *http.Request) {
	view, goalID, req, err := s.decodeContribution(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.engine.Contributions.ContributeToGoal(r.Context(), view, goalID, req.AccountID, amount, req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Goal    goalDTO    `json:"goal"`
		Expense expenseDTO `json:"expense"`
	}{newGoalDTO(res.Goal), newExpenseDTO(res.Expense)})
}

func (s *Server) handleInvestmentContribution(w http.ResponseWriter, r *http.Request) {
	view, investmentID, req, err := s.decodeContribution(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.engine.Contributions.ContributeToInvestment(r.Context(), view, investmentID, req.AccountID, amount, req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	type investmentDTO struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Kind         string `json:"kind"`
		CurrentValue string `json:"current_value"`
	}
	type contributionDTO struct {
		ID     int64     `json:"id"`
		Amount string    `json:"amount"`
		Date   core.Date `json:"date"`
	}
	writeJSON(w, http.StatusCreated, struct {
		Investment   investmentDTO   `json:"investment"`
		Contribution contributionDTO `json:"contribution"`
		Expense      expenseDTO      `json:"expense"`
	}{
		investmentDTO{res.Investment.ID, res.Investment.Name, res.Investment.Kind, money(res.Investment.CurrentValue)},
		contributionDTO{res.Contribution.ID, money(res.Contribution.Amount), res.Contribution.Date},
		newExpenseDTO(res.Expense),
	})
}
