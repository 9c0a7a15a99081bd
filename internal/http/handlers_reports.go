package http

import (
	"net/http"

	"familyledger/internal/core"
)

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := core.ParsePeriodMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.engine.Projector.Project(r.Context(), view, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectionDTO(view, p))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := queryMonth(r.URL.Query(), s.engine.Clock.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.engine.Budget.Report(r.Context(), view, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetDTO(view, report))
}

func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := queryMonth(r.URL.Query(), s.engine.Clock.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.engine.Dashboard.SpendingByCategory(r.Context(), view, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if month.IsZero() {
		month = s.engine.Clock.Today().FirstOfMonth()
	}
	writeJSON(w, http.StatusOK, struct {
		View       viewDTO             `json:"view"`
		Month      string              `json:"month"`
		Categories []categoryAmountDTO `json:"categories"`
	}{newViewDTO(view), month.Format("2006-01"), newCategoryAmountDTOs(rows)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := core.ParsePeriodMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.engine.Dashboard.Summary(r.Context(), view, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardDTO(d))
}
