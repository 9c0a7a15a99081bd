package http

import (
	"net/http"

	"familyledger/internal/core"
	applog "familyledger/internal/log"
)

type accountsResponse struct {
	View     viewDTO             `json:"view"`
	AsOf     core.Date           `json:"as_of"`
	Accounts []accountBalanceDTO `json:"accounts"`
	Total    string              `json:"total"`
}

// handleListBalances reports every family account as of ?date= (default today).
func (s *Server) handleListBalances(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := queryDate(r.URL.Query(), "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf = orToday(asOf, s.engine.Clock.Today())

	var accounts []core.Account
	if view.Family != nil {
		accounts, err = s.engine.Store.ListAccounts(r.Context(), view.FamilyID())
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	balances, total, err := s.engine.Balances.Balances(r.Context(), accounts, view.Members, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := accountsResponse{View: newViewDTO(view), AsOf: asOf, Accounts: make([]accountBalanceDTO, 0, len(balances)), Total: money(total)}
	for _, b := range balances {
		resp.Accounts = append(resp.Accounts, newAccountBalanceDTO(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := queryDate(r.URL.Query(), "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf = orToday(asOf, s.engine.Clock.Today())

	account, err := s.engine.Store.GetAccount(r.Context(), view.FamilyID(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := s.engine.Balances.Balance(r.Context(), account, view.Members, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		View viewDTO `json:"view"`
		accountBalanceDTO
	}{newViewDTO(view), accountBalanceDTO{AccountID: account.ID, Name: account.Name, Type: account.Type, AsOf: asOf, Balance: money(balance)}})
}

func (s *Server) handleOpenInvoice(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := queryDate(r.URL.Query(), "date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf = orToday(asOf, s.engine.Clock.Today())

	card, err := s.engine.Store.GetCard(r.Context(), view.FamilyID(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := s.engine.Billing.OpenInvoice(r.Context(), card, view.Members, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceDTO(inv))
}

type paymentRequest struct {
	AccountID   int64     `json:"account_id"`
	PaymentDate core.Date `json:"payment_date"`
}

// handlePayInvoice settles the open invoice. A no-op settlement is still 200.
func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolveView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.AccountID <= 0 {
		writeError(w, r, badRequestf("account_id is required"))
		return
	}

	settlement, err := s.engine.Billing.PayInvoice(r.Context(), view, cardID, req.AccountID, req.PaymentDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !settlement.NoOp {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Invoice payment recorded",
			applog.FieldMemberID, view.Requester.ID, applog.FieldCardID, cardID,
			applog.FieldAmount, money(settlement.Payment.Amount))
	}
	writeJSON(w, http.StatusOK, newSettlementDTO(settlement))
}
