package http

import (
	"errors"
	"log/slog"
	"net/http"

	"finsight/internal/core"
)

type createdResponse struct {
	ID int64 `json:"id"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_body", err.Error()).Write(w)
		return
	}

	tx, err := req.toDomain()
	if err != nil {
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "invalid_transaction", err.Error()).Write(w)
		return
	}

	id, err := s.entries.CreateTransaction(r.Context(), tx)
	if err != nil {
		s.writeEntryError(w, r, "create transaction", err)
		return
	}

	s.insightCache.Purge()
	NewJSONResponse().Status(http.StatusCreated).Body(createdResponse{ID: id}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_period", err.Error()).Write(w)
		return
	}

	txs, err := s.entries.ListTransactions(r.Context(), period)
	if err != nil {
		s.writeEntryError(w, r, "list transactions", err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, transactionResponse{
			ID:          tx.ID,
			Date:        tx.Date.Format("2006-01-02"),
			Kind:        string(tx.Kind),
			Description: tx.Description,
			Amount:      tx.Amount.String(),
			Category:    tx.Category,
		})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_id", err.Error()).Write(w)
		return
	}

	period, err := parsePeriod(r)
	if err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_period", err.Error()).Write(w)
		return
	}

	if err := s.entries.DeleteTransaction(r.Context(), id, period); err != nil {
		s.writeEntryError(w, r, "delete transaction", err)
		return
	}

	s.insightCache.Purge()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type incomeResponse struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	Amount    string `json:"amount"`
	Frequency string `json:"frequency"`
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_body", err.Error()).Write(w)
		return
	}

	income, err := req.toDomain()
	if err != nil {
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "invalid_income", err.Error()).Write(w)
		return
	}

	id, err := s.entries.CreateRecurringIncome(r.Context(), income)
	if err != nil {
		s.writeEntryError(w, r, "create income", err)
		return
	}

	s.insightCache.Purge()
	NewJSONResponse().Status(http.StatusCreated).Body(createdResponse{ID: id}).Write(w)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.entries.ListRecurringIncomes(r.Context())
	if err != nil {
		s.writeEntryError(w, r, "list incomes", err)
		return
	}

	resp := make([]incomeResponse, 0, len(incomes))
	for _, ri := range incomes {
		resp = append(resp, incomeResponse{
			ID:        ri.ID,
			Source:    ri.Source,
			Amount:    ri.Amount.String(),
			Frequency: string(ri.Frequency),
		})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_id", err.Error()).Write(w)
		return
	}

	if err := s.entries.DeleteRecurringIncome(r.Context(), id); err != nil {
		s.writeEntryError(w, r, "delete income", err)
		return
	}

	s.insightCache.Purge()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type debtResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Balance    string  `json:"balance"`
	AnnualRate float64 `json:"annual_rate"`
	MinPayment string  `json:"min_payment"`
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeJSON(r, &req); err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_body", err.Error()).Write(w)
		return
	}

	debt, err := req.toDomain()
	if err != nil {
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "invalid_debt", err.Error()).Write(w)
		return
	}

	id, err := s.entries.CreateDebt(r.Context(), debt)
	if err != nil {
		s.writeEntryError(w, r, "create debt", err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(createdResponse{ID: id}).Write(w)
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.entries.ListDebts(r.Context())
	if err != nil {
		s.writeEntryError(w, r, "list debts", err)
		return
	}

	resp := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		resp = append(resp, debtResponse{
			ID:         d.ID,
			Name:       d.Name,
			Balance:    d.Balance.String(),
			AnnualRate: d.AnnualRate,
			MinPayment: d.MinPayment.String(),
		})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_id", err.Error()).Write(w)
		return
	}

	if err := s.entries.DeleteDebt(r.Context(), id); err != nil {
		s.writeEntryError(w, r, "delete debt", err)
		return
	}

	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type subscriptionResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Cost       string `json:"cost"`
	Frequency  string `json:"frequency"`
	UsageScore *int   `json:"usage_score"`
	ValueScore *int   `json:"value_score"`
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_body", err.Error()).Write(w)
		return
	}

	sub, err := req.toDomain()
	if err != nil {
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "invalid_subscription", err.Error()).Write(w)
		return
	}

	id, err := s.entries.CreateSubscription(r.Context(), sub)
	if err != nil {
		s.writeEntryError(w, r, "create subscription", err)
		return
	}

	s.insightCache.Purge()
	NewJSONResponse().Status(http.StatusCreated).Body(createdResponse{ID: id}).Write(w)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.entries.ListSubscriptions(r.Context())
	if err != nil {
		s.writeEntryError(w, r, "list subscriptions", err)
		return
	}

	resp := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, subscriptionResponse{
			ID:         sub.ID,
			Name:       sub.Name,
			Cost:       sub.Cost.String(),
			Frequency:  string(sub.Frequency),
			UsageScore: sub.UsageScore,
			ValueScore: sub.ValueScore,
		})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_id", err.Error()).Write(w)
		return
	}

	if err := s.entries.DeleteSubscription(r.Context(), id); err != nil {
		s.writeEntryError(w, r, "delete subscription", err)
		return
	}

	s.insightCache.Purge()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// writeEntryError maps service failures onto responses. Validation errors
// surface as 422, anything else is a 500.
func (s *Server) writeEntryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, core.ErrValidation) {
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "validation", err.Error()).Write(w)
		return
	}
	slog.ErrorContext(r.Context(), "Entry operation failed", "operation", op, "error", err)
	NewJSONResponse().Error(http.StatusInternalServerError, "internal", "operation failed").Write(w)
}
