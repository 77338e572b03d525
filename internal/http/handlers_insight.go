package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"finsight/internal/core"
	"finsight/internal/metrics"
)

type forecastResponse struct {
	ProjectedIncome   string  `json:"projected_income"`
	ProjectedExpenses string  `json:"projected_expenses"`
	NetCashflow       string  `json:"net_cashflow"`
	SavingsRate       float64 `json:"savings_rate"`
	IncomeChangePct   float64 `json:"income_change_pct"`
	ExpenseChangePct  float64 `json:"expense_change_pct"`
	InsufficientData  bool    `json:"insufficient_data"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "forecast"
	if body, ok := s.insightCache.Get(cacheKey); ok {
		writeCachedJSON(w, body)
		return
	}

	p, err := s.insights.Forecast(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Forecast failed", "error", err)
		NewJSONResponse().Error(http.StatusInternalServerError, "internal", "failed to compute forecast").Write(w)
		return
	}

	resp := forecastResponse{
		ProjectedIncome:   p.ProjectedIncome.String(),
		ProjectedExpenses: p.ProjectedExpenses.String(),
		NetCashflow:       p.NetCashflow.String(),
		SavingsRate:       p.SavingsRate,
		IncomeChangePct:   p.IncomeChangePct,
		ExpenseChangePct:  p.ExpenseChangePct,
		InsufficientData:  p.InsufficientData,
	}
	s.writeAndCache(w, cacheKey, resp)
}

type shareResponse struct {
	Name    string  `json:"name"`
	Amount  string  `json:"amount"`
	Percent float64 `json:"percent"`
}

type diversificationResponse struct {
	Period  string          `json:"period"`
	Score   int             `json:"score"`
	Insight string          `json:"insight"`
	Shares  []shareResponse `json:"shares"`
}

func (s *Server) handleDiversification(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_period", err.Error()).Write(w)
		return
	}

	cacheKey := "diversification:" + period
	if body, ok := s.insightCache.Get(cacheKey); ok {
		writeCachedJSON(w, body)
		return
	}

	result, err := s.insights.Diversification(r.Context(), period)
	if err != nil {
		slog.ErrorContext(r.Context(), "Diversification failed", "period", period, "error", err)
		NewJSONResponse().Error(http.StatusInternalServerError, "internal", "failed to compute diversification").Write(w)
		return
	}

	resp := diversificationResponse{
		Period:  period,
		Score:   result.Score,
		Insight: string(result.Insight),
		Shares:  make([]shareResponse, 0, len(result.Shares)),
	}
	for _, share := range result.Shares {
		resp.Shares = append(resp.Shares, shareResponse{
			Name:    share.Name,
			Amount:  share.Amount.String(),
			Percent: share.Percent,
		})
	}
	s.writeAndCache(w, cacheKey, resp)
}

type paymentResponse struct {
	DebtID   int64  `json:"debt_id"`
	Name     string `json:"name"`
	Interest string `json:"interest"`
	Payment  string `json:"payment"`
	Balance  string `json:"balance"`
}

type payoffMonthResponse struct {
	Month    int               `json:"month"`
	Payments []paymentResponse `json:"payments"`
}

type payoffResponse struct {
	Strategy      string                `json:"strategy"`
	Months        int                   `json:"months"`
	TotalInterest string                `json:"total_interest"`
	TotalPaid     string                `json:"total_paid"`
	Schedule      []payoffMonthResponse `json:"schedule"`
}

func (s *Server) handlePayoffPlan(w http.ResponseWriter, r *http.Request) {
	var req payoffRequest
	if err := decodeJSON(r, &req); err != nil {
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_body", err.Error()).Write(w)
		return
	}

	extra, strategy, err := req.toDomain()
	if err != nil {
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "invalid_plan", err.Error()).Write(w)
		return
	}

	plan, err := s.insights.PayoffPlan(r.Context(), extra, strategy)
	switch {
	case errors.Is(err, core.ErrDoesNotConverge):
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "does_not_converge",
			"minimum payments never retire these debts, increase the extra budget").Write(w)
		return
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, metrics.ErrUnknownStrategy):
		NewJSONResponse().Error(http.StatusUnprocessableEntity, "invalid_plan", err.Error()).Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Payoff simulation failed", "error", err)
		NewJSONResponse().Error(http.StatusInternalServerError, "internal", "failed to simulate payoff").Write(w)
		return
	}

	resp := payoffResponse{
		Strategy:      string(plan.Strategy),
		Months:        plan.Months,
		TotalInterest: plan.TotalInterest.String(),
		TotalPaid:     plan.TotalPaid.String(),
		Schedule:      make([]payoffMonthResponse, 0, len(plan.Schedule)),
	}
	for _, month := range plan.Schedule {
		mr := payoffMonthResponse{
			Month:    month.Month,
			Payments: make([]paymentResponse, 0, len(month.Payments)),
		}
		for _, p := range month.Payments {
			mr.Payments = append(mr.Payments, paymentResponse{
				DebtID:   p.DebtID,
				Name:     p.Name,
				Interest: p.Interest.String(),
				Payment:  p.Payment.String(),
				Balance:  p.Balance.String(),
			})
		}
		resp.Schedule = append(resp.Schedule, mr)
	}

	NewJSONResponse().Body(resp).Write(w)
}

type subscriptionValueResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Cost        string `json:"cost"`
	Frequency   string `json:"frequency"`
	MonthlyCost string `json:"monthly_cost"`
	Score       int    `json:"score"`
	Category    string `json:"category"`
}

func (s *Server) handleSubscriptionValue(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "subscription_value"
	if body, ok := s.insightCache.Get(cacheKey); ok {
		writeCachedJSON(w, body)
		return
	}

	report, err := s.insights.SubscriptionValue(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Subscription value report failed", "error", err)
		NewJSONResponse().Error(http.StatusInternalServerError, "internal", "failed to rank subscriptions").Write(w)
		return
	}

	resp := make([]subscriptionValueResponse, 0, len(report))
	for _, sv := range report {
		resp = append(resp, subscriptionValueResponse{
			ID:          sv.Subscription.ID,
			Name:        sv.Subscription.Name,
			Cost:        sv.Subscription.Cost.String(),
			Frequency:   string(sv.Subscription.Frequency),
			MonthlyCost: sv.MonthlyCost.String(),
			Score:       sv.Score,
			Category:    string(sv.Category),
		})
	}
	s.writeAndCache(w, cacheKey, resp)
}

type snapshotResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Period    string          `json:"period"`
	CreatedAt string          `json:"created_at"`
	Result    json.RawMessage `json:"result"`
}

// handleLatestSnapshot serves the last stored result of a metric kind.
// Snapshots are already computed, so this never triggers a recompute and
// bypasses the insight cache.
func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")

	snap, err := s.insights.LatestSnapshot(r.Context(), kind)
	switch {
	case errors.Is(err, core.ErrValidation):
		NewJSONResponse().Error(http.StatusBadRequest, "invalid_kind", err.Error()).Write(w)
		return
	case errors.Is(err, core.ErrNotFound):
		NewJSONResponse().Error(http.StatusNotFound, "not_found", "no snapshot computed for this kind yet").Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Latest snapshot lookup failed", "kind", kind, "error", err)
		NewJSONResponse().Error(http.StatusInternalServerError, "internal", "failed to load snapshot").Write(w)
		return
	}

	NewJSONResponse().Body(snapshotResponse{
		ID:        snap.ID,
		Kind:      snap.Kind,
		Period:    snap.Period,
		CreatedAt: snap.CreatedAt.UTC().Format(time.RFC3339),
		Result:    json.RawMessage(snap.Payload),
	}).Write(w)
}

// writeAndCache encodes the payload once, stores it for later hits, and
// writes it out.
func (s *Server) writeAndCache(w http.ResponseWriter, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode response body", "error", err)
		NewJSONResponse().Error(http.StatusInternalServerError, "internal", "encoding failure").Write(w)
		return
	}

	s.insightCache.Set(key, body)
	writeCachedJSON(w, body)
}

func writeCachedJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
