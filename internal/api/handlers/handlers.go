// Package handlers exposes the reconciliation, credit-limit, forecast
// and payment-status operations over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dsilveira/finledger/internal/api/middleware"
	"github.com/dsilveira/finledger/internal/creditlimit"
	"github.com/dsilveira/finledger/internal/domain"
	"github.com/dsilveira/finledger/internal/forecast"
	"github.com/dsilveira/finledger/internal/ledger"
	"github.com/dsilveira/finledger/internal/paystatus"
	"github.com/dsilveira/finledger/internal/store"
)

// parsePeriod reads month and year query parameters and validates the
// pair.
func parsePeriod(r *http.Request) (month, year int, err error) {
	month, err = strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		return 0, 0, errors.New("month is required")
	}
	year, err = strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return 0, 0, errors.New("year is required")
	}
	ref := domain.MonthRef{Month: month, Year: year}
	if !ref.Valid() {
		return 0, 0, errors.New("invalid month/year")
	}
	return month, year, nil
}

// BalancesHandler handles balance and reconciliation endpoints.
type BalancesHandler struct {
	engine *ledger.Engine
	log    zerolog.Logger
}

// NewBalancesHandler creates a new balances handler.
func NewBalancesHandler(engine *ledger.Engine, log zerolog.Logger) *BalancesHandler {
	return &BalancesHandler{engine: engine, log: log}
}

// GetBalance handles GET /api/users/:userId/balance?month=&year=
func (h *BalancesHandler) GetBalance(w http.ResponseWriter, r *http.Request, userID string) {
	month, year, err := parsePeriod(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.engine.ReconcileMonth(r.Context(), userID, month, year)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month":    month,
		"year":     year,
		"opening":  result.Opening,
		"income":   result.Income,
		"expenses": result.Expenses,
		"closing":  result.Closing,
		"unknown":  result.Unknown,
	})
}

// SetOpeningBalance handles PUT /api/users/:userId/balance/opening
func (h *BalancesHandler) SetOpeningBalance(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Month int     `json:"month"`
		Year  int     `json:"year"`
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !domain.IsFinite(req.Value) {
		middleware.WriteError(w, http.StatusBadRequest, "Value must be a finite number")
		return
	}

	if err := h.engine.SetOpeningBalance(r.Context(), userID, req.Month, req.Year, req.Value); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to set opening balance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to set opening balance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Recalculate handles POST /api/users/:userId/recalculate
func (h *BalancesHandler) Recalculate(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Month int  `json:"month"`
		Year  int  `json:"year"`
		Force bool `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.engine.CascadeFrom(r.Context(), userID, req.Month, req.Year, req.Force); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to recalculate balances")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to recalculate balances")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CheckContinuity handles POST /api/users/:userId/continuity
func (h *BalancesHandler) CheckContinuity(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Month int `json:"month"`
		Year  int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.engine.EnsureContinuity(r.Context(), userID, req.Month, req.Year); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to check continuity")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to check continuity")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CardsHandler handles credit-limit endpoints.
type CardsHandler struct {
	svc *creditlimit.Service
	log zerolog.Logger
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(svc *creditlimit.Service, log zerolog.Logger) *CardsHandler {
	return &CardsHandler{svc: svc, log: log}
}

// ListLimits handles GET /api/users/:userId/cards
func (h *CardsHandler) ListLimits(w http.ResponseWriter, r *http.Request, userID string) {
	snapshots, err := h.svc.Snapshots(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute card limits")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute card limits")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cards": snapshots,
		"count": len(snapshots),
	})
}

// GetLimit handles GET /api/users/:userId/cards/:cardId
func (h *CardsHandler) GetLimit(w http.ResponseWriter, r *http.Request, userID, cardID string) {
	snapshot, err := h.svc.Snapshot(r.Context(), userID, cardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Card not found")
			return
		}
		h.log.Error().Err(err).Str("card_id", cardID).Msg("Failed to compute card limit")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute card limit")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, snapshot)
}

// ForecastHandler handles forecast endpoints.
type ForecastHandler struct {
	svc *forecast.Service
	log zerolog.Logger
}

// NewForecastHandler creates a new forecast handler.
func NewForecastHandler(svc *forecast.Service, log zerolog.Logger) *ForecastHandler {
	return &ForecastHandler{svc: svc, log: log}
}

// GetForecast handles GET /api/users/:userId/forecast
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request, userID string) {
	months, err := h.svc.Project12Months(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to project forecast")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to project forecast")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"months": months,
		"alerts": forecast.GenerateAlerts(months),
	})
}

// CommitmentsHandler handles payment-status endpoints.
type CommitmentsHandler struct {
	svc *paystatus.Service
	log zerolog.Logger
}

// NewCommitmentsHandler creates a new commitments handler.
func NewCommitmentsHandler(svc *paystatus.Service, log zerolog.Logger) *CommitmentsHandler {
	return &CommitmentsHandler{svc: svc, log: log}
}

// GetStatus handles GET /api/commitments/:id/status?month=&year=
func (h *CommitmentsHandler) GetStatus(w http.ResponseWriter, r *http.Request, commitmentID string) {
	month, year, err := parsePeriod(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.svc.Resolve(r.Context(), commitmentID, month, year)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Commitment not found")
			return
		}
		h.log.Error().Err(err).Str("commitment_id", commitmentID).Msg("Failed to resolve status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to resolve status")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"commitment_id": commitmentID,
		"month":         month,
		"year":          year,
		"status":        status,
	})
}

// SetStatus handles PUT /api/commitments/:id/status
func (h *CommitmentsHandler) SetStatus(w http.ResponseWriter, r *http.Request, commitmentID string) {
	var req struct {
		Status string `json:"status"`
		Month  int    `json:"month"`
		Year   int    `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Status is required")
		return
	}

	err := h.svc.SetManualStatus(r.Context(), commitmentID, domain.PaymentStatus(req.Status), req.Month, req.Year)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Commitment not found")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ClearStatus handles DELETE /api/commitments/:id/status
func (h *CommitmentsHandler) ClearStatus(w http.ResponseWriter, r *http.Request, commitmentID string) {
	if err := h.svc.ClearManualStatus(r.Context(), commitmentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Commitment not found")
			return
		}
		h.log.Error().Err(err).Str("commitment_id", commitmentID).Msg("Failed to clear status")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear status")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetTotals handles GET /api/users/:userId/commitments/totals?month=&year=
func (h *CommitmentsHandler) GetTotals(w http.ResponseWriter, r *http.Request, userID string) {
	month, year, err := parsePeriod(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := h.svc.Totals(r.Context(), userID, month, year)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute totals")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute totals")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month":  month,
		"year":   year,
		"totals": totals,
	})
}
