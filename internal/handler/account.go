package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/efreitasn/tradeserver/internal/service"
	"github.com/go-chi/chi/v5"
)

// AccountHandler serves read-only account views.
type AccountHandler struct {
	trading *service.TradingService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(trading *service.TradingService) *AccountHandler {
	return &AccountHandler{
		trading: trading,
	}
}

// accountResponse is the JSON response for GET /accounts/{account_id}.
// Amounts use the same two-decimal rendering as the line protocol.
type accountResponse struct {
	AccountID   int64             `json:"account_id"`
	UserName    string            `json:"user_name"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	CashBalance string            `json:"cash_balance"`
	Holdings    []holdingResponse `json:"holdings"`
}

type holdingResponse struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
}

// Get handles GET /accounts/{account_id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "account_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "account_id must be an integer")
		return
	}

	snap, err := h.trading.Snapshot(r.Context(), id)
	if err != nil {
		mapAccountError(w, err)
		return
	}

	holdings := make([]holdingResponse, len(snap.Holdings))
	for i, hd := range snap.Holdings {
		holdings[i] = holdingResponse{
			Symbol:   hd.Symbol,
			Quantity: domain.FormatAmount(hd.Quantity),
		}
	}

	WriteJSON(w, http.StatusOK, accountResponse{
		AccountID:   snap.Account.ID,
		UserName:    snap.Account.UserName,
		FirstName:   snap.Account.FirstName,
		LastName:    snap.Account.LastName,
		CashBalance: domain.FormatAmount(snap.Account.Cash),
		Holdings:    holdings,
	})
}

// mapAccountError maps domain errors to HTTP responses for account endpoints.
func mapAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "account_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
