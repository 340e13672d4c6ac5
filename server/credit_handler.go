package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"melodygram/logger"
)

// GetCreditsHandler returns the balance and recent transactions.
func (h *APIHandler) GetCreditsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to read balance", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to read balance")
		return
	}

	txs, err := h.ledger.Transactions(r.Context(), userID, 50)
	if err != nil {
		logger.Error("Failed to list transactions", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"balance":      balance,
		"transactions": txs,
	})
}

// QuotePriceHandler returns the credit and dollar cost for a duration.
// Used by the confirmation modal before generation.
func (h *APIHandler) QuotePriceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	seconds, err := strconv.Atoi(r.URL.Query().Get("seconds"))
	if err != nil || seconds < 0 {
		respondError(w, http.StatusBadRequest, "Invalid seconds parameter")
		return
	}

	enough, err := h.ledger.HasEnoughCredits(r.Context(), userID, seconds)
	if err != nil {
		logger.Error("Failed to check credits", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to check credits")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"credits":          h.ledger.CreditsForDuration(seconds),
		"price":            h.ledger.PriceForDuration(seconds),
		"hasEnoughCredits": enough,
	})
}

// PurchaseCreditsHandler credits purchased amounts. Payment processing is
// out of scope; the handler trusts the amount after basic validation.
func (h *APIHandler) PurchaseCreditsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Amount      int    `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}
	if req.Description == "" {
		req.Description = "Credit purchase"
	}

	if err := h.ledger.AddCredits(r.Context(), userID, req.Amount, req.Description); err != nil {
		logger.Error("Failed to add credits", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to add credits")
		return
	}

	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to read balance", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to read balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"balance": balance,
	})
}

// SubscribeCreditsHandler credits a plan's monthly allocation.
func (h *APIHandler) SubscribeCreditsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Amount   int    `json:"amount"`
		PlanName string `json:"planName"`
		PlanID   string `json:"planId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 || req.PlanName == "" {
		respondError(w, http.StatusBadRequest, "Amount and planName are required")
		return
	}

	if err := h.ledger.AddSubscriptionCredits(r.Context(), userID, req.Amount, req.PlanName, req.PlanID); err != nil {
		logger.Error("Failed to add subscription credits", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to add subscription credits")
		return
	}

	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to read balance", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to read balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"balance": balance,
	})
}
