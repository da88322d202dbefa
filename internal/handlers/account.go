package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/authz"
	"github.com/rosterline/roster-api/internal/roster"
)

type AccountHandler struct {
	roster *roster.Service
	logger zerolog.Logger
}

func NewAccountHandler(rosterSvc *roster.Service, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		roster: rosterSvc,
		logger: logger.With().Str("handler", "account").Logger(),
	}
}

// requireAccountScope ensures the caller's token is bound to the account in
// the URL. There is no cross-account tier; admins administer their own
// account only.
func requireAccountScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := mux.Vars(r)["accountID"]
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account id is required")
		return "", false
	}
	if aid, ok := authz.AccountIDFromRequest(r); !ok || aid != accountID {
		writeError(w, http.StatusForbidden, "insufficient permissions for account")
		return "", false
	}
	return accountID, true
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if _, ok := authz.AccountIDFromRequest(r); ok {
		writeError(w, http.StatusConflict, "identity already belongs to an account")
		return
	}

	var payload struct {
		Name          string `json:"name"`
		RoutingNumber string `json:"routing_number"`
		AdminName     string `json:"admin_name"`
		AdminPhone    string `json:"admin_phone"`
		Email         string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	account, err := h.roster.CreateAccount(r.Context(), roster.CreateAccountParams{
		Name:          payload.Name,
		RoutingNumber: payload.RoutingNumber,
		AdminName:     payload.AdminName,
		AdminPhone:    payload.AdminPhone,
		CreatorID:     userID,
		CreatorEmail:  strings.TrimSpace(strings.ToLower(payload.Email)),
	})
	if err != nil {
		if errors.Is(err, roster.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, "invalid phone number")
			return
		}
		h.logger.Error().Err(err).Msg("failed to create account")
		writeError(w, http.StatusBadRequest, "failed to create account: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}

	account, err := h.roster.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to load account")
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}

	var payload struct {
		RoutingNumber string `json:"routing_number"`
		MaxRetries    *int   `json:"max_retries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	maxRetries := -1
	if payload.MaxRetries != nil {
		maxRetries = *payload.MaxRetries
	}
	if maxRetries < 0 {
		writeError(w, http.StatusBadRequest, "max_retries must be zero or greater")
		return
	}

	account, err := h.roster.UpdateSettings(r.Context(), accountID, payload.RoutingNumber, maxRetries)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrInvalidPhone):
			writeError(w, http.StatusBadRequest, "invalid routing number")
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to update account settings")
			writeError(w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}

	writeJSON(w, http.StatusOK, account)
}
