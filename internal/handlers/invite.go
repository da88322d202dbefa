package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/authz"
	"github.com/rosterline/roster-api/internal/invite"
	"github.com/rosterline/roster-api/internal/models"
)

// InviteService is the slice of the invite service the HTTP layer consumes.
type InviteService interface {
	Issue(ctx context.Context, email, accountID, createdBy string) (models.Invite, error)
	Validate(ctx context.Context, token string) (invite.Preview, error)
	Redeem(ctx context.Context, token string, req invite.RedeemRequest) (models.Member, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.Invite, error)
	Cancel(ctx context.Context, inviteID, accountID string) error
}

type InviteHandler struct {
	invites InviteService
	logger  zerolog.Logger
}

func NewInviteHandler(invites InviteService, logger zerolog.Logger) *InviteHandler {
	return &InviteHandler{
		invites: invites,
		logger:  logger.With().Str("handler", "invite").Logger(),
	}
}

func (h *InviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(payload.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	createdBy, _ := authz.UserIDFromRequest(r)

	inv, err := h.invites.Issue(r.Context(), payload.Email, accountID, createdBy)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to issue invite")
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	writeJSON(w, http.StatusCreated, inv)
}

func (h *InviteHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}

	invites, err := h.invites.ListByAccount(r.Context(), accountID)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to list invites")
		writeError(w, http.StatusInternalServerError, "failed to list invites")
		return
	}
	if invites == nil {
		invites = []models.Invite{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"invites": invites})
}

func (h *InviteHandler) CancelInvite(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}
	inviteID := mux.Vars(r)["inviteID"]

	if err := h.invites.Cancel(r.Context(), inviteID, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "invite not found")
			return
		}
		h.logger.Error().Err(err).Str("invite_id", inviteID).Msg("failed to cancel invite")
		writeError(w, http.StatusInternalServerError, "failed to cancel invite")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ValidateInvite is the public, server-side validation entry point: the
// recipient's client posts the raw token and learns which account the invite
// joins without touching the store directly.
func (h *InviteHandler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(payload.Token) == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	preview, err := h.invites.Validate(r.Context(), payload.Token)
	if err != nil {
		h.writeInviteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

func (h *InviteHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(mux.Vars(r)["token"])
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	var payload struct {
		Name            string `json:"name"`
		PhoneNumber     string `json:"phone_number"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	member, err := h.invites.Redeem(r.Context(), token, invite.RedeemRequest{
		Name:            payload.Name,
		PhoneNumber:     payload.PhoneNumber,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		h.writeInviteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"member_id":  member.ID,
		"account_id": member.AccountID,
		"order":      member.Position,
	})
}

func (h *InviteHandler) writeInviteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invite.ErrInvalidToken):
		writeError(w, http.StatusNotFound, "invalid or expired invite link")
	case errors.Is(err, invite.ErrAlreadyUsed):
		writeError(w, http.StatusConflict, "this invite has already been used")
	case errors.Is(err, invite.ErrExpired):
		writeError(w, http.StatusGone, "this invite has expired")
	case errors.Is(err, invite.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, "passwords do not match")
	case errors.Is(err, invite.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "please enter a valid phone number")
	case errors.Is(err, invite.ErrIdentityCreationFailed):
		writeError(w, http.StatusConflict, "failed to create identity for this email")
	case errors.Is(err, invite.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, invite.ErrPartialCommitFailed):
		h.logger.Error().Err(err).Msg("partial redemption commit")
		writeError(w, http.StatusInternalServerError, "failed to finalize invite")
	default:
		h.logger.Error().Err(err).Msg("invite operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
