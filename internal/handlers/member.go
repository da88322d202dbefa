package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/models"
	"github.com/rosterline/roster-api/internal/repository"
	"github.com/rosterline/roster-api/internal/roster"
)

type MemberHandler struct {
	roster *roster.Service
	logger zerolog.Logger
}

func NewMemberHandler(rosterSvc *roster.Service, logger zerolog.Logger) *MemberHandler {
	return &MemberHandler{
		roster: rosterSvc,
		logger: logger.With().Str("handler", "member").Logger(),
	}
}

func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}

	members, err := h.roster.ListMembers(r.Context(), accountID)
	if err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to list members")
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []models.Member{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

func (h *MemberHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	member, err := h.roster.AddMember(r.Context(), accountID, payload.Name, payload.PhoneNumber)
	if err != nil {
		if errors.Is(err, roster.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, "invalid phone number")
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to add member")
		writeError(w, http.StatusBadRequest, "failed to add member: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}
	memberID := mux.Vars(r)["memberID"]

	var payload struct {
		Name        string `json:"name"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	member, err := h.roster.UpdateMember(r.Context(), accountID, memberID, payload.Name, payload.PhoneNumber)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrInvalidPhone):
			writeError(w, http.StatusBadRequest, "invalid phone number")
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "member not found")
		default:
			h.logger.Error().Err(err).Str("member_id", memberID).Msg("failed to update member")
			writeError(w, http.StatusInternalServerError, "failed to update member")
		}
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}
	memberID := mux.Vars(r)["memberID"]

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	member, err := h.roster.SetMemberStatus(r.Context(), accountID, memberID, models.MemberStatus(payload.Status))
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid status")
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "member not found")
		default:
			h.logger.Error().Err(err).Str("member_id", memberID).Msg("failed to update member status")
			writeError(w, http.StatusInternalServerError, "failed to update member status")
		}
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}
	memberID := mux.Vars(r)["memberID"]

	if err := h.roster.RemoveMember(r.Context(), accountID, memberID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		h.logger.Error().Err(err).Str("member_id", memberID).Msg("failed to remove member")
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountScope(w, r)
	if !ok {
		return
	}

	var payload struct {
		MemberIDs []string `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.roster.Reorder(r.Context(), accountID, payload.MemberIDs); err != nil {
		if errors.Is(err, repository.ErrReorderMismatch) {
			writeError(w, http.StatusBadRequest, "member ids do not match the roster")
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to reorder members")
		writeError(w, http.StatusInternalServerError, "failed to reorder members")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
