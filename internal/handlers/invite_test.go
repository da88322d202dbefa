package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterline/roster-api/internal/invite"
	"github.com/rosterline/roster-api/internal/models"
)

// stubInviteService returns canned results so the handler's status mapping
// can be exercised without storage.
type stubInviteService struct {
	validateErr error
	redeemErr   error
	preview     invite.Preview
	member      models.Member
}

func (s *stubInviteService) Issue(ctx context.Context, email, accountID, createdBy string) (models.Invite, error) {
	return models.Invite{ID: "inv-1", AccountID: accountID, Email: email}, nil
}

func (s *stubInviteService) Validate(ctx context.Context, token string) (invite.Preview, error) {
	if s.validateErr != nil {
		return invite.Preview{}, s.validateErr
	}
	return s.preview, nil
}

func (s *stubInviteService) Redeem(ctx context.Context, token string, req invite.RedeemRequest) (models.Member, error) {
	if s.redeemErr != nil {
		return models.Member{}, s.redeemErr
	}
	return s.member, nil
}

func (s *stubInviteService) ListByAccount(ctx context.Context, accountID string) ([]models.Invite, error) {
	return nil, nil
}

func (s *stubInviteService) Cancel(ctx context.Context, inviteID, accountID string) error {
	return nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}, vars map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(buf))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestValidateInviteOK(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	stub := &stubInviteService{preview: invite.Preview{
		Email:       "dana@example.com",
		AccountID:   "acct-1",
		AccountName: "North Clinic",
		ExpiresAt:   expires,
	}}
	h := NewInviteHandler(stub, zerolog.Nop())

	rec := postJSON(t, h.ValidateInvite, "/api/invites/validate", map[string]string{"token": "tok"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got invite.Preview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "North Clinic", got.AccountName)
	assert.Equal(t, "dana@example.com", got.Email)
}

func TestValidateInviteMissingToken(t *testing.T) {
	h := NewInviteHandler(&stubInviteService{}, zerolog.Nop())
	rec := postJSON(t, h.ValidateInvite, "/api/invites/validate", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInviteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err      error
		expected int
	}{
		{invite.ErrInvalidToken, http.StatusNotFound},
		{invite.ErrAlreadyUsed, http.StatusConflict},
		{invite.ErrExpired, http.StatusGone},
		{invite.ErrPasswordMismatch, http.StatusBadRequest},
		{invite.ErrInvalidPhone, http.StatusBadRequest},
		{invite.ErrIdentityCreationFailed, http.StatusConflict},
		{invite.ErrAccountNotFound, http.StatusNotFound},
		{invite.ErrPartialCommitFailed, http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		h := NewInviteHandler(&stubInviteService{redeemErr: tc.err}, zerolog.Nop())
		rec := postJSON(t, h.AcceptInvite, "/api/invites/tok/accept", map[string]string{
			"name":             "Dana Reyes",
			"phone_number":     "(212) 555-0123",
			"password":         "hunter22",
			"confirm_password": "hunter22",
		}, map[string]string{"token": "tok"})
		assert.Equalf(t, tc.expected, rec.Code, "error %v", tc.err)
	}
}

func TestAcceptInviteReturnsMembership(t *testing.T) {
	stub := &stubInviteService{member: models.Member{
		ID:        "ident-1",
		AccountID: "acct-1",
		Position:  2,
	}}
	h := NewInviteHandler(stub, zerolog.Nop())

	rec := postJSON(t, h.AcceptInvite, "/api/invites/tok/accept", map[string]string{
		"name":             "Dana Reyes",
		"phone_number":     "(212) 555-0123",
		"password":         "hunter22",
		"confirm_password": "hunter22",
	}, map[string]string{"token": "tok"})

	require.Equal(t, http.StatusCreated, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ident-1", got["member_id"])
	assert.Equal(t, float64(2), got["order"])
}

func TestAcceptInviteMissingToken(t *testing.T) {
	h := NewInviteHandler(&stubInviteService{}, zerolog.Nop())
	rec := postJSON(t, h.AcceptInvite, "/api/invites//accept", map[string]string{}, map[string]string{"token": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
