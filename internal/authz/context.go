package authz

import (
	"context"
	"net/http"

	"github.com/rosterline/roster-api/internal/models"
)

type contextKey string

const (
	accountIDKey contextKey = "account_id"
	userIDKey    contextKey = "user_id"
	userRoleKey  contextKey = "user_role"
)

// WithIdentity stores account, user, and role information on the context.
// Account and role may be empty for identities that have not joined an
// account yet.
func WithIdentity(ctx context.Context, accountID, userID string, role models.UserRole) context.Context {
	if accountID != "" {
		ctx = context.WithValue(ctx, accountIDKey, accountID)
	}
	if userID != "" {
		ctx = context.WithValue(ctx, userIDKey, userID)
	}
	if models.IsValidRole(role) {
		ctx = context.WithValue(ctx, userRoleKey, role)
	}
	return ctx
}

func AccountIDFromRequest(r *http.Request) (string, bool) {
	aid, ok := r.Context().Value(accountIDKey).(string)
	if !ok || aid == "" {
		return "", false
	}
	return aid, true
}

func UserIDFromRequest(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(userIDKey).(string)
	if !ok || uid == "" {
		return "", false
	}
	return uid, true
}

func RoleFromRequest(r *http.Request) (models.UserRole, bool) {
	role, ok := r.Context().Value(userRoleKey).(models.UserRole)
	if !ok || !models.IsValidRole(role) {
		return "", false
	}
	return role, true
}
