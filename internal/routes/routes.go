package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rosterline/roster-api/internal/authz"
	"github.com/rosterline/roster-api/internal/handlers"
	"github.com/rosterline/roster-api/internal/models"
)

// NewRouter sets up the API routes.
func NewRouter(
	auth *handlers.AuthHandler,
	account *handlers.AccountHandler,
	member *handlers.MemberHandler,
	invite *handlers.InviteHandler,
	notification *handlers.NotificationHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Public invite endpoints: validation and redemption are server-side so
	// the invite rules are enforced behind the API, not in the client.
	router.HandleFunc("/api/invites/validate", invite.ValidateInvite).Methods(http.MethodPost)
	router.HandleFunc("/api/invites/{token}/accept", invite.AcceptInvite).Methods(http.MethodPost)

	// Everything below requires a bearer token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.Handle("/accounts", http.HandlerFunc(account.CreateAccount)).Methods(http.MethodPost)
	api.Handle("/accounts/{accountID}",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(account.GetAccount))).Methods(http.MethodGet)
	api.Handle("/accounts/{accountID}/settings",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(account.UpdateSettings))).Methods(http.MethodPut)

	api.Handle("/accounts/{accountID}/members",
		authz.RequireRoleHandler(models.RoleUser, http.HandlerFunc(member.ListMembers))).Methods(http.MethodGet)
	api.Handle("/accounts/{accountID}/members",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(member.AddMember))).Methods(http.MethodPost)
	api.Handle("/accounts/{accountID}/members/order",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(member.Reorder))).Methods(http.MethodPut)
	api.Handle("/accounts/{accountID}/members/{memberID}",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(member.UpdateMember))).Methods(http.MethodPut)
	api.Handle("/accounts/{accountID}/members/{memberID}/status",
		authz.RequireRoleHandler(models.RoleUser, http.HandlerFunc(member.SetStatus))).Methods(http.MethodPatch)
	api.Handle("/accounts/{accountID}/members/{memberID}",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(member.RemoveMember))).Methods(http.MethodDelete)

	api.Handle("/accounts/{accountID}/invites",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(invite.CreateInvite))).Methods(http.MethodPost)
	api.Handle("/accounts/{accountID}/invites",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(invite.ListInvites))).Methods(http.MethodGet)
	api.Handle("/accounts/{accountID}/invites/{inviteID}",
		authz.RequireRoleHandler(models.RoleAdmin, http.HandlerFunc(invite.CancelInvite))).Methods(http.MethodDelete)

	api.Handle("/notifications",
		authz.RequireRoleHandler(models.RoleUser, http.HandlerFunc(notification.List))).Methods(http.MethodGet)
	api.Handle("/notifications/{notificationID}/read",
		authz.RequireRoleHandler(models.RoleUser, http.HandlerFunc(notification.MarkRead))).Methods(http.MethodPost)

	return router
}
