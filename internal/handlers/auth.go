package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/rosterline/roster-api/internal/authz"
	"github.com/rosterline/roster-api/internal/identity"
	"github.com/rosterline/roster-api/internal/models"
	"github.com/rosterline/roster-api/internal/repository"
)

type AuthHandler struct {
	identities identity.Provider
	users      repository.UserRepository
	jwtSecret  string
	logger     zerolog.Logger
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(identities identity.Provider, users repository.UserRepository, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		identities: identities,
		users:      users,
		jwtSecret:  jwtSecret,
		logger:     logger.With().Str("handler", "auth").Logger(),
	}
}

// SignUp registers a bare identity. Account membership comes later, either
// through account creation or invite redemption.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ident, err := h.identities.CreateIdentity(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to create identity: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": ident.ID, "email": ident.Email})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ident, err := h.identities.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	claims := jwt.MapClaims{
		"sub": ident.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}

	// An identity without a user record has signed up but not joined an
	// account yet; its token carries no account or role claims.
	user, err := h.users.GetUserByID(r.Context(), ident.ID)
	switch {
	case err == nil:
		claims["aid"] = user.AccountID
		claims["role"] = string(user.Role)
	case errors.Is(err, sql.ErrNoRows):
	default:
		h.logger.Error().Err(err).Msg("failed to load user record")
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing subject claim")
			return
		}
		accountID, _ := claims["aid"].(string)
		roleStr, _ := claims["role"].(string)

		ctx := authz.WithIdentity(r.Context(), accountID, userID, models.UserRole(roleStr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
