package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bitway/bitway-api/internal/api/problem"
	"github.com/bitway/bitway-api/internal/auth"
	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Role   string
	User   *models.User
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// UserLookup loads the account behind a verified token.
type UserLookup interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Authenticator verifies access tokens and attaches the caller to the request context.
type Authenticator struct {
	tokens *auth.TokenManager
	users  UserLookup
}

func NewAuthenticator(tokens *auth.TokenManager, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate requires a valid bearer access token for an existing, unblocked user.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, code := bearerToken(r.Header.Get("Authorization"))
		if code != "" {
			problem.Write(w, r, http.StatusUnauthorized, code, "Please log in to continue", nil)
			return
		}

		claims, err := a.tokens.Parse(tokenString, domain.PurposeAccess)
		if err != nil {
			if errors.Is(err, auth.ErrMissingSecret) {
				zap.L().Error("token verification is not configured")
				problem.Write(w, r, http.StatusInternalServerError, "auth/misconfigured", "auth is not configured", nil)
				return
			}
			problem.Write(w, r, http.StatusUnauthorized, "auth/invalid-token", "Invalid token", nil)
			return
		}

		user, err := a.users.Get(r.Context(), claims.UserUUID())
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				problem.Write(w, r, http.StatusUnauthorized, "auth/invalid-token", "Invalid token", nil)
				return
			}
			problem.FromError(w, r, err)
			return
		}
		if user.Blocked {
			problem.FromError(w, r, domain.ErrAccountBlocked)
			return
		}

		ctx := WithPrincipal(r.Context(), Principal{UserID: user.ID, Role: user.Role, User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole ensures the authenticated user has the required role.
func RequireRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", nil)
				return
			}
			if p.Role != requiredRole {
				problem.Write(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is case-insensitive.
// A non-empty code names the reason the header was rejected.
func bearerToken(header string) (token, code string) {
	if header == "" {
		return "", "auth/authorization-header-required"
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "auth/invalid-token-format"
	}
	return token, ""
}
