package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/logging"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/tokens"
)

const (
	CtxClaims    = "claims"
	CtxToken     = "token"
	CtxAccountID = "account_id"
	CtxRole      = "role"
)

type Verifier interface {
	Verify(token string) (*tokens.SessionClaims, error)
}

type BearerAuth struct {
	Tokens Verifier
	// Accounts, when set, lets RequireAdmin check the role stored on the
	// account rather than the one baked into the token.
	Accounts tokens.SubjectLookup
}

func NewBearerAuth(v Verifier, accounts tokens.SubjectLookup) *BearerAuth {
	return &BearerAuth{Tokens: v, Accounts: accounts}
}

func unauthorized() error {
	return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context())

		token := BearerToken(c)
		if token == "" {
			l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
			return unauthorized()
		}

		claims, err := m.Tokens.Verify(token)
		if err != nil || claims == nil {
			l.Warn("auth_failed", "status", 401, "reason", "invalid or expired token", "error", err)
			return unauthorized()
		}

		c.Set(CtxToken, token)
		c.Set(CtxClaims, claims)
		c.Set(CtxAccountID, claims.Subject)
		c.Set(CtxRole, claims.Role)

		req := c.Request()
		ctx := logging.IntoContext(req.Context(), l.With("account_id", claims.Subject))
		c.SetRequest(req.WithContext(ctx))

		return next(c)
	}
}

// RequireAdmin implies RequireAuth. Non-admins get 401.
func (m *BearerAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireAuth(func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx)

		claims, _ := ClaimsFrom(c)
		role := claims.Role
		if m.Accounts != nil {
			acc, err := m.Accounts.FindByID(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					l.Warn("auth_failed", "status", 401, "reason", "account no longer exists")
					return unauthorized()
				}
				return err
			}
			role = string(acc.Role)
		}

		if role != string(models.RoleAdmin) {
			l.Warn("auth_failed", "status", 401, "reason", "admin role required", "role", role)
			return unauthorized()
		}
		return next(c)
	})
}

func ClaimsFrom(c echo.Context) (*tokens.SessionClaims, bool) {
	claims, ok := c.Get(CtxClaims).(*tokens.SessionClaims)
	return claims, ok
}

func AccountID(c echo.Context) string {
	id, _ := c.Get(CtxAccountID).(string)
	return id
}
