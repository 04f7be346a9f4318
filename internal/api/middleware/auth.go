package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// Context keys set by Auth.
const (
	IdentityKey = "identity"
	TokenKey    = "token"
)

// IdentityResolver turns a bearer token into the identity it belongs to.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, token string) (*domain.Identity, error)
}

// Auth resolves the bearer token and injects the identity into context.
// Requests without a live identity are rejected with 401.
func Auth(resolver IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			id, err := resolver.CurrentIdentity(c.Request().Context(), parts[1])
			if err != nil {
				return err
			}
			if id == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(IdentityKey, id)
			c.Set(TokenKey, parts[1])
			return next(c)
		}
	}
}
