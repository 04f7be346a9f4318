package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/freelanceros/freelancer-os/internal/api/middleware"
	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// ctxIdentity extracts the identity injected by the Auth middleware and
// fails fast before any service call when it is absent.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	id, _ := c.Get(middleware.IdentityKey).(*domain.Identity)
	if id == nil || id.UID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return id, nil
}

// bearerToken reads the raw token from the Authorization header.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
