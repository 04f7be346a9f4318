package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

const stateCookie = "oauth_state"

type AuthHandler struct {
	sessions     ports.SessionService
	secureCookie bool
}

// NewAuthHandler builds the sign-in endpoints. secureCookie marks the
// federated-login state cookie Secure, which production requires.
func NewAuthHandler(sessions ports.SessionService, secureCookie bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, secureCookie: secureCookie}
}

type signUpRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignUp creates an email/password identity and signs it in.
//
// @Summary      Sign up with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "New account"
// @Success      201   {object}  ports.SessionResult
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.sessions.SignUp(c.Request().Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// SignIn authenticates with email and password.
//
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  ports.SessionResult
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.sessions.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// GoogleLogin redirects to the Google consent screen.
//
// @Summary      Start Google sign-in
// @Tags         auth
// @Success      302
// @Failure      501  {object}  errorResponse
// @Router       /auth/google [get]
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	state := uuid.NewString()
	url, err := h.sessions.FederatedLoginURL(state)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, url)
}

// GoogleCallback completes Google sign-in.
//
// @Summary      Complete Google sign-in
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "State issued by /auth/google"
// @Success      200    {object}  ports.SessionResult
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if reason := c.QueryParam("error"); reason != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "google sign-in failed: "+reason)
	}

	cookie, err := c.Cookie(stateCookie)
	state := c.QueryParam("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sign-in state")
	}
	c.SetCookie(&http.Cookie{Name: stateCookie, Path: "/auth/google", MaxAge: -1, HttpOnly: true, Secure: h.secureCookie})

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}
	res, err := h.sessions.SignInWithFederatedProvider(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// SignOut revokes the presented bearer token. Signing out twice succeeds.
//
// @Summary      Sign out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	if token := bearerToken(c.Request()); token != "" {
		if err := h.sessions.SignOut(c.Request().Context(), token); err != nil {
			return err
		}
	}
	return c.NoContent(http.StatusNoContent)
}
