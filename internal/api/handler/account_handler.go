package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/freelanceros/freelancer-os/internal/api/middleware"
	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// AccountHandler serves the signed-in identity's settings.
type AccountHandler struct {
	sessions ports.SessionService
}

func NewAccountHandler(sessions ports.SessionService) *AccountHandler {
	return &AccountHandler{sessions: sessions}
}

type accountResponse struct {
	Identity *domain.Identity `json:"user"`
	Profile  *domain.Profile  `json:"profile"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type photoResponse struct {
	PhotoURL string `json:"photoURL"`
}

// Get returns the identity and its profile.
//
// @Summary      Current account
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Router       /account [get]
func (h *AccountHandler) Get(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	profile, err := h.sessions.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountResponse{Identity: id, Profile: profile})
}

// UpdateProfile merges the given profile fields.
//
// @Summary      Update profile settings
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ports.ProfileUpdate  true  "Fields to change"
// @Success      200   {object}  domain.Profile
// @Failure      422   {object}  errorResponse
// @Router       /account/profile [patch]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req ports.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	profile, err := h.sessions.UpdateProfile(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdatePassword sets a new password.
//
// @Summary      Change password
// @Tags         account
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  passwordRequest  true  "New password"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /account/password [put]
func (h *AccountHandler) UpdatePassword(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.sessions.UpdatePassword(c.Request().Context(), id, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateEmail changes the sign-in email.
//
// @Summary      Change email
// @Tags         account
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  emailRequest  true  "New email"
// @Success      204
// @Failure      409  {object}  errorResponse
// @Router       /account/email [put]
func (h *AccountHandler) UpdateEmail(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.sessions.UpdateEmail(c.Request().Context(), id, req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadPhoto stores a new profile photo from the multipart "file" field.
//
// @Summary      Upload profile photo
// @Tags         account
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Image, at most 5 MB"
// @Success      200   {object}  photoResponse
// @Failure      413   {object}  errorResponse
// @Failure      415   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /account/photo [post]
func (h *AccountHandler) UploadPhoto(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	url, err := h.sessions.UploadProfilePhoto(c.Request().Context(), id, fh.Filename, fh.Size, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, photoResponse{PhotoURL: url})
}

// Delete removes the account and every record it owns. The password is
// required for accounts that have one.
//
// @Summary      Delete account
// @Tags         account
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  deleteAccountRequest  true  "Current password"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /account [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req deleteAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.sessions.DeleteAccount(c.Request().Context(), id, req.Password); err != nil {
		return err
	}
	if token, _ := c.Get(middleware.TokenKey).(string); token != "" {
		_ = h.sessions.SignOut(c.Request().Context(), token)
	}
	return c.NoContent(http.StatusNoContent)
}
