package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/pkg/validate"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{v: validate.New()}
}

// Validate satisfies the echo.Validator interface. Failures wrap
// domain.ErrInvalidRecord so the error handler answers 422.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidRecord, validate.Describe(err))
	}
	return nil
}
