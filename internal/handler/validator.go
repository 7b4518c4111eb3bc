package handler

import (
	"github.com/sumire/pumpplanner/internal/validation"
)

// AppValidator wraps go-playground/validator for echo.
type AppValidator struct {
	validator *validation.Validator
}

// NewAppValidator creates a new AppValidator.
func NewAppValidator(v *validation.Validator) *AppValidator {
	if v == nil {
		v = validation.New()
	}
	return &AppValidator{validator: v}
}

// Validate validates a struct using go-playground/validator tags.
func (v *AppValidator) Validate(i any) error {
	return v.validator.Struct(i)
}
