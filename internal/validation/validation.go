// Package validation wraps go-playground/validator with the tags used by job
// forms and API payloads.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
)

// Validator validates structs and reports the first failing field.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the "clock" and "job_status" tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		return calendar.ValidClock(fl.Field().String())
	})
	mustRegister(v, "job_status", func(fl validator.FieldLevel) bool {
		return domain.JobStatus(fl.Field().String()).Valid()
	})
	return &Validator{validate: v}
}

// Struct validates i using its struct tags.
func (v *Validator) Struct(i any) error {
	if err := v.validate.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return &domain.ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on '%s' validation", fe.Tag()),
			}
		}
		return errors.Mark(errors.Wrap(err, "validate"), domain.ErrInvalidInput)
	}
	return nil
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}
