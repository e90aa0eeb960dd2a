// Package validation wraps go-playground/validator and converts its field
// errors into domain validation errors with fixed, client-facing messages.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
)

// Rule maps a failed (field, tag) pair to the error reported for it.
// Rules are checked in order, so earlier rules win when several fields fail.
type Rule struct {
	Field string
	Tag   string
	Err   error
}

// Validator is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Check validates i and returns the error of the first matching rule. Field
// errors no rule covers are joined into one generic validation message.
func (val *Validator) Check(i any, rules ...Rule) error {
	err := val.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domain.Internal(fmt.Errorf("validate: %w", err))
	}

	for _, r := range rules {
		for _, fe := range ve {
			if fe.StructField() == r.Field && fe.Tag() == r.Tag {
				return r.Err
			}
		}
	}
	return domain.Validation(describe(ve))
}

// Validate satisfies echo.Validator.
func (val *Validator) Validate(i any) error {
	return val.Check(i)
}

func describe(ve validator.ValidationErrors) string {
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return strings.Join(msgs, "; ")
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
