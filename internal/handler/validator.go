package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/secure-notes/internal/envelope"
)

// Validator adapts go-playground/validator to Echo's Validator interface.
// Register it once on the Echo instance; handlers then call c.Validate on
// bound DTOs.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// fieldErrors converts validator violations into envelope field entries.
// Non-validator errors produce a single entry without a field name so the
// caller can still answer with VALIDATION.
func fieldErrors(err error) []envelope.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []envelope.FieldError{{Code: envelope.CodeValidation, Issue: "malformed request body"}}
	}
	out := make([]envelope.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, envelope.FieldError{
			Field: fe.Field(),
			Code:  envelope.CodeValidation,
			Issue: fe.Tag(),
		})
	}
	return out
}
