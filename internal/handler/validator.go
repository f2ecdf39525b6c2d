package handler

// REQUEST VALIDATION:
// Input shape checks (is this an email? is the password long enough?) live
// at the HTTP edge, driven by `validate` struct tags. Business rules (is
// this email taken?) stay in the service layer.
//
// The validator library reports failures as machine-oriented
// ValidationErrors; check() translates them into the fixed client-facing
// messages the frontend displays verbatim.

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakif/taskboard/internal/apperror"
)

// Client-facing validation messages. The frontend shows these strings as-is,
// so changing them is a UI change, not just a backend one.
const (
	msgRegisterFieldsRequired = "Name, email, and password are required"
	msgLoginFieldsRequired    = "Email and password are required"
	msgInvalidEmail           = "Invalid email format"
	msgPasswordTooShort       = "Password must be at least 6 characters"
)

// requestValidator wraps a single validator.Validate instance.
// The instance caches struct metadata, so handlers share one.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{validate: validator.New()}
}

// check runs struct-tag validation on req and converts the first failure
// into an apperror with a stable client-facing message.
//
// Any missing required field collapses into requiredMsg — the API reports
// "these fields are required" as one message rather than enumerating, which
// matches what the registration form shows.
func (v *requestValidator) check(req any, requiredMsg string) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Not a field failure — a broken struct definition. Programmer error.
		return err
	}

	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return apperror.ValidationFailed(fieldName(fe), requiredMsg)
		}
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "email":
		return apperror.ValidationFailed(fieldName(fe), msgInvalidEmail)
	case "min":
		if fieldName(fe) == "password" {
			return apperror.ValidationFailed("password", msgPasswordTooShort)
		}
	}
	return apperror.ValidationFailed(fieldName(fe), "invalid value for "+fieldName(fe))
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}
