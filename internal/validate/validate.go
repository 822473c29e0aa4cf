// Package validate holds the single field-validation rule set applied before
// every user write.
//
// The rules live in three validator aliases registered in New:
//
//	username      → min=3,max=50
//	useremail     → email,max=255
//	userpassword  → min=6,max=72
//
// The request shapes below combine them with "required" (create, full update)
// or "omitnil" (partial update), so every endpoint checks a field the same way
// and only differs in which fields must be present.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/user-service/internal/apperror"
)

// NewUser is the candidate record for registration / creation.
type NewUser struct {
	Name     string `json:"name"     validate:"required,username"`
	Email    string `json:"email"    validate:"required,useremail"`
	Password string `json:"password" validate:"required,userpassword"`
}

// Profile is the candidate record for a full update (PUT): name and email only.
type Profile struct {
	Name  string `json:"name"  validate:"required,username"`
	Email string `json:"email" validate:"required,useremail"`
}

// Changes is the candidate record for a partial update (PATCH). A nil field
// was not supplied and is skipped; a supplied field gets the same rules as
// on create, so an empty string is rejected.
type Changes struct {
	Name     *string `json:"name"     validate:"omitnil,username"`
	Email    *string `json:"email"    validate:"omitnil,useremail"`
	Password *string `json:"password" validate:"omitnil,userpassword"`
}

// Credentials is the login request: both fields must be present, nothing more.
type Credentials struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validator wraps a configured *validator.Validate. It is safe for
// concurrent use; build one at startup and share it.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the user rule aliases registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name ("email", not "Email") so messages
	// match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterAlias("username", "min=3,max=50")
	v.RegisterAlias("useremail", "email,max=255")
	v.RegisterAlias("userpassword", "min=6,max=72")

	return &Validator{v: v}
}

// Check validates one of the request shapes above.
//
// Returns nil when valid, an *apperror.AppError (kind ErrValidation) listing
// one message per violated field otherwise. A non-struct argument is a
// programming error and is returned as-is.
func (val *Validator) Check(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, message(fe))
	}
	return apperror.Invalid(details)
}

// message turns one field error into a sentence. Aliases report the alias
// in Tag(); ActualTag() is the concrete rule that failed.
func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
