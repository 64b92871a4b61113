package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"todoapp/internal/domain"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

var validate = validator.New()

type signInInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type signUpInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Confirm  string `validate:"required,eqfield=Password"`
}

// ValidateSignIn checks the login form before any remote call.
func ValidateSignIn(email, password string) error {
	return check(signInInput{Email: strings.TrimSpace(email), Password: password})
}

// ValidateSignUp checks the register form before any remote call.
func ValidateSignUp(email, password, confirm string) error {
	return check(signUpInput{Email: strings.TrimSpace(email), Password: password, Confirm: confirm})
}

// check maps the first failed rule to a ValidationError the user can read.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Message: err.Error()}
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &domain.ValidationError{Field: field, Message: "please fill in all fields"}
	case "email":
		return &domain.ValidationError{Field: field, Message: "invalid email address"}
	case "min":
		return &domain.ValidationError{Field: field, Message: "password must be at least 6 characters long"}
	case "eqfield":
		return &domain.ValidationError{Field: field, Message: "passwords do not match"}
	default:
		return &domain.ValidationError{Field: field, Message: "failed on '" + fe.Tag() + "' validation"}
	}
}
