package services

import (
	"errors"
	"fmt"

	apperrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/validator"
)

// validateInput runs struct tag validation and turns the first failure into a
// client facing validation error.
func validateInput(input any) error {
	err := validator.ValidateStruct(input)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return apperrors.ErrValidation.WithInternal(err)
	}

	failure := failures[0]
	var message string
	switch failure.Tag {
	case "required":
		message = fmt.Sprintf("%s is required", failure.Field)
	case "email":
		message = "Invalid email format"
	case "password":
		message = "Password must be at least 8 characters and contain an upper case letter, a lower case letter and a digit"
	case "eqfield":
		message = "Passwords do not match"
	case "oneof":
		message = fmt.Sprintf("%s must be one of: %s", failure.Field, failure.Param)
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters", failure.Field, failure.Param)
	default:
		message = fmt.Sprintf("%s is invalid", failure.Field)
	}
	return validationError(message)
}
