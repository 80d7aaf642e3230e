package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/signup/internal/registration"
	appErrors "github.com/charlesng35/signup/pkg/errors"
	"github.com/charlesng35/signup/pkg/response"
	appValidator "github.com/charlesng35/signup/pkg/validator"
)

// bindJSON binds the JSON payload into dest. A malformed body writes a 400 response and
// returns false.
func bindJSON[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return true
}

// addValidationErrors copies struct validation failures into result as field errors.
// Errors that are not validation failures are returned unchanged.
func addValidationErrors(result *registration.Result, err error) error {
	if err == nil {
		return nil
	}
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok {
		return err
	}
	for _, failure := range ve {
		result.AddError(failure.Field, registration.FieldError{Template: validationMessage(failure)})
	}
	return nil
}

func validationMessage(failure appValidator.ValidationError) string {
	switch failure.Tag {
	case "required":
		return "This property is required."
	case "email":
		return "Please specify a valid email address."
	case "min":
		return fmt.Sprintf("This value is too short. It should have %s characters or more.", failure.Param)
	case "max":
		return fmt.Sprintf("This value is too long. It should have %s characters or less.", failure.Param)
	case "eqfield":
		return fmt.Sprintf("This value must match %s.", prettifyFieldName(failure.Param))
	default:
		if failure.Param != "" {
			return fmt.Sprintf("This value failed validation: %s=%s.", failure.Tag, failure.Param)
		}
		return fmt.Sprintf("This value failed validation: %s.", failure.Tag)
	}
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
