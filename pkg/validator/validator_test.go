package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Confirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := ValidateStruct(signupPayload{Email: "nope", Password: "short", Confirmation: "other"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)

	byField := map[string]ValidationError{}
	for _, f := range failures {
		byField[f.Field] = f
	}
	require.Equal(t, "email", byField["email"].Tag)
	require.Equal(t, "min", byField["password"].Tag)
	require.Equal(t, "8", byField["password"].Param)
	require.Equal(t, "eqfield", byField["password_confirmation"].Tag)
}

func TestValidateStructPasses(t *testing.T) {
	require.NoError(t, ValidateStruct(signupPayload{
		Email:        "a@example.com",
		Password:     "correct horse",
		Confirmation: "correct horse",
	}))
}

func TestValidateVarReportsFieldName(t *testing.T) {
	err := ValidateVar("email", "not-an-address", "email")
	require.Error(t, err)

	failures := err.(ValidationErrors)
	require.Len(t, failures, 1)
	require.Equal(t, "email", failures[0].Field)
	require.Equal(t, "email", failures[0].Tag)
	require.Contains(t, failures.Error(), "email failed on email")

	require.NoError(t, ValidateVar("email", "a@example.com", "email"))
}
