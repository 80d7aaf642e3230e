package registration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFlowNotFound is returned by Store.Remove when the flow is no longer stored.
	ErrFlowNotFound = errors.New("registration flow not found")
	// ErrAccountExists is returned by UserCreator when the identifier is already taken.
	ErrAccountExists = errors.New("account already exists")
)

// Field error codes reported for the email property.
const (
	CodeEmailRequired     = 1221560910
	CodeEmailInvalid      = 1221559976
	CodeEmailAlreadyInUse = 1336499566
)

// FieldError is a single property level validation failure. Template is a printf style
// message filled with Arguments.
type FieldError struct {
	Code      int
	Template  string
	Arguments []any
}

// Message renders the human readable text of the error.
func (e FieldError) Message() string {
	if len(e.Arguments) == 0 {
		return e.Template
	}
	return fmt.Sprintf(e.Template, e.Arguments...)
}

// ValidationError reports a flow that cannot be accepted. The request is not processed further.
type ValidationError struct {
	Result *Result
}

func (e *ValidationError) Error() string {
	if e == nil || !e.Result.HasErrors() {
		return "registration: validation failed"
	}

	var parts []string
	for _, field := range e.Result.Fields() {
		for _, fe := range e.Result.ErrorsFor(field) {
			parts = append(parts, field+": "+fe.Message())
		}
	}
	return "registration: validation failed: " + strings.Join(parts, "; ")
}

// StateError signals a call that violates the flow's lifecycle contract, such as storing a
// password twice. It indicates a programming error rather than bad input.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("registration: %s: %s", e.Op, e.Reason)
}
