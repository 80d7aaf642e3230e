package registration

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Result collects field errors produced while validating a flow.
type Result struct {
	fields map[string][]FieldError
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{fields: make(map[string][]FieldError)}
}

// AddError attaches a field error to the named property.
func (r *Result) AddError(field string, err FieldError) {
	if r.fields == nil {
		r.fields = make(map[string][]FieldError)
	}
	r.fields[field] = append(r.fields[field], err)
}

// HasErrors reports whether any field error was recorded.
func (r *Result) HasErrors() bool {
	if r == nil {
		return false
	}
	for _, errs := range r.fields {
		if len(errs) > 0 {
			return true
		}
	}
	return false
}

// ErrorsFor returns the errors recorded for field.
func (r *Result) ErrorsFor(field string) []FieldError {
	if r == nil {
		return nil
	}
	return r.fields[field]
}

// Fields lists properties with errors in lexical order.
func (r *Result) Fields() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.fields))
	for name, errs := range r.fields {
		if len(errs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Messages renders every field error, keyed by property.
func (r *Result) Messages() map[string][]string {
	out := make(map[string][]string)
	for _, field := range r.Fields() {
		for _, fe := range r.fields[field] {
			out[field] = append(out[field], fe.Message())
		}
	}
	return out
}

// AccountLookup answers whether an account already uses an identifier.
type AccountLookup interface {
	AccountExists(ctx context.Context, identifier string) (bool, error)
}

// Extension adds application specific checks to registration validation. It may append
// field errors to result; returning an error aborts the registration as an internal failure.
type Extension interface {
	ValidateRegistrationFlow(ctx context.Context, flow *Flow, result *Result) error
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(ctx context.Context, flow *Flow, result *Result) error

func (f ExtensionFunc) ValidateRegistrationFlow(ctx context.Context, flow *Flow, result *Result) error {
	return f(ctx, flow, result)
}

// FlowValidator decides whether a flow may proceed.
type FlowValidator interface {
	Validate(ctx context.Context, flow *Flow) (*Result, error)
}

// UniquenessValidator rejects flows for emails that already belong to an account and then
// hands over to the optional extension.
type UniquenessValidator struct {
	accounts  AccountLookup
	extension Extension
}

// NewUniquenessValidator builds a validator. extension may be nil.
func NewUniquenessValidator(accounts AccountLookup, extension Extension) (*UniquenessValidator, error) {
	if accounts == nil {
		return nil, errors.New("registration validator: account lookup is required")
	}
	return &UniquenessValidator{accounts: accounts, extension: extension}, nil
}

func (v *UniquenessValidator) Validate(ctx context.Context, flow *Flow) (*Result, error) {
	if flow == nil {
		return nil, errors.New("registration validator: flow is required")
	}

	result := NewResult()

	exists, err := v.accounts.AccountExists(ctx, flow.Email())
	if err != nil {
		return nil, fmt.Errorf("registration validator: account lookup: %w", err)
	}
	if exists {
		result.AddError("email", FieldError{
			Code:      CodeEmailAlreadyInUse,
			Template:  "The email address %s is already in use!",
			Arguments: []any{flow.Email()},
		})
	}

	if v.extension != nil {
		if err := v.extension.ValidateRegistrationFlow(ctx, flow, result); err != nil {
			return nil, fmt.Errorf("registration validator: extension: %w", err)
		}
	}

	return result, nil
}
