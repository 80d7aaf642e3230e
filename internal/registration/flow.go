package registration

import (
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	appValidator "github.com/charlesng35/signup/pkg/validator"
)

// TokenSettings carries what a flow needs to issue its tokens.
type TokenSettings struct {
	Policy              TokenPolicy
	ActivationTimeout   time.Duration
	ConfirmationTimeout time.Duration
	Clock               func() time.Time
}

func (s TokenSettings) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTokenTimeout
	}
	return d
}

// Flow is one in-progress signup attempt.
type Flow struct {
	id                string
	email             string
	encryptedPassword string
	passwordEntry     *PasswordEntry
	attributes        map[string]any
	activation        Token
	confirmation      Token
	createdAt         time.Time
}

// NewFlow validates the email and issues fresh activation and confirmation tokens.
// A malformed email is reported as *ValidationError.
func NewFlow(email string, entry *PasswordEntry, attributes map[string]any, settings TokenSettings) (*Flow, error) {
	email = strings.TrimSpace(email)
	if result := ValidateEmail(email); result.HasErrors() {
		return nil, &ValidationError{Result: result}
	}

	if attributes == nil {
		attributes = map[string]any{}
	}

	flow := &Flow{
		id:            uuid.NewString(),
		email:         email,
		passwordEntry: entry,
		attributes:    maps.Clone(attributes),
		createdAt:     settings.now(),
	}

	if err := flow.RegenerateActivationToken(settings); err != nil {
		return nil, err
	}
	if err := flow.RegenerateConfirmationToken(settings); err != nil {
		return nil, err
	}
	return flow, nil
}

// ValidateEmail checks that email is present and well formed, reporting failures on the
// "email" property.
func ValidateEmail(email string) *Result {
	email = strings.TrimSpace(email)
	result := NewResult()
	if email == "" {
		result.AddError("email", FieldError{Code: CodeEmailRequired, Template: "This property is required."})
		return result
	}

	if err := appValidator.ValidateVar("email", email, "email"); err != nil {
		result.AddError("email", FieldError{Code: CodeEmailInvalid, Template: "Please specify a valid email address."})
	}
	return result
}

// RegenerateActivationToken replaces the activation token and its expiry.
func (f *Flow) RegenerateActivationToken(settings TokenSettings) error {
	token, err := issueToken(settings, settings.ActivationTimeout)
	if err != nil {
		return err
	}
	f.activation = token
	return nil
}

// RegenerateConfirmationToken replaces the confirmation token and its expiry.
func (f *Flow) RegenerateConfirmationToken(settings TokenSettings) error {
	token, err := issueToken(settings, settings.ConfirmationTimeout)
	if err != nil {
		return err
	}
	f.confirmation = token
	return nil
}

func issueToken(settings TokenSettings, timeout time.Duration) (Token, error) {
	value, err := settings.Policy.GenerateToken()
	if err != nil {
		return Token{}, err
	}
	until := ComputeExpiry(settings.now(), timeoutOrDefault(timeout))
	return Token{Value: value, ValidUntil: &until}, nil
}

// StoreEncryptedPassword consumes the password entry. The plaintext is wiped even when
// hashing fails.
func (f *Flow) StoreEncryptedPassword(hasher PasswordHasher) error {
	if f.passwordEntry.Cleared() {
		return &StateError{Op: "store encrypted password", Reason: "no password entry set"}
	}
	if hasher == nil {
		f.passwordEntry.Clear()
		return &StateError{Op: "store encrypted password", Reason: "no password hasher"}
	}

	encrypted, err := f.passwordEntry.EncryptAndClear(hasher)
	f.passwordEntry = nil
	if err != nil {
		return err
	}
	if encrypted == "" {
		return errors.New("registration: password hasher returned an empty hash")
	}
	f.encryptedPassword = encrypted
	return nil
}

// IsActivationTokenValid reports whether the activation token is live at now.
func (f *Flow) IsActivationTokenValid(now time.Time) bool {
	return f.activation.ValidAt(now)
}

// IsConfirmationTokenValid reports whether the confirmation token is live at now.
func (f *Flow) IsConfirmationTokenValid(now time.Time) bool {
	return f.confirmation.ValidAt(now)
}

func (f *Flow) ID() string                { return f.id }
func (f *Flow) Email() string             { return f.email }
func (f *Flow) EncryptedPassword() string { return f.encryptedPassword }
func (f *Flow) CreatedAt() time.Time      { return f.createdAt }
func (f *Flow) ActivationToken() string   { return f.activation.Value }
func (f *Flow) ConfirmationToken() string { return f.confirmation.Value }

// HasPasswordEntry reports whether an unconsumed password entry is attached.
func (f *Flow) HasPasswordEntry() bool { return !f.passwordEntry.Cleared() }

// Attributes returns a copy of the extra signup fields.
func (f *Flow) Attributes() map[string]any { return maps.Clone(f.attributes) }

func (f *Flow) ActivationTokenValidUntil() *time.Time   { return copyTime(f.activation.ValidUntil) }
func (f *Flow) ConfirmationTokenValidUntil() *time.Time { return copyTime(f.confirmation.ValidUntil) }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// FlowSnapshot is the persistable state of a flow. The password entry is never part of it.
type FlowSnapshot struct {
	ID                          string
	Email                       string
	EncryptedPassword           string
	Attributes                  map[string]any
	ActivationToken             string
	ActivationTokenValidUntil   *time.Time
	ConfirmationToken           string
	ConfirmationTokenValidUntil *time.Time
	CreatedAt                   time.Time
}

// Snapshot exports the flow for storage.
func (f *Flow) Snapshot() FlowSnapshot {
	return FlowSnapshot{
		ID:                          f.id,
		Email:                       f.email,
		EncryptedPassword:           f.encryptedPassword,
		Attributes:                  maps.Clone(f.attributes),
		ActivationToken:             f.activation.Value,
		ActivationTokenValidUntil:   copyTime(f.activation.ValidUntil),
		ConfirmationToken:           f.confirmation.Value,
		ConfirmationTokenValidUntil: copyTime(f.confirmation.ValidUntil),
		CreatedAt:                   f.createdAt,
	}
}

// RestoreFlow rebuilds a flow previously exported with Snapshot.
func RestoreFlow(s FlowSnapshot) *Flow {
	attributes := maps.Clone(s.Attributes)
	if attributes == nil {
		attributes = map[string]any{}
	}
	return &Flow{
		id:                s.ID,
		email:             s.Email,
		encryptedPassword: s.EncryptedPassword,
		attributes:        attributes,
		activation:        Token{Value: s.ActivationToken, ValidUntil: copyTime(s.ActivationTokenValidUntil)},
		confirmation:      Token{Value: s.ConfirmationToken, ValidUntil: copyTime(s.ConfirmationTokenValidUntil)},
		createdAt:         s.CreatedAt,
	}
}
