package registration

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/signup/pkg/logger"
	"github.com/charlesng35/signup/pkg/mail"
	"github.com/charlesng35/signup/pkg/metrics"
)

// Email template names.
const (
	TemplateActivation   = "ActivationToken"
	TemplateConfirmation = "ConfirmationToken"
)

// Store persists flows. Find-one lookups return (nil, nil) when nothing matches.
type Store interface {
	FindByEmail(ctx context.Context, email string) ([]*Flow, error)
	FindOneByActivationToken(ctx context.Context, token string) (*Flow, error)
	FindOneByConfirmationToken(ctx context.Context, token string) (*Flow, error)
	Add(ctx context.Context, flow *Flow) error
	// Remove deletes flow. A flow that is already gone yields an error wrapping ErrFlowNotFound.
	Remove(ctx context.Context, flow *Flow) error
}

// EmailSender renders a named template with data and dispatches it.
type EmailSender interface {
	SendTemplateBasedEmail(ctx context.Context, template, subject string, from mail.Address, to []mail.Address, data map[string]any) error
}

// Account is the identity materialised from a confirmed flow.
type Account struct {
	ID         string
	Identifier string
}

// UserCreator converts a confirmed flow into a persisted account. A taken identifier yields an
// error wrapping ErrAccountExists.
type UserCreator interface {
	CreateUserAndAccount(ctx context.Context, flow *Flow) (*Account, error)
}

// Transactor runs fn so that every store and account write inside it commits together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config holds the addresses, subjects and token lifetimes used by the service.
type Config struct {
	Sender              mail.Address
	ConfirmationInbox   mail.Address
	SubjectActivation   string
	SubjectConfirmation string
	ActivationTimeout   time.Duration
	ConfirmationTimeout time.Duration
	TokenLength         int
}

// Option customises the Service.
type Option func(*Service)

// WithClock injects a custom time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTransactor makes account creation and flow removal commit atomically.
func WithTransactor(tx Transactor) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// WithLogger overrides the module logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// Service drives the register, activate and confirm steps.
type Service struct {
	store     Store
	validator FlowValidator
	emails    EmailSender
	users     UserCreator
	hasher    PasswordHasher
	tx        Transactor
	cfg       Config
	policy    TokenPolicy
	now       func() time.Time
	log       *zap.Logger
}

// NewService wires the registration service.
func NewService(store Store, validator FlowValidator, emails EmailSender, users UserCreator, hasher PasswordHasher, cfg Config, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("registration service: store is required")
	case validator == nil:
		return nil, errors.New("registration service: validator is required")
	case emails == nil:
		return nil, errors.New("registration service: email sender is required")
	case users == nil:
		return nil, errors.New("registration service: user creator is required")
	case hasher == nil:
		return nil, errors.New("registration service: password hasher is required")
	}

	cfg.ActivationTimeout = timeoutOrDefault(cfg.ActivationTimeout)
	cfg.ConfirmationTimeout = timeoutOrDefault(cfg.ConfirmationTimeout)

	s := &Service{
		store:     store,
		validator: validator,
		emails:    emails,
		users:     users,
		hasher:    hasher,
		cfg:       cfg,
		policy:    NewTokenPolicy(cfg.TokenLength),
		now:       time.Now,
		log:       logger.WithModule("registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterInput is the submitted registration form.
type RegisterInput struct {
	Email      string
	Password   string
	Attributes map[string]any
}

// RegisterResult reports either an accepted flow or the field errors that rejected it.
type RegisterResult struct {
	Flow       *Flow
	Validation *Result
}

// Accepted reports whether a flow was persisted.
func (r *RegisterResult) Accepted() bool {
	return r != nil && r.Flow != nil && !r.Validation.HasErrors()
}

func (s *Service) tokenSettings() TokenSettings {
	return TokenSettings{
		Policy:              s.policy,
		ActivationTimeout:   s.cfg.ActivationTimeout,
		ConfirmationTimeout: s.cfg.ConfirmationTimeout,
		Clock:               s.now,
	}
}

// Register validates the submission, replaces any pending flows for the same email, mails the
// activation link to the confirmation inbox and stores the new flow. Field errors are returned
// in the result, not as an error.
func (s *Service) Register(ctx context.Context, links LinkBuilder, input RegisterInput) (*RegisterResult, error) {
	entry := NewPasswordEntry(input.Password)

	flow, err := NewFlow(input.Email, entry, input.Attributes, s.tokenSettings())
	if err != nil {
		entry.Clear()
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.RegistrationEvents.WithLabelValues("register", "invalid").Inc()
			return &RegisterResult{Validation: verr.Result}, nil
		}
		return nil, s.fail("register", fmt.Errorf("registration: create flow: %w", err))
	}

	result, err := s.validator.Validate(ctx, flow)
	if err != nil {
		entry.Clear()
		return nil, s.fail("register", fmt.Errorf("registration: validate: %w", err))
	}
	if result.HasErrors() {
		entry.Clear()
		metrics.RegistrationEvents.WithLabelValues("register", "invalid").Inc()
		s.log.Info("registration rejected",
			zap.String("email", flow.Email()),
			zap.Strings("fields", result.Fields()),
		)
		return &RegisterResult{Validation: result}, nil
	}

	existing, err := s.store.FindByEmail(ctx, flow.Email())
	if err != nil {
		entry.Clear()
		return nil, s.fail("register", fmt.Errorf("registration: find existing flows: %w", err))
	}
	for _, old := range existing {
		if err := s.store.Remove(ctx, old); err != nil && !errors.Is(err, ErrFlowNotFound) {
			entry.Clear()
			return nil, s.fail("register", fmt.Errorf("registration: remove existing flow: %w", err))
		}
	}

	if err := flow.StoreEncryptedPassword(s.hasher); err != nil {
		return nil, s.fail("register", fmt.Errorf("registration: store password: %w", err))
	}

	err = s.emails.SendTemplateBasedEmail(ctx,
		TemplateActivation,
		s.cfg.SubjectActivation,
		s.cfg.Sender,
		[]mail.Address{s.cfg.ConfirmationInbox},
		map[string]any{
			"activationLink":   links.ActivationURI(flow.ActivationToken()),
			"applicationName":  s.cfg.Sender.Name,
			"registrationFlow": flowView(flow),
			"baseUri":          html.EscapeString(links.BaseURI()),
		},
	)
	if err != nil {
		return nil, s.fail("register", fmt.Errorf("registration: send activation email: %w", err))
	}

	if err := s.store.Add(ctx, flow); err != nil {
		return nil, s.fail("register", fmt.Errorf("registration: add flow: %w", err))
	}

	metrics.RegistrationEvents.WithLabelValues("register", "success").Inc()
	s.log.Info("registration flow created",
		zap.String("email", flow.Email()),
		zap.String("flow_id", flow.ID()),
		zap.Int("replaced", len(existing)),
		zap.String("to", string(StatePendingActivation)),
	)

	return &RegisterResult{Flow: flow, Validation: result}, nil
}

// ActivateAccount mails the confirmation link to the registrant once the activation link from
// the confirmation inbox was followed. The flow is not modified, so repeating the call with a
// live token sends the email again.
func (s *Service) ActivateAccount(ctx context.Context, links LinkBuilder, token string) (Outcome, error) {
	flow, outcome, err := s.lookup(ctx, "activate", token, s.store.FindOneByActivationToken, (*Flow).IsActivationTokenValid)
	if err != nil || outcome != OutcomeSuccess {
		return outcome, err
	}

	err = s.emails.SendTemplateBasedEmail(ctx,
		TemplateConfirmation,
		s.cfg.SubjectConfirmation,
		s.cfg.Sender,
		[]mail.Address{{Email: flow.Email()}},
		map[string]any{
			"confirmationLink": links.ConfirmationURI(flow.ConfirmationToken()),
			"applicationName":  s.cfg.Sender.Name,
			"registrationFlow": flowView(flow),
			"baseUri":          html.EscapeString(links.BaseURI()),
		},
	)
	if err != nil {
		return OutcomeFailed, s.fail("activate", fmt.Errorf("registration: send confirmation email: %w", err))
	}

	metrics.RegistrationEvents.WithLabelValues("activate", "success").Inc()
	s.log.Info("registration activated",
		zap.String("email", flow.Email()),
		zap.String("flow_id", flow.ID()),
		zap.String("from", string(StatePendingActivation)),
		zap.String("to", string(StatePendingConfirmation)),
	)
	return OutcomeSuccess, nil
}

// ConfirmAccount creates the account for a confirmed flow and removes the flow.
func (s *Service) ConfirmAccount(ctx context.Context, token string) (Outcome, error) {
	flow, outcome, err := s.lookup(ctx, "confirm", token, s.store.FindOneByConfirmationToken, (*Flow).IsConfirmationTokenValid)
	if err != nil || outcome != OutcomeSuccess {
		return outcome, err
	}

	var account *Account
	materialise := func(ctx context.Context) error {
		created, err := s.users.CreateUserAndAccount(ctx, flow)
		if err != nil {
			return fmt.Errorf("registration: create account: %w", err)
		}
		if err := s.store.Remove(ctx, flow); err != nil {
			return fmt.Errorf("registration: remove flow: %w", err)
		}
		account = created
		return nil
	}

	if s.tx != nil {
		err = s.tx.WithinTransaction(ctx, materialise)
	} else {
		err = materialise(ctx)
	}
	switch {
	case errors.Is(err, ErrAccountExists), errors.Is(err, ErrFlowNotFound):
		// Another confirm for the same flow committed first.
		metrics.RegistrationEvents.WithLabelValues("confirm", OutcomeTokenNotFound.String()).Inc()
		s.log.Info("registration already confirmed",
			zap.String("email", flow.Email()),
			zap.String("flow_id", flow.ID()),
			zap.Error(err),
		)
		return OutcomeTokenNotFound, nil
	case err != nil:
		return OutcomeFailed, s.fail("confirm", err)
	}

	fields := []zap.Field{
		zap.String("email", flow.Email()),
		zap.String("flow_id", flow.ID()),
		zap.String("from", string(StatePendingConfirmation)),
		zap.String("to", string(StateCompleted)),
	}
	if account != nil {
		fields = append(fields, zap.String("account_id", account.ID))
	}
	metrics.RegistrationEvents.WithLabelValues("confirm", "success").Inc()
	s.log.Info("registration completed", fields...)
	return OutcomeSuccess, nil
}

type tokenFinder func(ctx context.Context, token string) (*Flow, error)

func (s *Service) lookup(ctx context.Context, step, token string, find tokenFinder, valid func(*Flow, time.Time) bool) (*Flow, Outcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		metrics.RegistrationEvents.WithLabelValues(step, OutcomeTokenNotFound.String()).Inc()
		return nil, OutcomeTokenNotFound, nil
	}

	flow, err := find(ctx, token)
	if err != nil {
		return nil, OutcomeFailed, s.fail(step, fmt.Errorf("registration: find flow by token: %w", err))
	}
	if flow == nil {
		metrics.RegistrationEvents.WithLabelValues(step, OutcomeTokenNotFound.String()).Inc()
		s.log.Info("registration token not found", zap.String("step", step))
		return nil, OutcomeTokenNotFound, nil
	}
	if !valid(flow, s.now()) {
		metrics.RegistrationEvents.WithLabelValues(step, OutcomeTokenExpired.String()).Inc()
		s.log.Info("registration token expired", zap.String("step", step), zap.String("email", flow.Email()))
		return nil, OutcomeTokenExpired, nil
	}
	return flow, OutcomeSuccess, nil
}

func (s *Service) fail(step string, err error) error {
	metrics.RegistrationEvents.WithLabelValues(step, "error").Inc()
	s.log.Error("registration step failed", zap.String("step", step), zap.Error(err))
	return err
}

// flowView is the template-safe projection of a flow; secrets stay out of email bodies.
func flowView(f *Flow) map[string]any {
	return map[string]any{
		"email":                       f.Email(),
		"attributes":                  f.Attributes(),
		"createdAt":                   f.CreatedAt(),
		"activationTokenValidUntil":   f.ActivationTokenValidUntil(),
		"confirmationTokenValidUntil": f.ConfirmationTokenValidUntil(),
	}
}
