package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/signup/internal/registration"
	appErrors "github.com/charlesng35/signup/pkg/errors"
	"github.com/charlesng35/signup/pkg/response"
	appValidator "github.com/charlesng35/signup/pkg/validator"
)

const defaultPasswordMinLength = 8

// Registrar is the registration workflow driven by the HTTP surface.
type Registrar interface {
	Register(ctx context.Context, links registration.LinkBuilder, input registration.RegisterInput) (*registration.RegisterResult, error)
	ActivateAccount(ctx context.Context, links registration.LinkBuilder, token string) (registration.Outcome, error)
	ConfirmAccount(ctx context.Context, token string) (registration.Outcome, error)
}

// RegistrationOptions configures the registration endpoints.
type RegistrationOptions struct {
	ApplicationName string
	// PublicBaseURL overrides the request derived base of emailed links.
	PublicBaseURL     string
	PasswordMinLength int
	ActivationPath    string
	ConfirmationPath  string
}

// RegistrationHandler exposes the double opt-in registration flow.
type RegistrationHandler struct {
	svc  Registrar
	opts RegistrationOptions
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc Registrar, opts RegistrationOptions) (*RegistrationHandler, error) {
	if svc == nil {
		return nil, errors.New("registration handler: service is required")
	}
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = defaultPasswordMinLength
	}
	if opts.ActivationPath == "" {
		opts.ActivationPath = "/api/registration/activate"
	}
	if opts.ConfirmationPath == "" {
		opts.ConfirmationPath = "/api/registration/confirm"
	}
	return &RegistrationHandler{svc: svc, opts: opts}, nil
}

type registerRequest struct {
	Email                string         `json:"email"`
	Password             string         `json:"password" validate:"required"`
	PasswordConfirmation string         `json:"password_confirmation" validate:"required,eqfield=Password"`
	Attributes           map[string]any `json:"attributes"`
}

type formField struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Required  bool   `json:"required"`
	MinLength int    `json:"min_length,omitempty"`
}

// GET /api/registration
func (h *RegistrationHandler) Index(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"application_name":    h.opts.ApplicationName,
		"password_min_length": h.opts.PasswordMinLength,
		"fields": []formField{
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true, MinLength: h.opts.PasswordMinLength},
			{Name: "password_confirmation", Type: "password", Required: true},
			{Name: "attributes", Type: "object"},
		},
	})
}

// POST /api/registration
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	result := registration.ValidateEmail(req.Email)
	if err := h.validatePassword(result, &req); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if result.HasErrors() {
		response.Error(c, appErrors.ErrRegistrationInvalid.WithFields(result.Messages()))
		return
	}

	res, err := h.svc.Register(c.Request.Context(), h.links(c), registration.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Attributes: req.Attributes,
	})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	if !res.Accepted() {
		response.Error(c, appErrors.ErrRegistrationInvalid.WithFields(res.Validation.Messages()))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"email":  res.Flow.Email(),
		"status": registration.StatePendingActivation,
	})
}

func (h *RegistrationHandler) validatePassword(result *registration.Result, req *registerRequest) error {
	if err := addValidationErrors(result, appValidator.ValidateStruct(req)); err != nil {
		return err
	}
	if len(result.ErrorsFor("password")) > 0 {
		return nil
	}
	tag := fmt.Sprintf("min=%d", h.opts.PasswordMinLength)
	return addValidationErrors(result, appValidator.ValidateVar("password", req.Password, tag))
}

// GET /api/registration/activate?token=
func (h *RegistrationHandler) ActivateAccount(c *gin.Context) {
	outcome, err := h.svc.ActivateAccount(c.Request.Context(), h.links(c), c.Query("token"))
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	h.respondOutcome(c, outcome, registration.StatePendingConfirmation)
}

// GET /api/registration/confirm?token=
func (h *RegistrationHandler) ConfirmAccount(c *gin.Context) {
	outcome, err := h.svc.ConfirmAccount(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	h.respondOutcome(c, outcome, registration.StateCompleted)
}

func (h *RegistrationHandler) respondOutcome(c *gin.Context, outcome registration.Outcome, next registration.State) {
	switch outcome {
	case registration.OutcomeSuccess:
		response.Success(c, http.StatusOK, gin.H{"status": next})
	case registration.OutcomeTokenExpired:
		response.Error(c, appErrors.ErrTokenTimeout)
	default:
		response.Error(c, appErrors.ErrTokenNotFound)
	}
}

func (h *RegistrationHandler) links(c *gin.Context) registration.LinkBuilder {
	base := strings.TrimSpace(h.opts.PublicBaseURL)
	if base == "" {
		base = requestBaseURL(c)
	}
	return registration.NewLinks(base, h.opts.ActivationPath, h.opts.ConfirmationPath)
}

// requestBaseURL derives scheme and host from the inbound request, honouring a proxy's
// X-Forwarded-Proto header.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		proto = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		if proto == "http" || proto == "https" {
			scheme = proto
		}
	}
	return scheme + "://" + c.Request.Host + "/"
}
