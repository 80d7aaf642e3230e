package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/api"
	"github.com/charlesng35/signup/internal/app"
	sharedtestutil "github.com/charlesng35/signup/internal/database/testutil"
	"github.com/charlesng35/signup/internal/middleware"
	"github.com/charlesng35/signup/internal/monitoring"
	"github.com/charlesng35/signup/internal/registration"
	"github.com/charlesng35/signup/internal/services"
	"github.com/charlesng35/signup/pkg/mail"
	"github.com/charlesng35/signup/pkg/response"
)

const (
	// ConfirmationInbox receives activation requests in the test environment.
	ConfirmationInbox = "moderators@example.com"
	// ApplicationName is the sender display name used in the test environment.
	ApplicationName = "Signup Test"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	Config *app.Config
	Mailer *RecordingMailer
	Users  *services.UserService
	Flows  *services.FlowRepository

	mu  sync.Mutex
	now time.Time
}

type envSettings struct {
	configure []func(cfg *app.Config)
	router    []api.RouterOption
}

// EnvOption customises the environment before the router is built.
type EnvOption func(s *envSettings)

// WithConfig adjusts the test configuration.
func WithConfig(fn func(cfg *app.Config)) EnvOption {
	return func(s *envSettings) {
		s.configure = append(s.configure, fn)
	}
}

// WithReadinessCheck registers an additional readiness probe.
func WithReadinessCheck(check monitoring.Check) EnvOption {
	return func(s *envSettings) {
		s.router = append(s.router, api.WithReadinessCheck(check))
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Health:     app.HealthConfig{Enabled: true},
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
		Email: app.EmailConfig{
			SenderAddress:       "no-reply@example.com",
			SenderName:          ApplicationName,
			ConfirmationAddress: ConfirmationInbox,
			ConfirmationName:    "Moderators",
			SubjectActivation:   "New registration",
			SubjectConfirmation: "Confirm your registration",
		},
		Registration: app.RegistrationConfig{
			ActivationTokenTimeout:   24 * time.Hour,
			ConfirmationTokenTimeout: 24 * time.Hour,
			TokenLength:              registration.DefaultTokenLength,
			PasswordMinLength:        8,
			RateLimit:                app.RateLimitConfig{Requests: 100, Window: time.Minute},
		},
	}
	var settings envSettings
	for _, opt := range opts {
		opt(&settings)
	}
	for _, fn := range settings.configure {
		fn(cfg)
	}

	env := &Env{
		T:      t,
		DB:     db,
		Config: cfg,
		Mailer: &RecordingMailer{},
		now:    time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC),
	}

	flows, err := services.NewFlowRepository(db)
	require.NoError(t, err)
	users, err := services.NewUserService(db)
	require.NoError(t, err)
	emails, err := services.NewEmailService(env.Mailer)
	require.NoError(t, err)
	tx, err := services.NewTransactor(db)
	require.NoError(t, err)
	validator, err := registration.NewUniquenessValidator(users, nil)
	require.NoError(t, err)

	svc, err := registration.NewService(flows, validator, emails, users, services.BcryptHasher{Cost: 4},
		cfg.RegistrationServiceConfig(),
		registration.WithClock(env.Now),
		registration.WithTransactor(tx),
	)
	require.NoError(t, err)

	store := middleware.NewMemoryRateStore(time.Minute)
	t.Cleanup(store.Close)

	router, err := api.NewRouter(db, cfg, svc, store, settings.router...)
	require.NoError(t, err)

	env.Router = router
	env.Users = users
	env.Flows = flows
	return env
}

// Now returns the environment clock.
func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

// Advance moves the environment clock forward.
func (e *Env) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, JSON encoding body when present.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.RequestWithHeaders(method, path, body, nil)
}

// RequestWithHeaders is Request with additional request headers.
func (e *Env) RequestWithHeaders(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	switch v := body.(type) {
	case nil:
		buf = bytes.NewBuffer(nil)
	case string:
		buf = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Register submits a valid registration for email and returns the recorder.
func (e *Env) Register(email, password string, attributes map[string]any) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.Request(http.MethodPost, "/api/registration", map[string]any{
		"email":                 email,
		"password":              password,
		"password_confirmation": password,
		"attributes":            attributes,
	})
}

// RecordingMailer captures outbound messages instead of delivering them.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

// Send records msg or returns Err when set.
func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of every recorded message.
func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// Last returns the most recent message, failing the test when none was sent.
func (m *RecordingMailer) Last(t *testing.T) mail.Message {
	t.Helper()
	msgs := m.Messages()
	require.NotEmpty(t, msgs, "no email was sent")
	return msgs[len(msgs)-1]
}

var linkPattern = regexp.MustCompile(`(https?://\S+\?token=)([A-Za-z0-9]+)`)

// ExtractLink returns the first tokenised link in body along with its token.
func ExtractLink(t *testing.T, body string) (link, token string) {
	t.Helper()
	match := linkPattern.FindStringSubmatch(body)
	require.NotNil(t, match, "no link in email body:\n%s", body)
	return match[0], match[2]
}
