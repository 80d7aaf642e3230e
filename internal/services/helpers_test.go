package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/signup/internal/database/testutil"
	"github.com/charlesng35/signup/internal/registration"
	"github.com/charlesng35/signup/pkg/mail"
)

var testNow = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func tokenSettingsAt(now time.Time, timeout time.Duration) registration.TokenSettings {
	return registration.TokenSettings{
		Policy:              registration.NewTokenPolicy(registration.DefaultTokenLength),
		ActivationTimeout:   timeout,
		ConfirmationTimeout: timeout,
		Clock:               func() time.Time { return now },
	}
}

func newHashedFlow(t *testing.T, email string, settings registration.TokenSettings) *registration.Flow {
	t.Helper()
	flow, err := registration.NewFlow(email, registration.NewPasswordEntry("secret-pass"), map[string]any{"name": "Test"}, settings)
	require.NoError(t, err)
	require.NoError(t, flow.StoreEncryptedPassword(BcryptHasher{Cost: 4}))
	return flow
}

type recordingMailer struct {
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}
