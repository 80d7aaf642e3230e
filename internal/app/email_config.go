package app

import (
	"strings"

	"github.com/charlesng35/signup/internal/registration"
	"github.com/charlesng35/signup/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// RegistrationServiceConfig assembles the registration service settings from the email and
// registration sections.
func (c *Config) RegistrationServiceConfig() registration.Config {
	return registration.Config{
		Sender: mail.Address{
			Email: strings.TrimSpace(c.Email.SenderAddress),
			Name:  strings.TrimSpace(c.Email.SenderName),
		},
		ConfirmationInbox: mail.Address{
			Email: strings.TrimSpace(c.Email.ConfirmationAddress),
			Name:  strings.TrimSpace(c.Email.ConfirmationName),
		},
		SubjectActivation:   c.Email.SubjectActivation,
		SubjectConfirmation: c.Email.SubjectConfirmation,
		ActivationTimeout:   c.Registration.ActivationTokenTimeout,
		ConfirmationTimeout: c.Registration.ConfirmationTokenTimeout,
		TokenLength:         c.Registration.TokenLength,
	}
}
