package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/charlesng35/signup/pkg/logger"
	"github.com/charlesng35/signup/pkg/mail"
	"github.com/charlesng35/signup/pkg/metrics"
)

//go:embed templates/*.txt
var emailTemplates embed.FS

// EmailService renders named plain text templates and hands them to the mailer.
type EmailService struct {
	mailer    mail.Mailer
	templates *template.Template
	log       *zap.Logger
}

// NewEmailService parses the bundled templates.
func NewEmailService(mailer mail.Mailer) (*EmailService, error) {
	if mailer == nil {
		return nil, errors.New("email service: mailer is required")
	}
	tmpl, err := template.New("emails").ParseFS(emailTemplates, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("email service: parse templates: %w", err)
	}
	return &EmailService{
		mailer:    mailer,
		templates: tmpl,
		log:       logger.WithModule("email"),
	}, nil
}

// SendTemplateBasedEmail renders templateName with data and sends it. Disabled SMTP delivery
// is logged and not reported as a failure.
func (s *EmailService) SendTemplateBasedEmail(ctx context.Context, templateName, subject string, from mail.Address, to []mail.Address, data map[string]any) error {
	body, err := s.Render(templateName, data)
	if err != nil {
		metrics.EmailsSent.WithLabelValues(templateName, "failed").Inc()
		return err
	}

	err = s.mailer.Send(ctx, mail.Message{
		From:    from,
		To:      to,
		Subject: subject,
		Body:    body,
	})
	switch {
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.EmailsSent.WithLabelValues(templateName, "disabled").Inc()
		s.log.Warn("smtp disabled, email not delivered",
			zap.String("template", templateName),
			zap.Int("recipients", len(to)),
		)
		return nil
	case err != nil:
		metrics.EmailsSent.WithLabelValues(templateName, "failed").Inc()
		return fmt.Errorf("email service: send %s: %w", templateName, err)
	}

	metrics.EmailsSent.WithLabelValues(templateName, "sent").Inc()
	s.log.Info("email sent", zap.String("template", templateName), zap.Int("recipients", len(to)))
	return nil
}

// Render executes the named template.
func (s *EmailService) Render(templateName string, data map[string]any) (string, error) {
	tmpl := s.templates.Lookup(templateName + ".txt")
	if tmpl == nil {
		return "", fmt.Errorf("email service: unknown template %q", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("email service: render %s: %w", templateName, err)
	}
	return buf.String(), nil
}
