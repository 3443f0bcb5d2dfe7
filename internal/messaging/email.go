package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/afyalink/reminder-service/pkg/logging"
)

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	Subject   string
}

// SendGridSender sends email notifications via the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	subject   string
	logger    *logging.Logger
}

// NewSendGridSender creates a SendGrid email sender. Returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "AfyaLink"
	}
	if cfg.Subject == "" {
		cfg.Subject = "Appointment notification"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		subject:   cfg.Subject,
		logger:    logger,
	}
}

var _ ChannelSender = (*SendGridSender)(nil)

// Send delivers a plain-text email to the destination address.
func (s *SendGridSender) Send(ctx context.Context, to, body string) (Result, error) {
	if s == nil || s.client == nil {
		return Result{}, fmt.Errorf("messaging: sendgrid client not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" || !strings.Contains(to, "@") {
		return Result{}, fmt.Errorf("messaging: invalid email destination %q", to)
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	dest := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, s.subject, dest, body, body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", to)
		return Result{}, fmt.Errorf("messaging: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "to", to)
		return Result{}, fmt.Errorf("messaging: sendgrid returned status %d", response.StatusCode)
	}

	messageID := ""
	if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}
	s.logger.Info("email sent via sendgrid", "to", to, "status", response.StatusCode)
	return Result{ProviderMessageID: messageID}, nil
}
