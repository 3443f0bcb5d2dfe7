package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/afyalink/reminder-service/pkg/logging"
)

// SESConfig holds configuration for the AWS SES email sender.
type SESConfig struct {
	FromEmail string
	FromName  string
	Subject   string
}

// SESSender sends email notifications via AWS SES.
type SESSender struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	subject   string
	logger    *logging.Logger
}

// NewSESSender creates an SES email sender. Returns nil when no client is supplied.
func NewSESSender(client *sesv2.Client, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
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
	return &SESSender{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		subject:   cfg.Subject,
		logger:    logger,
	}
}

var _ ChannelSender = (*SESSender)(nil)

// Send delivers a plain-text email through SES.
func (s *SESSender) Send(ctx context.Context, to, body string) (Result, error) {
	if s == nil || s.client == nil {
		return Result{}, fmt.Errorf("messaging: SES client not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" || !strings.Contains(to, "@") {
		return Result{}, fmt.Errorf("messaging: invalid email destination %q", to)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(s.subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("SES send failed", "error", err, "to", to)
		return Result{}, fmt.Errorf("messaging: SES send failed: %w", err)
	}

	s.logger.Info("email sent via SES", "to", to, "message_id", aws.ToString(output.MessageId))
	return Result{ProviderMessageID: aws.ToString(output.MessageId)}, nil
}
