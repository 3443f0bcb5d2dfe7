package messaging

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/afyalink/reminder-service/pkg/logging"
)

const (
	// EmailProviderSendGrid selects the SendGrid email sender.
	EmailProviderSendGrid = "sendgrid"
	// EmailProviderSES selects the AWS SES email sender.
	EmailProviderSES = "ses"
)

// BuildConfig captures the credentials required to construct the channel senders.
type BuildConfig struct {
	Twilio        TwilioConfig
	EmailProvider string
	SendGrid      SendGridConfig
	SES           SESConfig
	SESClient     *sesv2.Client
}

// BuildRegistry constructs a sender registry from provider credentials.
// Channels whose credentials are missing are left unregistered; the returned
// slice names each skipped channel with the reason.
func BuildRegistry(cfg BuildConfig, logger *logging.Logger) (*Registry, []string) {
	if logger == nil {
		logger = logging.Default()
	}
	registry := NewRegistry()
	var skipped []string

	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		if cfg.Twilio.FromNumber != "" {
			registry.Register(ChannelSMS, NewTwilioSMSSender(cfg.Twilio, logger))
		} else {
			skipped = append(skipped, "sms: TWILIO_FROM_NUMBER missing")
		}
		if cfg.Twilio.WhatsAppFrom != "" || cfg.Twilio.FromNumber != "" {
			registry.Register(ChannelWhatsApp, NewTwilioWhatsAppSender(cfg.Twilio, logger))
		} else {
			skipped = append(skipped, "whatsapp: TWILIO_WHATSAPP_FROM missing")
		}
	} else {
		var reasons []string
		if cfg.Twilio.AccountSID == "" {
			reasons = append(reasons, "TWILIO_ACCOUNT_SID missing")
		}
		if cfg.Twilio.AuthToken == "" {
			reasons = append(reasons, "TWILIO_AUTH_TOKEN missing")
		}
		skipped = append(skipped, fmt.Sprintf("sms+whatsapp: %s", strings.Join(reasons, ", ")))
	}

	sendgrid := NewSendGridSender(cfg.SendGrid, logger)
	ses := NewSESSender(cfg.SESClient, cfg.SES, logger)
	provider := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	switch {
	case sendgrid != nil && ses != nil:
		// Both providers configured: the selected one leads and the
		// other catches its failures.
		if provider == EmailProviderSES {
			registry.Register(ChannelEmail, NewFailoverSender(ses, EmailProviderSES, sendgrid, EmailProviderSendGrid, logger))
		} else {
			registry.Register(ChannelEmail, NewFailoverSender(sendgrid, EmailProviderSendGrid, ses, EmailProviderSES, logger))
		}
	case provider == EmailProviderSES:
		if ses != nil {
			registry.Register(ChannelEmail, ses)
		} else {
			skipped = append(skipped, "email: SES client not configured")
		}
	default:
		if sendgrid != nil {
			registry.Register(ChannelEmail, sendgrid)
		} else {
			skipped = append(skipped, "email: SENDGRID_API_KEY missing")
		}
	}

	for _, reason := range skipped {
		logger.Warn("channel sender not configured", "reason", reason)
	}
	return registry, skipped
}
