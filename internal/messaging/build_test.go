package messaging

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRegistryAllChannels(t *testing.T) {
	reg, skipped := BuildRegistry(BuildConfig{
		Twilio: TwilioConfig{
			AccountSID:   "AC",
			AuthToken:    "tok",
			FromNumber:   "+1555",
			WhatsAppFrom: "+1556",
		},
		EmailProvider: EmailProviderSendGrid,
		SendGrid:      SendGridConfig{APIKey: "SG.x", FromEmail: "noreply@afyalink.example"},
	}, nil)

	assert.Empty(t, skipped)
	for _, ch := range []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail} {
		_, ok := reg.For(ch)
		assert.True(t, ok, "expected sender for %s", ch)
	}
}

func TestBuildRegistryMissingCredentials(t *testing.T) {
	reg, skipped := BuildRegistry(BuildConfig{}, nil)

	assert.Empty(t, reg.Channels())
	assert.NotEmpty(t, skipped)
}

func TestBuildRegistrySESWithoutClient(t *testing.T) {
	_, skipped := BuildRegistry(BuildConfig{EmailProvider: EmailProviderSES}, nil)
	assert.Contains(t, skipped, "email: SES client not configured")
}

func TestBuildRegistryEmailFailover(t *testing.T) {
	cfg := BuildConfig{
		EmailProvider: EmailProviderSendGrid,
		SendGrid:      SendGridConfig{APIKey: "SG.x", FromEmail: "noreply@afyalink.example"},
		SESClient:     sesv2.New(sesv2.Options{}),
		SES:           SESConfig{FromEmail: "noreply@afyalink.example"},
	}

	reg, _ := BuildRegistry(cfg, nil)
	sender, ok := reg.For(ChannelEmail)
	require.True(t, ok)

	fo, ok := sender.(*FailoverSender)
	require.True(t, ok, "expected email failover when both providers are configured")
	assert.IsType(t, &SendGridSender{}, fo.primary)
	assert.IsType(t, &SESSender{}, fo.secondary)
}

func TestBuildRegistryEmailFailoverSESPrimary(t *testing.T) {
	reg, _ := BuildRegistry(BuildConfig{
		EmailProvider: EmailProviderSES,
		SendGrid:      SendGridConfig{APIKey: "SG.x", FromEmail: "noreply@afyalink.example"},
		SESClient:     sesv2.New(sesv2.Options{}),
	}, nil)

	sender, ok := reg.For(ChannelEmail)
	require.True(t, ok)
	fo, ok := sender.(*FailoverSender)
	require.True(t, ok)
	assert.IsType(t, &SESSender{}, fo.primary)
	assert.IsType(t, &SendGridSender{}, fo.secondary)
}
