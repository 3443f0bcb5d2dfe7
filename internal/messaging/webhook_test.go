package messaging

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTwilioInbound(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "whatsapp:+254700000000")
	form.Set("To", "whatsapp:+15550000001")
	form.Set("Body", "YES")

	r := httptest.NewRequest("POST", "/webhooks/twilio/inbound", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseTwilioInbound(r)
	require.NoError(t, err)
	assert.Equal(t, "SM1", msg.MessageSid)
	assert.Equal(t, "whatsapp:+254700000000", msg.From)
	assert.Equal(t, "YES", msg.Body)
}

func TestValidateTwilioSignature(t *testing.T) {
	const authToken = "secret"
	const webhookURL = "https://hooks.afyalink.example/webhooks/twilio/inbound"

	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("Body", "YES")

	signature := computeTwilioSignature(buildSignaturePayload(webhookURL, form), authToken)

	r := httptest.NewRequest("POST", "/webhooks/twilio/inbound", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", signature)
	assert.True(t, ValidateTwilioSignature(r, authToken, webhookURL))

	r2 := httptest.NewRequest("POST", "/webhooks/twilio/inbound", strings.NewReader(form.Encode()))
	r2.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r2.Header.Set("X-Twilio-Signature", "bogus")
	assert.False(t, ValidateTwilioSignature(r2, authToken, webhookURL))
}
