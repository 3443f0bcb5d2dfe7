package inbound

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyalink/reminder-service/pkg/logging"
)

type recordingProcessor struct {
	replies []Reply
	outcome string
	err     error
}

func (p *recordingProcessor) Process(_ context.Context, in Reply) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.replies = append(p.replies, in)
	if p.outcome == "" {
		return OutcomeApplied, nil
	}
	return p.outcome, nil
}

func inboundForm(sid string) url.Values {
	return url.Values{
		"MessageSid": {sid},
		"From":       {"+254712345678"},
		"To":         {"+254733000111"},
		"Body":       {"YES"},
	}
}

func postInbound(t *testing.T, h *Handler, form url.Values, sign func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/twilio/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign != nil {
		sign(req)
	}
	rec := httptest.NewRecorder()
	h.HandleTwilioInbound(rec, req)
	return rec
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(discard{}, "error")
}

func TestHandleTwilioInbound(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewHandler(proc, testLogger())

	rec := postInbound(t, h, inboundForm("SM123"), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.Len(t, proc.replies, 1)
	assert.Equal(t, "+254712345678", proc.replies[0].From)
	assert.Equal(t, "YES", proc.replies[0].Body)
}

func TestHandleTwilioInboundNormalizesWhatsAppFrom(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewHandler(proc, testLogger())

	form := inboundForm("SM124")
	form.Set("From", "whatsapp:+254712345678")
	postInbound(t, h, form, nil)

	require.Len(t, proc.replies, 1)
	assert.Equal(t, "+254712345678", proc.replies[0].From)
}

func TestHandleTwilioInboundDedupe(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	proc := &recordingProcessor{}
	h := NewHandler(proc, testLogger()).
		WithDeduper(NewRedisDeduper(client, time.Hour))

	first := postInbound(t, h, inboundForm("SM200"), nil)
	second := postInbound(t, h, inboundForm("SM200"), nil)

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusNoContent, second.Code)
	assert.Len(t, proc.replies, 1)
}

func TestHandleTwilioInboundDedupeAllowsDistinctSids(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	proc := &recordingProcessor{}
	h := NewHandler(proc, testLogger()).
		WithDeduper(NewRedisDeduper(client, time.Hour))

	postInbound(t, h, inboundForm("SM201"), nil)
	postInbound(t, h, inboundForm("SM202"), nil)

	assert.Len(t, proc.replies, 2)
}

func TestHandleTwilioInboundSignature(t *testing.T) {
	const authToken = "secret-token"
	const webhookURL = "https://hooks.afyalink.example/webhooks/twilio/inbound"

	proc := &recordingProcessor{}
	h := NewHandler(proc, testLogger()).
		WithSignatureValidation(authToken, webhookURL)

	form := inboundForm("SM300")

	t.Run("missing signature rejected", func(t *testing.T) {
		rec := postInbound(t, h, form, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		rec := postInbound(t, h, form, func(r *http.Request) {
			r.Header.Set("X-Twilio-Signature", "bogus")
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		rec := postInbound(t, h, form, func(r *http.Request) {
			r.Header.Set("X-Twilio-Signature", signTwilio(webhookURL, form, authToken))
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.Len(t, proc.replies, 1)
	})
}

func TestHandleTwilioInboundProcessorError(t *testing.T) {
	proc := &recordingProcessor{err: assert.AnError}
	h := NewHandler(proc, testLogger())

	rec := postInbound(t, h, inboundForm("SM400"), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoutes(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewHandler(proc, testLogger())

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	resp, err := http.PostForm(srv.URL+"/twilio/inbound", inboundForm("SM500"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Len(t, proc.replies, 1)
}

// signTwilio reproduces Twilio's request signing for tests.
func signTwilio(webhookURL string, form url.Values, authToken string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, k := range keys {
		for _, v := range form[k] {
			payload.WriteString(k)
			payload.WriteString(v)
		}
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
