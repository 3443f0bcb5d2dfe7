package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/afyalink/reminder-service/pkg/logging"
)

var twilioTracer = otel.Tracer("afyalink.internal.messaging.twilio")

const twilioAPIBase = "https://api.twilio.com"

// TwilioConfig carries the credentials shared by the SMS and WhatsApp senders.
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	FromNumber   string
	WhatsAppFrom string
}

// twilioClient posts messages to Twilio's REST API, retrying transient failures.
type twilioClient struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

func newTwilioClient(cfg TwilioConfig, logger *logging.Logger) *twilioClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &twilioClient{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *twilioClient) send(ctx context.Context, from, to, body string) (Result, error) {
	if c.accountSID == "" || c.authToken == "" {
		return Result{}, errors.New("messaging: twilio credentials missing")
	}
	if to == "" {
		return Result{}, errors.New("messaging: to required")
	}
	if from == "" {
		return Result{}, errors.New("messaging: from required")
	}
	if strings.TrimSpace(body) == "" {
		return Result{}, errors.New("messaging: body required")
	}

	ctx, span := twilioTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("afyalink.to", to))

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(respBody, &parsed)
				c.logger.Info("twilio message sent", "to", to, "sid", parsed.SID)
				return Result{ProviderMessageID: parsed.SID}, nil
			}
			lastErr = fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, respBody))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			select {
			case <-ctx.Done():
				if lastErr == nil {
					lastErr = ctx.Err()
				}
				span.RecordError(lastErr)
				return Result{}, lastErr
			case <-time.After(time.Duration(200+rand.Intn(300)) * time.Millisecond):
			}
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return Result{}, lastErr
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}

// TwilioSMSSender sends plain SMS through Twilio.
type TwilioSMSSender struct {
	client *twilioClient
	from   string
}

// NewTwilioSMSSender builds an SMS sender with sane defaults.
func NewTwilioSMSSender(cfg TwilioConfig, logger *logging.Logger) *TwilioSMSSender {
	return &TwilioSMSSender{client: newTwilioClient(cfg, logger), from: cfg.FromNumber}
}

var _ ChannelSender = (*TwilioSMSSender)(nil)

// Send dispatches one SMS, normalizing the destination to E.164.
func (s *TwilioSMSSender) Send(ctx context.Context, to, body string) (Result, error) {
	dest := NormalizeE164(to)
	if dest == "" {
		return Result{}, fmt.Errorf("messaging: invalid sms destination %q", to)
	}
	return s.client.send(ctx, s.from, dest, body)
}

// TwilioWhatsAppSender sends WhatsApp messages through Twilio's messaging API.
type TwilioWhatsAppSender struct {
	client *twilioClient
	from   string
}

// NewTwilioWhatsAppSender builds a WhatsApp sender.
func NewTwilioWhatsAppSender(cfg TwilioConfig, logger *logging.Logger) *TwilioWhatsAppSender {
	from := cfg.WhatsAppFrom
	if from == "" {
		from = cfg.FromNumber
	}
	return &TwilioWhatsAppSender{client: newTwilioClient(cfg, logger), from: from}
}

var _ ChannelSender = (*TwilioWhatsAppSender)(nil)

// Send dispatches one WhatsApp message. Both addresses carry the whatsapp: prefix.
func (s *TwilioWhatsAppSender) Send(ctx context.Context, to, body string) (Result, error) {
	dest := WhatsAppAddress(to)
	if dest == "" {
		return Result{}, fmt.Errorf("messaging: invalid whatsapp destination %q", to)
	}
	return s.client.send(ctx, WhatsAppAddress(s.from), dest, body)
}
