package inbound

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/afyalink/reminder-service/internal/messaging"
	"github.com/afyalink/reminder-service/internal/observability/metrics"
	"github.com/afyalink/reminder-service/pkg/logging"
)

type deduper interface {
	Seen(ctx context.Context, messageID string) (bool, error)
}

type replyProcessor interface {
	Process(ctx context.Context, in Reply) (string, error)
}

// Handler terminates provider webhooks for inbound replies.
type Handler struct {
	processor  replyProcessor
	deduper    deduper
	authToken  string
	webhookURL string
	logger     *logging.Logger
	metrics    *metrics.SchedulerMetrics
}

// NewHandler creates a webhook handler. authToken enables Twilio signature
// validation when non-empty; webhookURL is the public URL Twilio signs.
func NewHandler(processor replyProcessor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{processor: processor, logger: logger}
}

// WithSignatureValidation enables Twilio request signature checks.
func (h *Handler) WithSignatureValidation(authToken, webhookURL string) *Handler {
	h.authToken = authToken
	h.webhookURL = webhookURL
	return h
}

// WithDeduper enables replay suppression by provider message ID.
func (h *Handler) WithDeduper(d deduper) *Handler {
	h.deduper = d
	return h
}

// WithMetrics attaches webhook metrics.
func (h *Handler) WithMetrics(m *metrics.SchedulerMetrics) *Handler {
	h.metrics = m
	return h
}

// Routes mounts the webhook endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/twilio/inbound", h.HandleTwilioInbound)
	return r
}

// HandleTwilioInbound processes one Twilio inbound-message callback. The
// provider is answered 204 once the request is authenticated; reply semantics
// never surface as webhook errors. Acks go out through the senders, not the
// webhook response.
func (h *Handler) HandleTwilioInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.authToken != "" && !messaging.ValidateTwilioSignature(r, h.authToken, h.webhookURL) {
		h.logger.Warn("rejected webhook with invalid signature", "remote", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	msg, err := messaging.ParseTwilioInbound(r)
	if err != nil {
		h.logger.Warn("malformed inbound webhook", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if h.deduper != nil && msg.MessageSid != "" {
		seen, err := h.deduper.Seen(r.Context(), msg.MessageSid)
		if err != nil {
			h.logger.Error("dedupe check failed", "message_sid", msg.MessageSid, "error", err)
		} else if seen {
			h.logger.Info("dropped redelivered webhook", "message_sid", msg.MessageSid)
			h.respond(w)
			return
		}
	}

	outcome, err := h.processor.Process(r.Context(), Reply{
		From: messaging.NormalizeE164(msg.From),
		Body: msg.Body,
	})
	if err != nil {
		h.logger.Error("inbound reply processing failed", "from", msg.From, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveInbound(outcome)
		h.metrics.ObserveWebhookLatency("twilio", time.Since(start).Seconds())
	}
	h.respond(w)
}

func (h *Handler) respond(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
