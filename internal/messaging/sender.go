// Package messaging provides channel-polymorphic outbound senders for
// patient and doctor notifications: SMS and WhatsApp via Twilio, email via
// SendGrid or SES. Senders are constructed dependencies; callers pick one
// through a Registry keyed by delivery channel.
package messaging

import "context"

// Channel is the notification medium a message travels over.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Result describes a successful provider dispatch.
type Result struct {
	ProviderMessageID string
}

// ChannelSender dispatches one message to one destination address.
// Implementations own their address-formatting rules; callers pass the raw
// stored contact string.
type ChannelSender interface {
	Send(ctx context.Context, to, body string) (Result, error)
}

// Registry maps channels to their configured senders.
type Registry struct {
	senders map[Channel]ChannelSender
}

// NewRegistry creates an empty sender registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[Channel]ChannelSender)}
}

// Register binds a sender to a channel, replacing any previous binding.
func (r *Registry) Register(ch Channel, s ChannelSender) {
	if s == nil {
		return
	}
	r.senders[ch] = s
}

// For returns the sender bound to a channel.
func (r *Registry) For(ch Channel) (ChannelSender, bool) {
	s, ok := r.senders[ch]
	return s, ok
}

// Channels lists the channels that currently have a sender.
func (r *Registry) Channels() []Channel {
	out := make([]Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}
