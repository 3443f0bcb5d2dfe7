package messaging

import "strings"

const whatsappPrefix = "whatsapp:"

// NormalizeE164 ensures the value begins with + and only contains digits afterward.
func NormalizeE164(value string) string {
	value = strings.TrimSpace(strings.TrimPrefix(value, whatsappPrefix))
	if value == "" {
		return ""
	}
	digits := sanitizePhone(value)
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// WhatsAppAddress formats a phone number as a Twilio WhatsApp destination.
func WhatsAppAddress(value string) string {
	e164 := NormalizeE164(value)
	if e164 == "" {
		return ""
	}
	return whatsappPrefix + e164
}

func sanitizePhone(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
