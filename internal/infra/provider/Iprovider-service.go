package provider

import "context"

// IWhatsAppProvider delivers outbound WhatsApp text messages.
type IWhatsAppProvider interface {
	SendTextMessage(ctx context.Context, to, message string) error
}
