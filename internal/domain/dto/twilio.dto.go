package dto

import (
	"encoding/xml"
	"strings"
)

// TwilioInbound carries the form fields of a Twilio WhatsApp webhook.
type TwilioInbound struct {
	MessageSid string
	From       string
	To         string
	Body       string
	NumMedia   string
}

// SenderPhone strips the "whatsapp:" channel prefix Twilio puts on numbers.
func (t TwilioInbound) SenderPhone() string {
	return strings.TrimPrefix(t.From, "whatsapp:")
}

type TwiMLResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}
