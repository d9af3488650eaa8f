package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"barrio-connector/internal/domain/dto"
	Iservices "barrio-connector/internal/domain/interfaces/services"
	"barrio-connector/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

// TwilioHandlers answers Twilio WhatsApp webhooks inline with TwiML.
type TwilioHandlers struct {
	Logger         *logger.Logger
	ChannelService Iservices.IChannelService
	// AuthToken enables X-Twilio-Signature validation when set.
	AuthToken string
	// ReplyTimeout caps the work done before answering; Twilio drops replies after 15s.
	ReplyTimeout time.Duration
}

func NewTwilioHandlers(logger *logger.Logger, channelService Iservices.IChannelService, authToken string, replyTimeout time.Duration) *TwilioHandlers {
	return &TwilioHandlers{Logger: logger, ChannelService: channelService, AuthToken: authToken, ReplyTimeout: replyTimeout}
}

func (th *TwilioHandlers) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error to process form", http.StatusBadRequest)
		return
	}

	if th.AuthToken != "" {
		signature := r.Header.Get("X-Twilio-Signature")
		if !ValidTwilioSignature(th.AuthToken, requestURL(r), r.PostForm, signature) {
			th.Logger.Warn("Rejected Twilio webhook with invalid signature", logrus.Fields{"remote_addr": r.RemoteAddr})
			http.Error(w, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	inbound := dto.TwilioInbound{
		MessageSid: r.PostForm.Get("MessageSid"),
		From:       r.PostForm.Get("From"),
		To:         r.PostForm.Get("To"),
		Body:       r.PostForm.Get("Body"),
		NumMedia:   r.PostForm.Get("NumMedia"),
	}
	if inbound.From == "" {
		http.Error(w, "Missing From", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if th.ReplyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, th.ReplyTimeout)
		defer cancel()
	}
	reply := th.ChannelService.Converse(ctx, inbound.SenderPhone(), inbound.Body)

	body, err := xml.Marshal(dto.TwiMLResponse{Messages: []string{reply}})
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to encode TwiML: %v", err), logrus.Fields{"message_sid": inbound.MessageSid})
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// ValidTwilioSignature checks signature against the HMAC-SHA1 of the full
// request URL followed by every POST parameter, sorted by name.
func ValidTwilioSignature(authToken, fullURL string, params url.Values, signature string) bool {
	if signature == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			sb.WriteString(k)
			sb.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(sb.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// requestURL rebuilds the public URL Twilio signed, honoring proxy headers.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host + r.URL.RequestURI()
}
