package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"barrio-connector/internal/domain/dto"
	"barrio-connector/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	phone       string
	utterance   string
	deadline    time.Time
	hasDeadline bool
	webhooks    chan *dto.InboundResponse
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{webhooks: make(chan *dto.InboundResponse, 1)}
}

func (f *fakeChannel) Converse(ctx context.Context, senderPhone, utterance string) string {
	f.phone, f.utterance = senderPhone, utterance
	f.deadline, f.hasDeadline = ctx.Deadline()
	return "Venta <registrada> & lista"
}

func (f *fakeChannel) HandleInbound(context.Context, string, string) {}

func (f *fakeChannel) WebhookService(_ context.Context, webhookDto *dto.InboundResponse) {
	f.webhooks <- webhookDto
}

type fakeEngine struct {
	phone, store, utterance string
}

func (f *fakeEngine) ProcessMessage(_ context.Context, userPhone, storeID, utterance string) string {
	f.phone, f.store, f.utterance = userPhone, storeID, utterance
	return "¿Quién fue el cliente?"
}

func twilioForm() url.Values {
	return url.Values{
		"MessageSid": {"SM123"},
		"From":       {"whatsapp:+5215512345678"},
		"To":         {"whatsapp:+14155238886"},
		"Body":       {"vendí 2 aguas"},
		"NumMedia":   {"0"},
	}
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestTwilioWebhook_RepliesWithTwiML(t *testing.T) {
	channel := newFakeChannel()
	h := NewTwilioHandlers(logger.NewDiscardLogger(), channel, "", 0)

	rec := httptest.NewRecorder()
	h.TwilioWebhook(rec, postForm("/webhook/twilio", twilioForm()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<Response><Message>Venta &lt;registrada&gt; &amp; lista</Message></Response>")
	assert.Equal(t, "+5215512345678", channel.phone)
	assert.Equal(t, "vendí 2 aguas", channel.utterance)
}

func TestTwilioWebhook_ReplyTimeout(t *testing.T) {
	channel := newFakeChannel()
	h := NewTwilioHandlers(logger.NewDiscardLogger(), channel, "", 12*time.Second)

	start := time.Now()
	rec := httptest.NewRecorder()
	h.TwilioWebhook(rec, postForm("/webhook/twilio", twilioForm()))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, channel.hasDeadline)
	assert.WithinDuration(t, start.Add(12*time.Second), channel.deadline, time.Second)

	unbounded := newFakeChannel()
	NewTwilioHandlers(logger.NewDiscardLogger(), unbounded, "", 0).
		TwilioWebhook(httptest.NewRecorder(), postForm("/webhook/twilio", twilioForm()))
	assert.False(t, unbounded.hasDeadline)
}

func TestTwilioWebhook_MissingFrom(t *testing.T) {
	h := NewTwilioHandlers(logger.NewDiscardLogger(), newFakeChannel(), "", 0)
	form := twilioForm()
	form.Del("From")

	rec := httptest.NewRecorder()
	h.TwilioWebhook(rec, postForm("/webhook/twilio", form))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTwilioWebhook_Signature(t *testing.T) {
	const token = "secret"
	channel := newFakeChannel()
	h := NewTwilioHandlers(logger.NewDiscardLogger(), channel, token, 0)
	form := twilioForm()

	rec := httptest.NewRecorder()
	h.TwilioWebhook(rec, postForm("http://example.com/webhook/twilio", form))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, channel.phone)

	req := postForm("http://internal:8080/webhook/twilio", form)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "bot.example.com")
	req.Header.Set("X-Twilio-Signature", twilioSignature(token, "https://bot.example.com/webhook/twilio", form))

	rec = httptest.NewRecorder()
	h.TwilioWebhook(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+5215512345678", channel.phone)
}

// twilioSignature signs the way Twilio documents it: the full URL followed by
// each POST parameter name and value, sorted by name.
func twilioSignature(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidTwilioSignature(t *testing.T) {
	params := url.Values{
		"CallSid": {"CA1234567890ABCDE"},
		"Caller":  {"+12349013030"},
		"Digits":  {"1234"},
	}
	fullURL := "https://mycompany.com/myapp.php?foo=1&bar=2"
	signature := twilioSignature("12345", fullURL, params)

	assert.True(t, ValidTwilioSignature("12345", fullURL, params, signature))
	assert.False(t, ValidTwilioSignature("54321", fullURL, params, signature))
	assert.False(t, ValidTwilioSignature("12345", "https://mycompany.com/other.php", params, signature))
	assert.False(t, ValidTwilioSignature("12345", fullURL, params, ""))

	params.Set("Digits", "9999")
	assert.False(t, ValidTwilioSignature("12345", fullURL, params, signature))
}

func TestInfoBipWebhook(t *testing.T) {
	channel := newFakeChannel()
	h := NewInfobipHandlers(logger.NewDiscardLogger(), channel)

	rec := httptest.NewRecorder()
	h.InfoBipWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook/infobip", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := `{"results":[{"from":"5215512345678","messageId":"m1","message":{"type":"TEXT","text":"gasto"}}],"messageCount":1}`
	rec = httptest.NewRecorder()
	h.InfoBipWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook/infobip", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case got := <-channel.webhooks:
		require.Len(t, got.Results, 1)
		assert.Equal(t, "gasto", got.Results[0].Message.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not processed")
	}
}

func TestAPIProcessMessage(t *testing.T) {
	engine := &fakeEngine{}
	h := NewAPIHandlers(logger.NewDiscardLogger(), engine)

	rec := httptest.NewRecorder()
	h.ProcessMessage(rec, httptest.NewRequest(http.MethodPost, "/api/conversations/messages",
		strings.NewReader(`{"user_phone":"5215512345678","message":"venta"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ProcessMessage(rec, httptest.NewRequest(http.MethodPost, "/api/conversations/messages",
		strings.NewReader(`{"user_phone":" 5215512345678 ","store_id":"store-1","message":"venta"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ProcessMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "¿Quién fue el cliente?", resp.Reply)
	assert.Equal(t, "5215512345678", engine.phone)
	assert.Equal(t, "store-1", engine.store)
}
