package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"barrio-connector/internal/domain/dto"
	"barrio-connector/internal/infra/logger"

	"github.com/sirupsen/logrus"
)

var _ IWhatsAppProvider = (*InfobipWhatsAppProvider)(nil)

// tokenRefreshMargin renews the OAuth2 token before Infobip expires it.
const tokenRefreshMargin = 30 * time.Second

type InfobipWhatsAppProvider struct {
	Logger       *logger.Logger
	HttpClient   *http.Client
	BaseURL      string
	ClientID     string
	ClientSecret string
	From         string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewInfobipWhatsAppProvider(logger *logger.Logger, httpClient *http.Client, baseURL, clientID, clientSecret, from string) *InfobipWhatsAppProvider {
	return &InfobipWhatsAppProvider{
		Logger:       logger,
		HttpClient:   httpClient,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		From:         from,
		now:          time.Now,
	}
}

// SendTextMessage sends a text message to a recipient's phone number using the Infobip API.
//
// Parameters:
//   - to: string - The recipient's phone number in international format (including the country code).
//   - message: string - The content of the text message to be sent.
//
// Returns:
//   - error: Returns an error if any step of the process fails, including input validation,
//     token generation, HTTP request failure, or unexpected API response.
func (th *InfobipWhatsAppProvider) SendTextMessage(ctx context.Context, to, message string) error {
	if to == "" || message == "" {
		return fmt.Errorf("recipient (to) and message cannot be empty")
	}
	if th.BaseURL == "" || th.From == "" {
		th.Logger.Error("INFOBIP_URL or WHATSAPP_PHONE_NUMBER is not set")
		return fmt.Errorf("infobip sender is not configured")
	}

	accessToken, err := th.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(dto.InfobipTextMessage{
		From:    th.From,
		To:      to,
		Content: dto.InfobipTextContent{Text: message},
	})
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to marshal payload %v", err))
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/whatsapp/1/message/text", th.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to create HTTP request %v", err))
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := th.HttpClient.Do(req)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("HTTP request failed %v", err))
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		th.Logger.Error(fmt.Sprintf("Unexpected HTTP status %s response_body %s", res.Status, string(body)))
		if res.StatusCode == http.StatusUnauthorized {
			th.invalidateToken()
		}
		return fmt.Errorf("unexpected HTTP status: %s", res.Status)
	}

	th.Logger.Info(fmt.Sprintf("Message sent successfully %s", res.Status), logrus.Fields{"to": to})
	return nil
}

func (th *InfobipWhatsAppProvider) accessToken(ctx context.Context) (string, error) {
	th.mu.Lock()
	defer th.mu.Unlock()

	if th.token != "" && th.now().Before(th.tokenExpiry) {
		return th.token, nil
	}

	tokenResponse, err := th.GenerateOAuth2Token(ctx)
	if err != nil {
		return "", err
	}

	th.token = tokenResponse.AccessToken
	th.tokenExpiry = th.now().Add(time.Duration(tokenResponse.ExpiresIn)*time.Second - tokenRefreshMargin)
	return th.token, nil
}

func (th *InfobipWhatsAppProvider) invalidateToken() {
	th.mu.Lock()
	defer th.mu.Unlock()
	th.token = ""
}

func (th *InfobipWhatsAppProvider) GenerateOAuth2Token(ctx context.Context) (*dto.TokenResponse, error) {
	if th.ClientID == "" || th.ClientSecret == "" {
		return nil, fmt.Errorf("INFOBIP_CLIENT_ID and INFOBIP_CLIENT_SECRET must be set")
	}
	apiURL := fmt.Sprintf("%s/auth/1/oauth2/token", th.BaseURL)

	data := url.Values{}
	data.Set("client_id", th.ClientID)
	data.Set("client_secret", th.ClientSecret)
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBufferString(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("Accept", "application/json")

	resp, err := th.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected HTTP status: %d, response: %s", resp.StatusCode, string(body))
	}

	var tokenResponse dto.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("error decoding response JSON: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &tokenResponse, nil
}
