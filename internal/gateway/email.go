package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/notify"
)

// EmailClient sends templated emails through a provider that issues
// short-lived OAuth tokens from client credentials.
type EmailClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	fromName     string
	fromEmail    string
	httpClient   *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewEmailClient(baseURL, clientID, clientSecret, fromName, fromEmail string) *EmailClient {
	return &EmailClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		fromName:     fromName,
		fromEmail:    fromEmail,
		httpClient:   newHTTPClient(),
		now:          time.Now,
	}
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type emailParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type emailTemplate struct {
	ID        string            `json:"id"`
	Variables map[string]string `json:"variables,omitempty"`
}

type emailPayload struct {
	Subject  string         `json:"subject"`
	Text     string         `json:"text,omitempty"`
	Template *emailTemplate `json:"template,omitempty"`
	From     emailParty     `json:"from"`
	To       []emailParty   `json:"to"`
}

type sendEmailRequest struct {
	Email emailPayload `json:"email"`
}

// SendTemplate delivers email, rendering its template on the provider side when TemplateID is set.
func (c *EmailClient) SendTemplate(ctx context.Context, email notify.Email) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	payload := emailPayload{
		Subject: email.Subject,
		Text:    email.Body,
		From:    emailParty{Name: c.fromName, Email: c.fromEmail},
		To:      []emailParty{{Name: email.Name, Email: email.To}},
	}
	if email.TemplateID != "" {
		payload.Template = &emailTemplate{ID: email.TemplateID, Variables: email.Variables}
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/smtp/emails", headers, sendEmailRequest{Email: payload}, nil); err != nil {
		if isStatus(err, http.StatusUnauthorized) {
			c.invalidate()
		}
		return domain.Upstream("upstream/email", "email delivery failed", err)
	}
	return nil
}

func (c *EmailClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	req := tokenRequest{GrantType: "client_credentials", ClientID: c.clientID, ClientSecret: c.clientSecret}
	var resp tokenResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/oauth/access_token", nil, req, &resp); err != nil {
		return "", domain.Upstream("upstream/email", "email provider authentication failed", err)
	}
	if resp.AccessToken == "" {
		return "", domain.Upstream("upstream/email", "email provider returned no token", nil)
	}

	ttl := time.Duration(resp.ExpiresIn) * time.Second
	if ttl > time.Minute {
		ttl -= time.Minute
	}
	c.token = resp.AccessToken
	c.expiresAt = c.now().Add(ttl)
	return c.token, nil
}

func (c *EmailClient) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
