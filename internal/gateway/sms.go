package gateway

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
)

// SMSClient posts text messages to a bulk SMS provider using basic auth.
type SMSClient struct {
	baseURL    string
	authHeader string
	sender     string
	httpClient *http.Client
}

func NewSMSClient(baseURL, username, password, sender string) *SMSClient {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &SMSClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + creds,
		sender:     sender,
		httpClient: newHTTPClient(),
	}
}

type smsRequest struct {
	Sender     string   `json:"sender"`
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

// Send delivers message to a single recipient.
func (c *SMSClient) Send(ctx context.Context, to, message string) error {
	body := smsRequest{Sender: c.sender, Recipients: []string{to}, Message: message}
	headers := map[string]string{"Authorization": c.authHeader}
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/sms/send", headers, body, nil); err != nil {
		return domain.Upstream("upstream/sms", "sms delivery failed", err)
	}
	return nil
}
