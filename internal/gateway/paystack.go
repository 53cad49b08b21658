package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
)

// PaystackClient resolves bank accounts and lists banks. The secret key travels only in the Authorization header.
type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewPaystackClient(baseURL, secretKey string) *PaystackClient {
	return &PaystackClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: newHTTPClient(),
	}
}

type paystackEnvelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type resolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ResolveAccount returns the registered name of accountNumber at bankCode.
func (c *PaystackClient) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (string, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)
	endpoint := fmt.Sprintf("%s/bank/resolve?%s", c.baseURL, q.Encode())

	var resp paystackEnvelope[resolvedAccount]
	if err := doJSON(ctx, c.httpClient, http.MethodGet, endpoint, c.headers(), nil, &resp); err != nil {
		if isStatus(err, http.StatusUnprocessableEntity) || isStatus(err, http.StatusBadRequest) {
			return "", domain.Validation("bank-account/unresolvable", "could not resolve account number for the selected bank")
		}
		return "", domain.Upstream("upstream/paystack", "bank verification is unavailable", err)
	}
	if !resp.Status || resp.Data.AccountName == "" {
		return "", domain.Validation("bank-account/unresolvable", "could not resolve account number for the selected bank")
	}
	return resp.Data.AccountName, nil
}

type paystackBank struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Slug   string `json:"slug"`
	Active bool   `json:"active"`
}

// ListBanks returns active Nigerian banks.
func (c *PaystackClient) ListBanks(ctx context.Context) ([]models.Bank, error) {
	endpoint := fmt.Sprintf("%s/bank?country=nigeria&perPage=100", c.baseURL)
	var resp paystackEnvelope[[]paystackBank]
	if err := doJSON(ctx, c.httpClient, http.MethodGet, endpoint, c.headers(), nil, &resp); err != nil {
		return nil, domain.Upstream("upstream/paystack", "bank list is unavailable", err)
	}
	banks := make([]models.Bank, 0, len(resp.Data))
	for _, b := range resp.Data {
		if !b.Active {
			continue
		}
		banks = append(banks, models.Bank{Name: b.Name, Code: b.Code, Slug: b.Slug})
	}
	return banks, nil
}

func (c *PaystackClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.secretKey}
}
