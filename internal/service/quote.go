package service

import (
	"context"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is the naira payout for selling a USD amount of crypto at a service's rate.
type Quote struct {
	ServiceID uuid.UUID       `json:"service_id"`
	Asset     string          `json:"asset"`
	USD       decimal.Decimal `json:"usd"`
	Rate      domain.Amount   `json:"rate"`
	Receive   domain.Amount   `json:"amount_to_receive"`
}

// QuoteService prices trades from the catalog rate.
type QuoteService struct {
	store QueryStore
}

func NewQuoteService(store QueryStore) *QuoteService {
	return &QuoteService{store: store}
}

// QuoteTrade returns floor(usd * rate) in kobo for an active sell service.
func (s *QuoteService) QuoteTrade(ctx context.Context, serviceID uuid.UUID, usd decimal.Decimal) (*Quote, error) {
	if !usd.IsPositive() {
		return nil, domain.Validation("request/invalid-amount", "amount must be greater than zero")
	}
	svc, err := loadActiveService(ctx, s.store.Queries(), serviceID)
	if err != nil {
		return nil, err
	}
	kind := svc.Kind()
	if !kind.IsSell() {
		return nil, domain.Validation("service/not-tradable", "service does not accept trades")
	}
	if svc.Rate <= 0 {
		return nil, domain.Validation("service/no-rate", "service has no rate configured")
	}
	receive, err := domain.QuoteTrade(usd, svc.Rate)
	if err != nil {
		return nil, domain.Validation("request/invalid-amount", "amount is too large")
	}
	return &Quote{
		ServiceID: svc.ID,
		Asset:     kind.Asset(),
		USD:       usd,
		Rate:      svc.Rate,
		Receive:   receive,
	}, nil
}
