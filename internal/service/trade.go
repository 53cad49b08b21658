package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	operatorTradeSMS = "Hello Admin! A user submitted a trade. Please attend to it. Thanks"
	tradeProofFolder = "trades"
)

// TradeService records crypto sell submissions for operator review.
type TradeService struct {
	store         QueryStore
	quotes        *QuoteService
	audit         *AuditService
	uploader      Uploader
	notifier      Notifier
	operatorPhone string
	now           func() time.Time
}

func NewTradeService(store QueryStore, uploader Uploader, notifier Notifier, operatorPhone string) *TradeService {
	return &TradeService{
		store:         store,
		quotes:        NewQuoteService(store),
		audit:         NewAuditService(store),
		uploader:      uploader,
		notifier:      notifier,
		operatorPhone: operatorPhone,
		now:           time.Now,
	}
}

// TradeRequest is a sell of Asset worth USD dollars.
type TradeRequest struct {
	UserID     uuid.UUID
	ServiceID  uuid.UUID
	Asset      string
	USD        decimal.Decimal
	Image      string
	RequestKey string
}

// SubmitTrade creates a pending credit transaction priced at the service's current rate.
func (s *TradeService) SubmitTrade(ctx context.Context, req TradeRequest) (*models.Transaction, error) {
	asset := strings.ToLower(strings.TrimSpace(req.Asset))
	if asset != domain.AssetBitcoin && asset != domain.AssetUSDT {
		return nil, domain.Validation("trade/unsupported-asset", "unsupported asset")
	}

	quote, err := s.quotes.QuoteTrade(ctx, req.ServiceID, req.USD)
	if err != nil {
		return nil, err
	}
	if quote.Asset != asset {
		return nil, domain.Validation("trade/service-mismatch", fmt.Sprintf("service does not trade %s", asset))
	}
	if quote.Receive <= 0 {
		return nil, domain.Validation("request/invalid-amount", "amount is too small to trade")
	}

	queries := s.store.Queries()
	key := optionalKey(req.RequestKey)
	if existing, err := findByRequestKey(ctx, queries, req.UserID, key); err != nil || existing != nil {
		return existing, err
	}

	image := strings.TrimSpace(req.Image)
	if asset == domain.AssetUSDT && image == "" {
		return nil, domain.Validation("trade/proof-required", "proof of transfer is required for usdt trades")
	}
	var imageURL string
	if image != "" {
		if s.uploader == nil {
			return nil, domain.Upstream("upstream/upload", "image upload is not configured", nil)
		}
		imageURL, err = s.uploader.Upload(ctx, image, tradeProofFolder)
		if err != nil {
			return nil, err
		}
	}

	transactionID := uuid.New()
	var created *models.Transaction
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:         repository.ToPgUUID(transactionID),
			UserID:     repository.ToPgUUID(req.UserID),
			ServiceID:  repository.ToPgUUID(quote.ServiceID),
			Reference:  newReference("TRD", s.now()),
			RequestKey: pgtype.Text{String: key, Valid: key != ""},
			Amount:     int64(quote.Receive),
			Type:       domain.TxTypeCredit,
			Narration:  fmt.Sprintf("$%s %s sold at %s/$", req.USD.String(), asset, quote.Rate.String()),
			ImageUrl:   imageURL,
			Status:     domain.TxStatusPending,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityTransaction, EntityID: transactionID, Actor: &req.UserID, Action: "created", To: domain.TxStatusPending, Meta: map[string]any{
			"usd":    req.USD.String(),
			"rate":   quote.Rate.String(),
			"amount": quote.Receive.String(),
		}}); err != nil {
			return err
		}
		created = row.Model()
		return nil
	})
	if err != nil {
		if key != "" && repository.IsUniqueViolation(err, "transactions_request_key_idx") {
			return findByRequestKey(ctx, queries, req.UserID, key)
		}
		return nil, mapTxError(err)
	}

	zap.L().Info("trade submitted",
		zap.String("transaction_id", created.ID.String()),
		zap.String("asset", asset),
		zap.String("amount", created.Amount.String()),
	)
	notifyOperator(ctx, s.notifier, s.operatorPhone, operatorTradeSMS)
	return created, nil
}

// Quote prices a trade without recording it.
func (s *TradeService) Quote(ctx context.Context, serviceID uuid.UUID, usd decimal.Decimal) (*Quote, error) {
	return s.quotes.QuoteTrade(ctx, serviceID, usd)
}
