package service

import (
	"context"

	"github.com/bitway/bitway-api/internal/events"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/notify"
	"github.com/bitway/bitway-api/internal/repository"
)

// QueryStore defines the minimal data access contract required by services.
type QueryStore interface {
	Queries() *repository.Queries
	RunInTx(ctx context.Context, fn func(q *repository.Queries) error) error
}

// Notifier queues an outbound message. Delivery happens outside the caller's transaction.
type Notifier interface {
	Publish(ctx context.Context, msg notify.Message) error
}

// AlertPublisher emits settlement alerts; it decides itself whether an alert crosses its threshold.
type AlertPublisher interface {
	PublishSettlement(ctx context.Context, alert events.LargeSettlementAlert) (bool, error)
}

// BankResolver looks up account names and the bank directory at the payment provider.
type BankResolver interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (string, error)
	ListBanks(ctx context.Context) ([]models.Bank, error)
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file, folder string) (string, error)
}
