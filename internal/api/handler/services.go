package handler

import (
	"context"

	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The interfaces below are the slices of the service layer each handler needs.

type AuthService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResult, error)
	Login(ctx context.Context, username, password, role string) (*service.AuthResult, error)
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	ResendVerification(ctx context.Context, userID uuid.UUID) error
	RecoverAccount(ctx context.Context, email, ipAddress, userAgent string) error
	ResetPassword(ctx context.Context, token, newPassword, retype string) error
}

type ProfileService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, req service.ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, confirm string) error
	VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error
	SetPIN(ctx context.Context, userID uuid.UUID, oldPIN, newPIN string) error
	SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) (*models.User, error)
	SetBVN(ctx context.Context, userID uuid.UUID, bvn string) (*models.User, error)
	ToggleBalanceVisibility(ctx context.Context, userID uuid.UUID) (bool, error)
}

type WalletReader interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.WalletView, error)
	GetStatement(ctx context.Context, userID uuid.UUID, page, perPage int) (*models.Page[models.Transaction], error)
	GetTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*models.Transaction, error)
}

type Withdrawer interface {
	RequestWithdrawal(ctx context.Context, req service.WithdrawalRequest) (*models.Transaction, error)
}

type Trader interface {
	SubmitTrade(ctx context.Context, req service.TradeRequest) (*models.Transaction, error)
	Quote(ctx context.Context, serviceID uuid.UUID, usd decimal.Decimal) (*service.Quote, error)
}

type BankAccounts interface {
	Resolve(ctx context.Context, accountNumber, bankCode string) (string, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]models.BankAccount, error)
	CreateAccount(ctx context.Context, userID uuid.UUID, in service.BankAccountInput) (*models.BankAccount, error)
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*models.BankAccount, error)
	UpdateAccount(ctx context.Context, userID, accountID uuid.UUID, in service.BankAccountInput) (*models.BankAccount, error)
	DeleteAccount(ctx context.Context, userID, accountID uuid.UUID) error
	ListBanks(ctx context.Context) ([]models.Bank, error)
}

type Catalog interface {
	GetBySlug(ctx context.Context, slug string) (*models.Service, error)
	ListActive(ctx context.Context) ([]models.Service, error)
	List(ctx context.Context, page, perPage int, q string) (*models.Page[models.Service], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Service, error)
	Create(ctx context.Context, actorID uuid.UUID, in service.ServiceInput) (*models.Service, error)
	Update(ctx context.Context, actorID, id uuid.UUID, in service.ServiceInput) (*models.Service, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
	ToggleStatus(ctx context.Context, actorID, id uuid.UUID) (*models.Service, error)
}

type AdminConsole interface {
	Dashboard(ctx context.Context, period string) (*models.DashboardOverview, error)
	CreditOrDebit(ctx context.Context, req service.CreditOrDebitRequest) (*models.Balance, error)
	SetBlocked(ctx context.Context, actorID, userID uuid.UUID, blocked bool, reason string) (*models.User, error)
	ListCustomers(ctx context.Context, page, perPage int, q string) (*models.Page[models.User], error)
	Customer(ctx context.Context, userID uuid.UUID) (*service.CustomerDetail, error)
	ListTransactions(ctx context.Context, f service.TransactionFilter) (*models.Page[models.Transaction], error)
	ListWithdrawals(ctx context.Context, f service.TransactionFilter) (*models.Page[models.Transaction], error)
	TransactionDetail(ctx context.Context, id uuid.UUID) (*models.TransactionDetail, error)
}

type Settler interface {
	UpdateTransactionStatus(ctx context.Context, req service.UpdateStatusRequest) (*service.SettlementResult, error)
}
