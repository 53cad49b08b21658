package models

import (
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/google/uuid"
)

type User struct {
	ID                 uuid.UUID  `json:"id"`
	Firstname          string     `json:"firstname"`
	Lastname           string     `json:"lastname"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	Role               string     `json:"role"`
	IsEmailVerified    bool       `json:"is_email_verified"`
	EmailVerifiedAt    *time.Time `json:"email_verified_at,omitempty"`
	IsPhoneVerified    bool       `json:"is_phone_verified"`
	DOB                *time.Time `json:"dob,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	BVN                string     `json:"-"`
	IsBVNVerified      bool       `json:"is_bvn_verified"`
	IsDocumentVerified bool       `json:"is_document_verified"`
	HasTransactionPIN  bool       `json:"has_transaction_pin"`
	TwoFactorEnabled   bool       `json:"two_factor_enabled"`
	BalanceVisible     bool       `json:"balance_visible"`
	Blocked            bool       `json:"blocked"`
	BlockedAt          *time.Time `json:"blocked_at,omitempty"`
	BlockedReason      string     `json:"blocked_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	PasswordHash       string `json:"-"`
	TransactionPINHash string `json:"-"`
}

// FullName returns "Firstname Lastname".
func (u *User) FullName() string {
	return u.Firstname + " " + u.Lastname
}

// Balance is one append-only ledger row. Book holds funds reserved by pending withdrawals.
type Balance struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	Seq           int64         `json:"seq"`
	Previous      domain.Amount `json:"previous"`
	Book          domain.Amount `json:"book"`
	Current       domain.Amount `json:"current"`
	Active        bool          `json:"status"`
	Kind          string        `json:"kind"`
	TransactionID *uuid.UUID    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Available is the spendable part of the balance.
func (b *Balance) Available() domain.Amount {
	return b.Current - b.Book
}

// WalletView is the customer-facing projection of the active balance row.
type WalletView struct {
	Current   domain.Amount `json:"current"`
	Held      domain.Amount `json:"held"`
	Available domain.Amount `json:"available"`
	Visible   bool          `json:"visible"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Service struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	ImageURL    string        `json:"image_url,omitempty"`
	URL         string        `json:"url,omitempty"`
	Color       string        `json:"color,omitempty"`
	Rate        domain.Amount `json:"rate"`
	Description string        `json:"description,omitempty"`
	Active      bool          `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Kind classifies the service for settlement.
func (s *Service) Kind() domain.ServiceKind {
	return domain.ClassifyService(s.Name)
}

type BankAccount struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	BankName      string    `json:"bank_name"`
	BankCode      string    `json:"bank_code"`
	AccountNumber string    `json:"account_number"`
	AccountName   string    `json:"account_name"`
	Active        bool      `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Transaction struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	ServiceID     uuid.UUID     `json:"service_id"`
	Reference     string        `json:"reference"`
	RequestKey    string        `json:"-"`
	Amount        domain.Amount `json:"amount"`
	BalanceID     *uuid.UUID    `json:"balance_id,omitempty"`
	BankAccountID *uuid.UUID    `json:"bank_account_id,omitempty"`
	Type          string        `json:"type"`
	Narration     string        `json:"narration"`
	ImageURL      string        `json:"image_url,omitempty"`
	Status        string        `json:"status"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TransactionDetail joins a transaction with the records it references.
type TransactionDetail struct {
	Transaction
	ServiceName string       `json:"service_name"`
	User        *UserSummary `json:"user,omitempty"`
	BankAccount *BankAccount `json:"bank_account,omitempty"`
}

type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
}

// Bank is an entry in the payment provider's bank directory.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Slug string `json:"slug,omitempty"`
}

// Page describes one slice of a listing.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

// DashboardOverview aggregates admin console figures for a period.
type DashboardOverview struct {
	Period           string        `json:"period"`
	Customers        int64         `json:"customers"`
	TradeVolume      domain.Amount `json:"trade_volume"`
	WithdrawalVolume domain.Amount `json:"withdrawal_volume"`
	PendingCount     int64         `json:"pending_count"`
}
