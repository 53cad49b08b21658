package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID                 pgtype.UUID
	Firstname          string
	Lastname           string
	Email              string
	Phone              string
	PasswordHash       string
	Role               string
	IsEmailVerified    bool
	EmailVerifiedAt    pgtype.Timestamptz
	IsPhoneVerified    bool
	Dob                pgtype.Date
	Gender             string
	Bvn                string
	IsBvnVerified      bool
	IsDocumentVerified bool
	TransactionPinHash string
	HasTransactionPin  bool
	TwoFactorEnabled   bool
	BalanceVisible     bool
	Blocked            bool
	BlockedAt          pgtype.Timestamptz
	BlockedReason      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Balance struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	Seq           int64
	Previous      int64
	Book          int64
	Current       int64
	Status        bool
	Kind          string
	TransactionID pgtype.UUID
	CreatedAt     time.Time
}

type Service struct {
	ID          pgtype.UUID
	Name        string
	Slug        string
	ImageUrl    string
	Url         string
	Color       string
	RateKobo    int64
	Description string
	Status      bool
	DeletedAt   pgtype.Timestamptz
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BankAccount struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	BankName      string
	BankCode      string
	AccountNumber string
	AccountName   string
	Status        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Transaction struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	ServiceID     pgtype.UUID
	Reference     string
	RequestKey    pgtype.Text
	Amount        int64
	BalanceID     pgtype.UUID
	BankAccountID pgtype.UUID
	Type          string
	Narration     string
	ImageUrl      string
	Status        string
	CompletedAt   pgtype.Timestamptz
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PasswordReset struct {
	ID        pgtype.UUID
	UserID    pgtype.UUID
	TokenHash string
	IpAddress string
	UserAgent string
	UsedAt    pgtype.Timestamptz
	ExpiresAt time.Time
	CreatedAt time.Time
}

type AuditLog struct {
	ID         int64
	EntityType string
	EntityID   pgtype.UUID
	ActorID    pgtype.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
	CreatedAt  time.Time
}

type IdempotencyKey struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
