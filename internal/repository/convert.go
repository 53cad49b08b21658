package repository

import (
	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
)

func (u User) Model() *models.User {
	return &models.User{
		ID:                 FromPgUUID(u.ID),
		Firstname:          u.Firstname,
		Lastname:           u.Lastname,
		Email:              u.Email,
		Phone:              u.Phone,
		Role:               u.Role,
		IsEmailVerified:    u.IsEmailVerified,
		EmailVerifiedAt:    TimePtr(u.EmailVerifiedAt),
		IsPhoneVerified:    u.IsPhoneVerified,
		DOB:                DatePtr(u.Dob),
		Gender:             u.Gender,
		BVN:                u.Bvn,
		IsBVNVerified:      u.IsBvnVerified,
		IsDocumentVerified: u.IsDocumentVerified,
		HasTransactionPIN:  u.HasTransactionPin,
		TwoFactorEnabled:   u.TwoFactorEnabled,
		BalanceVisible:     u.BalanceVisible,
		Blocked:            u.Blocked,
		BlockedAt:          TimePtr(u.BlockedAt),
		BlockedReason:      u.BlockedReason,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
		PasswordHash:       u.PasswordHash,
		TransactionPINHash: u.TransactionPinHash,
	}
}

func (b Balance) Model() *models.Balance {
	return &models.Balance{
		ID:            FromPgUUID(b.ID),
		UserID:        FromPgUUID(b.UserID),
		Seq:           b.Seq,
		Previous:      domain.Amount(b.Previous),
		Book:          domain.Amount(b.Book),
		Current:       domain.Amount(b.Current),
		Active:        b.Status,
		Kind:          b.Kind,
		TransactionID: UUIDPtr(b.TransactionID),
		CreatedAt:     b.CreatedAt,
	}
}

func (s Service) Model() *models.Service {
	return &models.Service{
		ID:          FromPgUUID(s.ID),
		Name:        s.Name,
		Slug:        s.Slug,
		ImageURL:    s.ImageUrl,
		URL:         s.Url,
		Color:       s.Color,
		Rate:        domain.Amount(s.RateKobo),
		Description: s.Description,
		Active:      s.Status,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (b BankAccount) Model() *models.BankAccount {
	return &models.BankAccount{
		ID:            FromPgUUID(b.ID),
		UserID:        FromPgUUID(b.UserID),
		BankName:      b.BankName,
		BankCode:      b.BankCode,
		AccountNumber: b.AccountNumber,
		AccountName:   b.AccountName,
		Active:        b.Status,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func (t Transaction) Model() *models.Transaction {
	return &models.Transaction{
		ID:            FromPgUUID(t.ID),
		UserID:        FromPgUUID(t.UserID),
		ServiceID:     FromPgUUID(t.ServiceID),
		Reference:     t.Reference,
		RequestKey:    t.RequestKey.String,
		Amount:        domain.Amount(t.Amount),
		BalanceID:     UUIDPtr(t.BalanceID),
		BankAccountID: UUIDPtr(t.BankAccountID),
		Type:          t.Type,
		Narration:     t.Narration,
		ImageURL:      t.ImageUrl,
		Status:        t.Status,
		CompletedAt:   TimePtr(t.CompletedAt),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// TransactionModels converts a slice of rows.
func TransactionModels(rows []Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.Model())
	}
	return out
}
