package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/bitway/bitway-api/internal/auth"
	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/models"
	"github.com/bitway/bitway-api/internal/notify"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// UserConfig carries token lifetimes and email settings.
type UserConfig struct {
	AccessTokenTTL   time.Duration
	EmailTokenTTL    time.Duration
	ResetTokenTTL    time.Duration
	AppBaseURL       string
	VerifyTemplateID string
	ResetTemplateID  string
}

// UserService owns registration, login and account security settings.
type UserService struct {
	store    QueryStore
	tokens   *auth.TokenManager
	notifier Notifier
	audit    *AuditService
	cfg      UserConfig
}

func NewUserService(store QueryStore, tokens *auth.TokenManager, notifier Notifier, cfg UserConfig) *UserService {
	return &UserService{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		audit:    NewAuditService(store),
		cfg:      cfg,
	}
}

type RegisterRequest struct {
	Firstname string
	Lastname  string
	Email     string
	Phone     string
	Password  string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register creates a customer together with their opening balance row.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Firstname = strings.TrimSpace(req.Firstname)
	req.Lastname = strings.TrimSpace(req.Lastname)
	req.Email = normalizeEmail(req.Email)
	req.Phone = normalizePhone(req.Phone)

	if req.Firstname == "" || req.Lastname == "" {
		return nil, domain.Validation("user/name-required", "firstname and lastname are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, domain.Validation("user/invalid-email", "a valid email is required")
	}
	if len(strings.TrimPrefix(req.Phone, "+")) < 10 {
		return nil, domain.Validation("user/invalid-phone", "a valid phone number is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.Validation("user/weak-password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := auth.HashSecret(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.New()
	var user *models.User
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.CreateUser(ctx, repository.CreateUserParams{
			ID:           repository.ToPgUUID(userID),
			Firstname:    req.Firstname,
			Lastname:     req.Lastname,
			Email:        req.Email,
			Phone:        req.Phone,
			PasswordHash: hash,
			Role:         domain.RoleCustomer,
		})
		if err != nil {
			if repository.IsUniqueViolation(err, "") {
				return domain.Conflict("user/exists", "an account with this email or phone already exists")
			}
			return fmt.Errorf("create user: %w", err)
		}

		if _, err := qtx.InsertBalance(ctx, repository.InsertBalanceParams{
			ID:     repository.ToPgUUID(uuid.New()),
			UserID: row.ID,
			Seq:    0,
			Kind:   domain.BalanceOpening,
		}); err != nil {
			return fmt.Errorf("open balance: %w", err)
		}

		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityUser, EntityID: userID, Actor: &userID, Action: "registered", To: "active"}); err != nil {
			return err
		}
		user = row.Model()
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	s.sendVerificationEmail(ctx, user)
	return s.issueAccess(user)
}

// AdminSeed describes the operator account created at startup when none exists.
type AdminSeed struct {
	Email    string
	Phone    string
	Password string
}

// EnsureAdmin creates the seed admin unless an account with that email already exists.
// It reports whether a row was inserted. An existing customer with the same email is an error.
func (s *UserService) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	email := normalizeEmail(seed.Email)
	phone := normalizePhone(seed.Phone)
	if _, err := mail.ParseAddress(email); err != nil {
		return false, domain.Validation("user/invalid-email", "a valid admin email is required")
	}
	if len(seed.Password) < minPasswordLength {
		return false, domain.Validation("user/weak-password", fmt.Sprintf("admin password must be at least %d characters", minPasswordLength))
	}

	existing, err := s.store.Queries().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			return false, domain.Conflict("user/exists", "seed admin email belongs to a customer")
		}
		return false, nil
	case !repository.IsNotFound(err):
		return false, fmt.Errorf("get user by email: %w", err)
	}

	hash, err := auth.HashSecret(seed.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	userID := uuid.New()
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if _, err := qtx.CreateUser(ctx, repository.CreateUserParams{
			ID:           repository.ToPgUUID(userID),
			Firstname:    "BitWay",
			Lastname:     "Admin",
			Email:        email,
			Phone:        phone,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
		}); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		if _, err := qtx.MarkEmailVerified(ctx, repository.ToPgUUID(userID)); err != nil {
			return fmt.Errorf("verify admin email: %w", err)
		}
		if _, err := qtx.InsertBalance(ctx, repository.InsertBalanceParams{
			ID:     repository.ToPgUUID(uuid.New()),
			UserID: repository.ToPgUUID(userID),
			Seq:    0,
			Kind:   domain.BalanceOpening,
		}); err != nil {
			return fmt.Errorf("open balance: %w", err)
		}
		return s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityUser, EntityID: userID, Action: "admin_seeded", To: "active"})
	})
	if err != nil {
		if repository.IsUniqueViolation(err, "") {
			// Another instance may have won the race; anything else is a clash with a customer.
			if row, getErr := s.store.Queries().GetUserByEmail(ctx, email); getErr == nil && row.Role == domain.RoleAdmin {
				return false, nil
			}
			return false, domain.Conflict("user/exists", "seed admin email or phone is already in use")
		}
		return false, mapTxError(err)
	}
	return true, nil
}

// Login authenticates by exact email or phone. role must match the account's role.
func (s *UserService) Login(ctx context.Context, username, password, role string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.Validation("auth/credentials-required", "username and password are required")
	}
	username = normalizeLogin(username)
	if username == "" {
		return nil, domain.ErrInvalidCredentials
	}

	row, err := s.store.Queries().GetUserByLogin(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	ok, err := auth.CheckSecret(row.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok || row.Role != role {
		return nil, domain.ErrInvalidCredentials
	}
	if row.Blocked {
		return nil, domain.ErrAccountBlocked
	}
	return s.issueAccess(row.Model())
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	row, err := s.store.Queries().GetUser(ctx, repository.ToPgUUID(userID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.Model(), nil
}

// VerifyEmail marks the token's user as verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token, domain.PurposeEmailVerify)
	if err != nil {
		return nil, domain.ErrInvalidToken.WithCause(err)
	}
	row, err := s.store.Queries().MarkEmailVerified(ctx, repository.ToPgUUID(claims.UserUUID()))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("mark email verified: %w", err)
	}
	return row.Model(), nil
}

// ResendVerification queues a fresh verification email unless the email is already verified.
func (s *UserService) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return nil
	}
	s.sendVerificationEmail(ctx, user)
	return nil
}

// RecoverAccount issues a password reset for email if it belongs to a user. It never
// reveals whether the email exists.
func (s *UserService) RecoverAccount(ctx context.Context, email, ipAddress, userAgent string) error {
	row, err := s.store.Queries().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !repository.IsNotFound(err) {
			zap.L().Error("account recovery lookup failed", zap.Error(err))
		}
		return nil
	}
	user := row.Model()

	issued, err := s.tokens.Issue(user.ID, user.Role, domain.PurposePasswordReset, s.cfg.ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if _, err := s.store.Queries().CreatePasswordReset(ctx, repository.CreatePasswordResetParams{
		ID:        repository.ToPgUUID(uuid.New()),
		UserID:    row.ID,
		TokenHash: hashToken(issued.Token),
		IpAddress: ipAddress,
		UserAgent: truncate(userAgent, 255),
		ExpiresAt: issued.ExpiresAt,
	}); err != nil {
		return fmt.Errorf("store password reset: %w", err)
	}

	s.send(ctx, notify.TemplateEmail(user.Email, user.FullName(), "Reset your BitWay password", s.cfg.ResetTemplateID, map[string]string{
		"firstname": user.Firstname,
		"link":      s.link("/reset-password", issued.Token),
	}))
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword, retype string) error {
	if err := validateNewPassword(newPassword, retype); err != nil {
		return err
	}
	claims, err := s.tokens.Parse(token, domain.PurposePasswordReset)
	if err != nil {
		return domain.ErrInvalidToken.WithCause(err)
	}
	hash, err := auth.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := claims.UserUUID()
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		reset, err := qtx.ConsumePasswordReset(ctx, hashToken(token))
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrInvalidToken
			}
			return fmt.Errorf("consume password reset: %w", err)
		}
		if repository.FromPgUUID(reset.UserID) != userID {
			return domain.ErrInvalidToken
		}
		rows, err := qtx.UpdateUserPassword(ctx, reset.UserID, hash)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := requireExactlyOne(rows, "update password"); err != nil {
			return err
		}
		return s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityUser, EntityID: userID, Actor: &userID, Action: "password_reset"})
	})
	return mapTxError(err)
}

type ProfileUpdate struct {
	Firstname string
	Lastname  string
	DOB       string
	Gender    string
}

// UpdateProfile edits name, date of birth (YYYY-MM-DD) and gender.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req ProfileUpdate) (*models.User, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	firstname := firstNonEmpty(strings.TrimSpace(req.Firstname), current.Firstname)
	lastname := firstNonEmpty(strings.TrimSpace(req.Lastname), current.Lastname)
	gender := strings.ToLower(firstNonEmpty(strings.TrimSpace(req.Gender), current.Gender))

	dob := current.DOB
	if strings.TrimSpace(req.DOB) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(req.DOB))
		if err != nil {
			return nil, domain.Validation("user/invalid-dob", "dob must be in YYYY-MM-DD format")
		}
		if parsed.After(time.Now()) {
			return nil, domain.Validation("user/invalid-dob", "dob cannot be in the future")
		}
		dob = &parsed
	}

	row, err := s.store.Queries().UpdateUserProfile(ctx, repository.UpdateUserProfileParams{
		ID:        repository.ToPgUUID(userID),
		Firstname: firstname,
		Lastname:  lastname,
		Dob:       repository.ToPgDate(dob),
		Gender:    gender,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return row.Model(), nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword, confirm string) error {
	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	if err := s.VerifyPassword(ctx, userID, oldPassword); err != nil {
		return err
	}
	hash, err := auth.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	rows, err := s.store.Queries().UpdateUserPassword(ctx, repository.ToPgUUID(userID), hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireExactlyOne(rows, "update password")
}

// VerifyPassword checks password against the stored hash without changing anything.
func (s *UserService) VerifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := auth.CheckSecret(user.PasswordHash, password)
	if err != nil {
		return fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCredentials.WithMessage("incorrect password")
	}
	return nil
}

// SetPIN sets the 4-digit transaction PIN. Changing an existing PIN requires the old one.
func (s *UserService) SetPIN(ctx context.Context, userID uuid.UUID, oldPIN, newPIN string) error {
	if !isDigits(newPIN, 4) {
		return domain.Validation("auth/invalid-pin-format", "pin must be exactly 4 digits")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasTransactionPIN {
		ok, err := auth.CheckSecret(user.TransactionPINHash, oldPIN)
		if err != nil {
			return fmt.Errorf("check pin: %w", err)
		}
		if !ok {
			return domain.ErrInvalidPIN
		}
	}
	hash, err := auth.HashSecret(newPIN)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	rows, err := s.store.Queries().UpdateUserPIN(ctx, repository.ToPgUUID(userID), hash)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	return requireExactlyOne(rows, "update pin")
}

func (s *UserService) SetTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) (*models.User, error) {
	row, err := s.store.Queries().SetTwoFactor(ctx, repository.ToPgUUID(userID), enabled)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("set two factor: %w", err)
	}
	return row.Model(), nil
}

// SetBVN stores an 11-digit bank verification number.
func (s *UserService) SetBVN(ctx context.Context, userID uuid.UUID, bvn string) (*models.User, error) {
	bvn = strings.TrimSpace(bvn)
	if !isDigits(bvn, 11) {
		return nil, domain.Validation("user/invalid-bvn", "bvn must be exactly 11 digits")
	}
	row, err := s.store.Queries().SetBVN(ctx, repository.ToPgUUID(userID), bvn)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("set bvn: %w", err)
	}
	return row.Model(), nil
}

// ToggleBalanceVisibility flips whether the wallet balance is shown and returns the new value.
func (s *UserService) ToggleBalanceVisibility(ctx context.Context, userID uuid.UUID) (bool, error) {
	visible, err := s.store.Queries().ToggleBalanceVisibility(ctx, repository.ToPgUUID(userID))
	if err != nil {
		if repository.IsNotFound(err) {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("toggle balance visibility: %w", err)
	}
	return visible, nil
}

func (s *UserService) issueAccess(user *models.User) (*AuthResult, error) {
	issued, err := s.tokens.Issue(user.ID, user.Role, domain.PurposeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &AuthResult{User: user, Token: issued.Token, ExpiresAt: issued.ExpiresAt}, nil
}

func (s *UserService) sendVerificationEmail(ctx context.Context, user *models.User) {
	issued, err := s.tokens.Issue(user.ID, user.Role, domain.PurposeEmailVerify, s.cfg.EmailTokenTTL)
	if err != nil {
		zap.L().Error("failed to issue verification token", zap.String("user_id", user.ID.String()), zap.Error(err))
		return
	}
	s.send(ctx, notify.TemplateEmail(user.Email, user.FullName(), "Verify your BitWay email", s.cfg.VerifyTemplateID, map[string]string{
		"firstname": user.Firstname,
		"link":      s.link("/verify-email", issued.Token),
	}))
}

func (s *UserService) send(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, msg); err != nil {
		zap.L().Warn("failed to queue email", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (s *UserService) link(path, token string) string {
	return s.cfg.AppBaseURL + path + "?token=" + url.QueryEscape(token)
}

func validateNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return domain.Validation("user/weak-password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if password != confirm {
		return domain.Validation("user/password-mismatch", "passwords do not match")
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
