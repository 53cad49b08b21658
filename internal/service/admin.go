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
	"go.uber.org/zap"
)

// Dashboard periods.
const (
	PeriodWeekly  = "Weekly"
	PeriodMonthly = "Monthly"
	PeriodYearly  = "Yearly"
	PeriodAll     = "All"
)

// AdminService backs the operator console.
type AdminService struct {
	store  QueryStore
	audit  *AuditService
	wallet *WalletService
	banks  *BankService
	now    func() time.Time
}

func NewAdminService(store QueryStore, wallet *WalletService, banks *BankService) *AdminService {
	return &AdminService{
		store:  store,
		audit:  NewAuditService(store),
		wallet: wallet,
		banks:  banks,
		now:    time.Now,
	}
}

// Dashboard aggregates customer count and settled volumes since the start of period.
func (s *AdminService) Dashboard(ctx context.Context, period string) (*models.DashboardOverview, error) {
	period, since, err := periodStart(period, s.now())
	if err != nil {
		return nil, err
	}
	queries := s.store.Queries()

	sellIDs, withdrawalIDs, err := s.serviceIDsByKind(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := queries.CountCustomers(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}
	trades, err := queries.SumSuccessfulAmount(ctx, sellIDs, since)
	if err != nil {
		return nil, fmt.Errorf("sum trades: %w", err)
	}
	withdrawals, err := queries.SumSuccessfulAmount(ctx, withdrawalIDs, since)
	if err != nil {
		return nil, fmt.Errorf("sum withdrawals: %w", err)
	}
	pending, err := queries.CountPendingTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}

	return &models.DashboardOverview{
		Period:           period,
		Customers:        customers,
		TradeVolume:      domain.Amount(trades),
		WithdrawalVolume: domain.Amount(withdrawals),
		PendingCount:     pending,
	}, nil
}

func periodStart(period string, now time.Time) (string, time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "all":
		return PeriodAll, time.Time{}, nil
	case "weekly":
		return PeriodWeekly, now.AddDate(0, 0, -7), nil
	case "monthly":
		return PeriodMonthly, now.AddDate(0, -1, 0), nil
	case "yearly":
		return PeriodYearly, now.AddDate(-1, 0, 0), nil
	default:
		return "", time.Time{}, domain.Validation("dashboard/invalid-period", "period must be Weekly, Monthly, Yearly or All")
	}
}

func (s *AdminService) serviceIDsByKind(ctx context.Context) (sell, withdrawal []pgtype.UUID, err error) {
	rows, err := s.store.Queries().ListAllServices(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list services: %w", err)
	}
	for _, row := range rows {
		switch kind := domain.ClassifyService(row.Name); {
		case kind.IsSell():
			sell = append(sell, row.ID)
		case kind == domain.ServiceKindWithdrawal:
			withdrawal = append(withdrawal, row.ID)
		}
	}
	return sell, withdrawal, nil
}

type CreditOrDebitRequest struct {
	ActorID   uuid.UUID
	Username  string
	Type      string
	Amount    domain.Amount
	Narration string
}

// CreditOrDebit adjusts a customer's wallet directly and records who did it.
func (s *AdminService) CreditOrDebit(ctx context.Context, req CreditOrDebitRequest) (*models.Balance, error) {
	var kind string
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "credit":
		kind = domain.BalanceCredit
	case "debit":
		kind = domain.BalanceDebit
	default:
		return nil, domain.Validation("wallet/invalid-direction", "type must be Credit or Debit")
	}
	if req.Amount <= 0 {
		return nil, domain.Validation("request/invalid-amount", "amount must be greater than zero")
	}

	username := normalizeLogin(req.Username)
	user, err := s.store.Queries().GetUserByLogin(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	userID := repository.FromPgUUID(user.ID)

	var balance *models.Balance
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		b, err := applyMutation(ctx, qtx, Mutation{UserID: userID, Kind: kind, Amount: req.Amount})
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityUser, EntityID: userID, Actor: &req.ActorID, Action: "wallet_"+kind, From: b.Previous.String(), To: b.Current.String(), Meta: map[string]any{
			"amount":     req.Amount.String(),
			"narration":  strings.TrimSpace(req.Narration),
			"balance_id": b.ID.String(),
		}}); err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	zap.L().Info("wallet adjusted by admin",
		zap.String("actor_id", req.ActorID.String()),
		zap.String("user_id", userID.String()),
		zap.String("kind", kind),
		zap.String("amount", req.Amount.String()),
	)
	return balance, nil
}

// SetBlocked blocks or unblocks a customer account.
func (s *AdminService) SetBlocked(ctx context.Context, actorID, userID uuid.UUID, blocked bool, reason string) (*models.User, error) {
	var user *models.User
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		row, err := qtx.SetUserBlocked(ctx, repository.SetUserBlockedParams{
			ID:      repository.ToPgUUID(userID),
			Blocked: blocked,
			Reason:  strings.TrimSpace(reason),
		})
		if err != nil {
			if repository.IsNotFound(err) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("set user blocked: %w", err)
		}
		action, next := "unblocked", "active"
		if blocked {
			action, next = "blocked", "blocked"
		}
		if err := s.audit.Record(ctx, qtx, auditEntry{Entity: auditEntityUser, EntityID: userID, Actor: &actorID, Action: action, To: next, Meta: map[string]any{"reason": reason}}); err != nil {
			return err
		}
		user = row.Model()
		return nil
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	return user, nil
}

func (s *AdminService) ListCustomers(ctx context.Context, page, perPage int, q string) (*models.Page[models.User], error) {
	p := repository.NewPagination(page, perPage)
	pattern := repository.SearchPattern(q)
	queries := s.store.Queries()

	rows, err := queries.ListCustomers(ctx, repository.ListCustomersParams{Pattern: pattern, Limit: p.Limit(), Offset: p.Offset()})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	total, err := queries.CountCustomers(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}
	items := make([]models.User, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row.Model())
	}
	return &models.Page[models.User]{Items: items, Page: p.Page, PerPage: p.PerPage, Total: total}, nil
}

// CustomerDetail is a customer's profile with their wallet and payout accounts.
type CustomerDetail struct {
	User         *models.User         `json:"user"`
	Wallet       *models.WalletView   `json:"wallet"`
	BankAccounts []models.BankAccount `json:"bank_accounts"`
	Ledger       []models.Balance     `json:"ledger"`
}

func (s *AdminService) Customer(ctx context.Context, userID uuid.UUID) (*CustomerDetail, error) {
	row, err := s.store.Queries().GetUser(ctx, repository.ToPgUUID(userID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if row.Role != domain.RoleCustomer {
		return nil, domain.ErrUserNotFound
	}
	wallet, err := s.wallet.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.banks.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.wallet.History(ctx, userID, repository.DefaultPerPage)
	if err != nil {
		return nil, err
	}
	return &CustomerDetail{User: row.Model(), Wallet: wallet, BankAccounts: accounts, Ledger: ledger}, nil
}

// TransactionFilter narrows admin transaction listings.
type TransactionFilter struct {
	Page    int
	PerPage int
	Query   string
	Status  string
}

func (s *AdminService) ListTransactions(ctx context.Context, f TransactionFilter) (*models.Page[models.Transaction], error) {
	return s.listTransactions(ctx, f, nil)
}

// ListWithdrawals lists transactions against withdrawal services only.
func (s *AdminService) ListWithdrawals(ctx context.Context, f TransactionFilter) (*models.Page[models.Transaction], error) {
	_, withdrawalIDs, err := s.serviceIDsByKind(ctx)
	if err != nil {
		return nil, err
	}
	if len(withdrawalIDs) == 0 {
		p := repository.NewPagination(f.Page, f.PerPage)
		return &models.Page[models.Transaction]{Items: []models.Transaction{}, Page: p.Page, PerPage: p.PerPage}, nil
	}
	return s.listTransactions(ctx, f, withdrawalIDs)
}

func (s *AdminService) listTransactions(ctx context.Context, f TransactionFilter, serviceIDs []pgtype.UUID) (*models.Page[models.Transaction], error) {
	status := normalizeState(f.Status)
	if status != "" {
		if _, ok := transactionTransitions[status]; !ok {
			return nil, domain.Validation("transaction/invalid-status", "status must be pending, success or failed")
		}
	}
	p := repository.NewPagination(f.Page, f.PerPage)
	params := repository.ListTransactionsParams{
		Pattern:    repository.SearchPattern(f.Query),
		Status:     status,
		ServiceIDs: serviceIDs,
		Limit:      p.Limit(),
		Offset:     p.Offset(),
	}
	queries := s.store.Queries()
	rows, err := queries.ListTransactions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	total, err := queries.CountTransactions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	return &models.Page[models.Transaction]{
		Items:   repository.TransactionModels(rows),
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   total,
	}, nil
}

// TransactionDetail joins a transaction with its user, service and bank account.
func (s *AdminService) TransactionDetail(ctx context.Context, id uuid.UUID) (*models.TransactionDetail, error) {
	queries := s.store.Queries()
	row, err := queries.GetTransaction(ctx, repository.ToPgUUID(id))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	detail := &models.TransactionDetail{Transaction: *row.Model()}

	svc, err := queries.GetServiceIncludingDeleted(ctx, row.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	detail.ServiceName = svc.Name

	user, err := queries.GetUser(ctx, row.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	detail.User = &models.UserSummary{
		ID:        repository.FromPgUUID(user.ID),
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Email:     user.Email,
		Phone:     user.Phone,
	}

	if row.BankAccountID.Valid {
		account, err := queries.GetBankAccount(ctx, row.BankAccountID)
		if err != nil {
			return nil, fmt.Errorf("get bank account: %w", err)
		}
		detail.BankAccount = account.Model()
	}
	return detail, nil
}
