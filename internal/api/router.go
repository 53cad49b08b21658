package api

import (
	"net/http"

	"github.com/bitway/bitway-api/internal/api/handler"
	"github.com/bitway/bitway-api/internal/api/middleware"
	"github.com/bitway/bitway-api/internal/api/spec"
	"github.com/bitway/bitway-api/internal/auth"
	"github.com/bitway/bitway-api/internal/config"
	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/idempotency"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/bitway/bitway-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles the service layer the HTTP surface is built on.
type Services struct {
	Users       *service.UserService
	Wallet      *service.WalletService
	Withdrawals *service.WithdrawalService
	Trades      *service.TradeService
	Banks       *service.BankService
	Catalog     *service.CatalogService
	Admin       *service.AdminService
	Settlement  *service.SettlementService
}

type Router struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *repository.Store
	redis    *redis.Client
	idem     *idempotency.Store
	tokens   *auth.TokenManager
	services Services
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	store *repository.Store,
	redisClient *redis.Client,
	idem *idempotency.Store,
	tokens *auth.TokenManager,
	services Services,
) *Router {
	return &Router{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		redis:    redisClient,
		idem:     idem,
		tokens:   tokens,
		services: services,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.CORS(api.cfg.CORSAllowedOrigins))

	// Handlers
	s := api.services
	authHandler := handler.NewAuthHandler(s.Users)
	userHandler := handler.NewUserHandler(s.Users)
	walletHandler := handler.NewWalletHandler(s.Wallet, s.Withdrawals)
	tradeHandler := handler.NewTradeHandler(s.Trades)
	bankHandler := handler.NewBankHandler(s.Banks)
	catalogHandler := handler.NewCatalogHandler(s.Catalog)
	adminHandler := handler.NewAdminHandler(s.Admin, s.Settlement)
	healthHandler := handler.NewHealthHandler(api.store, api.redis)

	authenticator := middleware.NewAuthenticator(api.tokens, s.Users)
	idempotent := middleware.IdempotencyMiddleware(api.idem, api.logger)

	// Infra
	r.Get("/health", healthHandler.Ready)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/admin/login", authHandler.AdminLogin)
		r.Post("/account/recover", authHandler.RecoverAccount)
		r.Post("/reset/password", authHandler.ResetPassword)
		r.Post("/validate/email", authHandler.VerifyEmail)

		r.Get("/services", catalogHandler.ListActive)
		r.Get("/trade/quote", tradeHandler.Quote)
	})

	// Customer routes
	r.Group(func(r chi.Router) {
		r.Use(authenticator.Authenticate)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/verifyToken", authHandler.VerifyToken)
		r.Post("/verifyToken", authHandler.VerifyToken)
		r.Post("/resend/email", authHandler.ResendVerification)

		r.Get("/user", userHandler.Profile)
		r.Post("/profile/update", userHandler.UpdateProfile)
		r.Post("/security/change-password", userHandler.ChangePassword)
		r.Post("/security/pin", userHandler.SetPIN)
		r.Post("/security/2FAuth", userHandler.SetTwoFactor)
		r.Post("/security/bvn", userHandler.SetBVN)
		r.Post("/verify/password", userHandler.VerifyPassword)
		r.Post("/toggle/balance", userHandler.ToggleBalance)

		r.Get("/balance", walletHandler.GetBalance)
		r.Get("/transactions", walletHandler.GetTransactions)
		r.Get("/transactions/{id}", walletHandler.GetTransaction)
		r.With(idempotent).Post("/withdraw", walletHandler.Withdraw)

		r.With(idempotent).Post("/trade/bitcoin", tradeHandler.SellBitcoin)
		r.With(idempotent).Post("/trade/usdt", tradeHandler.SellUSDT)

		r.Get("/service", catalogHandler.GetBySlug)

		r.Route("/bank", func(r chi.Router) {
			r.Get("/list", bankHandler.ListBanks)
			r.Get("/accounts", bankHandler.ListAccounts)
			r.Post("/accounts", bankHandler.CreateAccount)
			r.Post("/accounts/verify", bankHandler.VerifyAccount)
			r.Get("/accounts/{id}", bankHandler.GetAccount)
			r.Put("/accounts/{id}", bankHandler.UpdateAccount)
			r.Delete("/accounts/{id}", bankHandler.DeleteAccount)
		})
	})

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator.Authenticate)
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/verifyToken", authHandler.VerifyToken)
		r.Post("/verifyToken", authHandler.VerifyToken)
		r.Get("/dashboard", adminHandler.Dashboard)

		r.Get("/users", adminHandler.ListCustomers)
		r.Get("/users/{id}", adminHandler.GetCustomer)
		r.Post("/users/block", adminHandler.BlockCustomer)
		r.With(idempotent).Post("/users/creditordebit", adminHandler.CreditOrDebit)

		r.Get("/transactions", adminHandler.ListTransactions)
		r.Get("/transactions/{id}", adminHandler.GetTransaction)
		r.With(idempotent).Post("/transactions/status/update", adminHandler.UpdateTransactionStatus)

		r.Get("/withdrawals", adminHandler.ListWithdrawals)
		r.With(idempotent).Put("/withdrawals/update", adminHandler.UpdateWithdrawal)

		r.Get("/services", catalogHandler.List)
		r.Post("/services", catalogHandler.Create)
		r.Get("/services/{id}", catalogHandler.Get)
		r.Put("/services/{id}", catalogHandler.Update)
		r.Delete("/services/{id}", catalogHandler.Delete)
		r.Patch("/services/{id}/status", catalogHandler.ToggleStatus)
	})

	return r
}
