package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bitway/bitway-api/internal/api"
	"github.com/bitway/bitway-api/internal/auth"
	"github.com/bitway/bitway-api/internal/config"
	"github.com/bitway/bitway-api/internal/db"
	"github.com/bitway/bitway-api/internal/events"
	"github.com/bitway/bitway-api/internal/gateway"
	"github.com/bitway/bitway-api/internal/idempotency"
	"github.com/bitway/bitway-api/internal/notify"
	"github.com/bitway/bitway-api/internal/observability"
	"github.com/bitway/bitway-api/internal/repository"
	"github.com/bitway/bitway-api/internal/service"
	"github.com/bitway/bitway-api/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run bootstraps the HTTP server, notification worker and scheduler, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn("REDIS_URL not set; idempotency and bank list caching disabled")
	}

	store := repository.NewStore(pool)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)

	// Notifications
	dispatcher := notify.NewDispatcher(smsSender(cfg, logger), emailSender(cfg, logger))
	var publisher notify.Publisher
	stopNotifications := func() {}
	if cfg.Rabbit.URL != "" {
		rabbit, err := notify.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			return fmt.Errorf("connect notification publisher: %w", err)
		}
		publisher = rabbit

		consumer, err := notify.NewRabbitConsumer(cfg.Rabbit.URL, cfg.Rabbit.Exchange, cfg.Rabbit.Queue, cfg.Rabbit.Prefetch)
		if err != nil {
			rabbit.Close()
			return fmt.Errorf("connect notification consumer: %w", err)
		}
		defer consumer.Close()
		stopNotifications = worker.NewNotificationWorker(consumer, dispatcher).Run(ctx)
		logger.Info("notification worker started", zap.String("queue", cfg.Rabbit.Queue))
	} else {
		logger.Warn("AMQP_URL not set; notifications are dispatched in-process")
		publisher = notify.NewInlinePublisher(dispatcher)
	}
	defer publisher.Close()

	alerts := events.NewAlertProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic, cfg.Kafka.LargeSettlementThreshold)
	defer alerts.Close()

	// Services
	paystack := gateway.NewPaystackClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)
	uploader := gateway.NewUploadClient(cfg.Upload.BaseURL, cfg.Upload.CloudName, cfg.Upload.Preset)
	wallet := service.NewWalletService(store)
	banks := service.NewBankService(store, paystack, redisClient, cfg.Paystack.BankListCacheTTL)
	services := api.Services{
		Users: service.NewUserService(store, tokens, publisher, service.UserConfig{
			AccessTokenTTL:   cfg.AccessTokenTTL,
			EmailTokenTTL:    cfg.EmailTokenTTL,
			ResetTokenTTL:    cfg.ResetTokenTTL,
			AppBaseURL:       cfg.AppBaseURL,
			VerifyTemplateID: cfg.Email.VerifyTemplateID,
			ResetTemplateID:  cfg.Email.ResetTemplateID,
		}),
		Wallet:      wallet,
		Withdrawals: service.NewWithdrawalService(store, publisher, cfg.SMS.OperatorPhone),
		Trades:      service.NewTradeService(store, uploader, publisher, cfg.SMS.OperatorPhone),
		Banks:       banks,
		Catalog:     service.NewCatalogService(store),
		Admin:       service.NewAdminService(store, wallet, banks),
		Settlement:  service.NewSettlementService(store, publisher, alerts),
	}
	if cfg.Admin.Enabled() {
		created, err := services.Users.EnsureAdmin(ctx, service.AdminSeed{
			Email:    cfg.Admin.Email,
			Phone:    cfg.Admin.Phone,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			logger.Info("seed admin created", zap.String("email", cfg.Admin.Email))
		}
	}
	idemStore := idempotency.NewStore(redisClient, pool, cfg.IdempotencyTTL)

	// Scheduled jobs
	scheduler := worker.NewScheduler(worker.NewJobs(service.NewReconciliationService(store), idemStore), logger)
	if err := scheduler.Schedule(cfg.ReconciliationSchedule, cfg.IdempotencyPurgeSchedule); err != nil {
		return err
	}
	stopScheduler := scheduler.Run()

	router := api.NewRouter(cfg, logger, store, redisClient, idemStore, tokens, services)
	return serve(ctx, logger, &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}, stopScheduler, stopNotifications)
}

// serve runs srv until SIGINT/SIGTERM or a listener failure. HTTP is drained before the
// background workers stop.
func serve(ctx context.Context, logger *zap.Logger, srv *http.Server, stopWorkers ...func()) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("bitway api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-listenErr:
		if ok {
			runErr = fmt.Errorf("http listener: %w", err)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Error("http drain incomplete", zap.Error(err))
	}
	for _, stopWorker := range stopWorkers {
		stopWorker()
	}
	logger.Info("stopped")
	return runErr
}

func smsSender(cfg *config.Config, logger *zap.Logger) notify.SMSSender {
	if !cfg.SMS.Enabled() {
		logger.Warn("SMS provider not configured; messages will be logged")
		return gateway.NewLogSMS(logger)
	}
	return gateway.NewSMSClient(cfg.SMS.BaseURL, cfg.SMS.Username, cfg.SMS.Password, cfg.SMS.Sender)
}

func emailSender(cfg *config.Config, logger *zap.Logger) notify.EmailSender {
	if !cfg.Email.Enabled() {
		logger.Warn("email provider not configured; messages will be logged")
		return gateway.NewLogEmail(logger)
	}
	return gateway.NewEmailClient(cfg.Email.BaseURL, cfg.Email.ClientID, cfg.Email.ClientSecret, cfg.Email.FromName, cfg.Email.FromAddress)
}

// newLogger builds the JSON production logger at the configured level, tagging every
// entry with the service name.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build(zap.Fields(zap.String("service", "bitway-api")))
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.ClientName = "bitway-api"
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("reach redis at %s: %w", opt.Addr, err)
	}
	return client, nil
}
