package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/georgemunganga/furnish-backend/internal/modules/auth"
	"github.com/georgemunganga/furnish-backend/internal/modules/billing"
	"github.com/georgemunganga/furnish-backend/internal/modules/catalog"
	"github.com/georgemunganga/furnish-backend/internal/modules/checkout"
	"github.com/georgemunganga/furnish-backend/internal/modules/dedupe"
	"github.com/georgemunganga/furnish-backend/internal/modules/inventory"
	"github.com/georgemunganga/furnish-backend/internal/modules/notification"
	"github.com/georgemunganga/furnish-backend/internal/modules/order"
	"github.com/georgemunganga/furnish-backend/internal/modules/payment"
	"github.com/georgemunganga/furnish-backend/internal/modules/pricing"
	"github.com/georgemunganga/furnish-backend/internal/modules/user"
	"github.com/georgemunganga/furnish-backend/internal/platform/broker"
	"github.com/georgemunganga/furnish-backend/internal/platform/config"
	"github.com/georgemunganga/furnish-backend/internal/platform/database"
	"github.com/georgemunganga/furnish-backend/internal/platform/logging"
	"github.com/georgemunganga/furnish-backend/internal/platform/metrics"
	"github.com/georgemunganga/furnish-backend/internal/storage/memory"
)

// repositories groups the storage backends selected by STORAGE.
type repositories struct {
	products  catalog.Repository
	stock     inventory.Repository
	orders    order.Repository
	invoices  billing.Repository
	payments  payment.Repository
	users     user.Repository
	closeFunc func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.MustNewLogger("furnish-backend", cfg.Env)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.Fatal("storage_unavailable", zap.String("storage", cfg.Storage), zap.Error(err))
	}
	defer repos.closeFunc()
	logger.Info("storage_ready", zap.String("storage", cfg.Storage))

	// ── Platform ────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var publisher order.Publisher = broker.Nop{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := broker.NewRabbitMQ(cfg.RabbitMQURL, cfg.OrderExchange)
		if err != nil {
			logger.Fatal("broker_unavailable", zap.Error(err))
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	var keys dedupe.KeyStore
	if cfg.RedisURL != "" {
		redisKeys, err := dedupe.NewRedisKeyStore(ctx, cfg.RedisURL, dedupe.DefaultKeyTTL)
		if err != nil {
			logger.Fatal("redis_unavailable", zap.Error(err))
		}
		defer redisKeys.Close()
		keys = redisKeys
	}

	// ── Identity ────────────────────────────────────────────
	userService := user.NewService(repos.users)
	if created, err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("bootstrap_admin_failed", zap.Error(err))
	} else if created {
		logger.Info("bootstrap_admin_created", zap.String("email", logging.MaskEmail(cfg.AdminEmail)))
	}
	authService := auth.NewService(repos.users, cfg.JWTSecret, 0)

	// ── Catalog, stock & orders ─────────────────────────────
	catalogService := catalog.NewService(repos.products)
	inventoryService := inventory.NewService(repos.stock, logger)
	orderService := order.NewService(repos.orders, publisher, logger)

	artifacts, err := billing.NewFileStore(cfg.InvoiceDir)
	if err != nil {
		logger.Fatal("invoice_dir_unavailable", zap.String("dir", cfg.InvoiceDir), zap.Error(err))
	}
	billingService := billing.NewService(repos.invoices, repos.orders, artifacts,
		billing.Config{Prefix: cfg.InvoicePrefix, TaxRateBps: cfg.TaxRateBps}, m, logger)

	paymentService := payment.NewService(repos.payments, orderService,
		payment.GatewayRegistry{payment.ProviderCard: payment.NewSandboxGateway(cfg.PaymentBaseURL)}, logger)

	// ── Notifications ───────────────────────────────────────
	var mailer notification.Mailer
	if smtpMailer := notification.NewSMTPMailer(cfg.SMTP, logger); smtpMailer != nil {
		mailer = smtpMailer
	}
	var whatsapp notification.WhatsAppSender
	if waClient := notification.NewWhatsAppClient(cfg.WhatsApp, &http.Client{Timeout: 15 * time.Second}); waClient != nil {
		whatsapp = waClient
	}
	fanOut := notification.NewFanOut(mailer, whatsapp, notification.Config{
		AdminEmail:    cfg.AdminNotifyEmail,
		AdminWhatsApp: cfg.AdminWhatsApp,
	}, m, logger)

	// ── Checkout ────────────────────────────────────────────
	orchestrator := checkout.NewOrchestrator(checkout.Deps{
		Pricing:   pricing.NewAuthority(repos.products, cfg.Currency),
		Guard:     dedupe.NewGuard(repos.orders, cfg.DuplicateWindow),
		Orders:    repos.orders,
		Keys:      keys,
		Payments:  paymentService,
		Notifier:  fanOut,
		Publisher: publisher,
		Metrics:   m,
		Log:       logger,
	})

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	catalogHandler := catalog.NewHandler(catalogService)
	paymentHandler := payment.NewHandler(paymentService, cfg.PaymentWebhookSecret)

	auth.NewHandler(authService).RegisterRoutes(router)
	catalogHandler.RegisterRoutes(router)
	checkout.NewHandler(orchestrator).RegisterRoutes(router)
	paymentHandler.RegisterRoutes(router)

	router.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin(authService))
		catalogHandler.RegisterAdminRoutes(r)
		inventory.NewHandler(inventoryService).RegisterAdminRoutes(r)
		order.NewHandler(orderService).RegisterAdminRoutes(r)
		billing.NewHandler(billingService).RegisterAdminRoutes(r)
		paymentHandler.RegisterAdminRoutes(r)
		user.NewHandler(userService).RegisterAdminRoutes(r)
	})

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server_starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server_failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", zap.Error(err))
	}
	orchestrator.Wait()
	logger.Info("server_stopped")
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Storage == "memory" {
		store := memory.New()
		return &repositories{
			products:  store.Products(),
			stock:     store.Stock(),
			orders:    store.Orders(),
			invoices:  store.Invoices(),
			payments:  store.Payments(),
			users:     store.Users(),
			closeFunc: func() error { return nil },
		}, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return postgresRepositories(db), nil
}

func postgresRepositories(db *sql.DB) *repositories {
	return &repositories{
		products:  catalog.NewPostgresRepository(db),
		stock:     inventory.NewPostgresRepository(db),
		orders:    order.NewPostgresRepository(db),
		invoices:  billing.NewPostgresRepository(db),
		payments:  payment.NewPostgresRepository(db),
		users:     user.NewPostgresRepository(db),
		closeFunc: db.Close,
	}
}
