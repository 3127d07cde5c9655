package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoangtle/renthub-settlement/internal/application/services"
	"github.com/hoangtle/renthub-settlement/internal/config"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/gateway"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/gateway/bankredirect"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/gateway/checkoutlink"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/gateway/qrpay"
	"github.com/hoangtle/renthub-settlement/internal/infrastructure/persistence/postgres"
	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest/handlers"
	"github.com/hoangtle/renthub-settlement/internal/interfaces/rest/middleware"
	"github.com/hoangtle/renthub-settlement/internal/notify"
	"github.com/hoangtle/renthub-settlement/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting settlement service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	invoiceRepo := postgres.NewInvoiceRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	registry := gateway.NewRegistry(
		bankredirect.New(cfg.BankRedirect, logger),
		checkoutlink.New(cfg.CheckoutLink, logger),
		qrpay.New(cfg.QRPay, logger),
	)

	notifier := notify.FromConfig(cfg.Notify.BaseURL, cfg.Notify.Timeout, logger)

	reconciler := services.NewReconciler(db, invoiceRepo, paymentRepo, notifier, logger)
	checkoutService := services.NewCheckoutService(db, invoiceRepo, paymentRepo, registry, logger)
	statusService := services.NewStatusService(paymentRepo, registry, reconciler, logger)
	offlineService := services.NewOfflineSettlementService(db, invoiceRepo, paymentRepo, notifier, logger)
	overdueService := services.NewOverdueService(invoiceRepo, logger)

	h := handlers.NewHandlers(
		checkoutService,
		statusService,
		offlineService,
		overdueService,
		reconciler,
		registry,
		cfg.Client.ResultURL,
		logger,
	)

	mux := http.NewServeMux()
	h.Routes(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	overdueWorker := worker.NewOverdueWorker(overdueService, cfg.Sweeper.Interval, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go overdueWorker.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
