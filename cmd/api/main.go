package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkamau/tokenvault/internal/config"
	"github.com/mkamau/tokenvault/internal/handler"
	"github.com/mkamau/tokenvault/internal/logging"
	"github.com/mkamau/tokenvault/internal/middleware"
	"github.com/mkamau/tokenvault/internal/rates"
	"github.com/mkamau/tokenvault/internal/repository"
	"github.com/mkamau/tokenvault/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("tokenvault-api", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := repository.NewDB(pool)
	accountRepo := repository.NewAccountRepository(pool)
	withdrawalRepo := repository.NewWithdrawalRepository(pool)
	recordRepo := repository.NewRecordRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)

	rateClient := rates.NewClient(cfg.RateSourceURL, cfg.RateAssetID, time.Duration(cfg.RateTimeoutSeconds)*time.Second)
	rateCache := rates.NewCache(rateClient, time.Duration(cfg.RateTTLSeconds)*time.Second)

	accountSvc := service.NewAccountService(accountRepo)
	ledgerSvc := service.NewLedgerService(accountRepo, recordRepo, db)
	withdrawalSvc := service.NewWithdrawalService(
		accountRepo, withdrawalRepo, recordRepo, settingsRepo,
		rateCache, db, cfg.WithdrawFailOpenNoRate,
	)

	jwtExpiry := time.Duration(cfg.JWTExpiryH) * time.Hour
	authHandler := handler.NewAuthHandler(accountSvc, cfg.JWTSecret, jwtExpiry)
	accountHandler := handler.NewAccountHandler(accountSvc, ledgerSvc)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalSvc)
	adminHandler := handler.NewAdminHandler(withdrawalSvc, ledgerSvc, accountSvc)
	rateHandler := handler.NewRateHandler(rateCache)
	healthHandler := handler.NewHealthHandler(pool)

	authn := middleware.Auth(cfg.JWTSecret)
	idempotent := middleware.Idempotency(idempotencyRepo)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/rate", http.HandlerFunc(rateHandler.Current))

	mux.Handle("GET /api/v1/accounts/me", authn(http.HandlerFunc(accountHandler.Me)))
	mux.Handle("POST /api/v1/accounts/me/deposits", authn(idempotent(http.HandlerFunc(accountHandler.Deposit))))
	mux.Handle("GET /api/v1/accounts/me/transactions", authn(http.HandlerFunc(accountHandler.Transactions)))
	mux.Handle("POST /api/v1/withdrawals", authn(idempotent(http.HandlerFunc(withdrawalHandler.Create))))
	mux.Handle("GET /api/v1/withdrawals", authn(http.HandlerFunc(withdrawalHandler.List)))

	admin := func(h http.HandlerFunc) http.Handler {
		return authn(middleware.AdminOnly(h))
	}
	mux.Handle("GET /api/v1/admin/withdrawals/pending", admin(adminHandler.ListPendingWithdrawals))
	mux.Handle("POST /api/v1/admin/withdrawals/{id}/approve", admin(adminHandler.ApproveWithdrawal))
	mux.Handle("POST /api/v1/admin/withdrawals/{id}/reject", admin(adminHandler.RejectWithdrawal))
	mux.Handle("POST /api/v1/admin/accounts/{id}/adjust", admin(adminHandler.AdjustBalance))
	mux.Handle("POST /api/v1/admin/accounts/{id}/freeze", admin(adminHandler.FreezeAccount))
	mux.Handle("POST /api/v1/admin/accounts/{id}/unfreeze", admin(adminHandler.UnfreezeAccount))
	mux.Handle("POST /api/v1/admin/transfers", admin(adminHandler.Transfer))
	mux.Handle("GET /api/v1/admin/settings/min-withdrawal", admin(adminHandler.GetMinWithdrawal))
	mux.Handle("PUT /api/v1/admin/settings/min-withdrawal", admin(adminHandler.SetMinWithdrawal))

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go cleanIdempotencyCache(cleanupCtx, idempotencyRepo)

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func cleanIdempotencyCache(ctx context.Context, repo *repository.IdempotencyRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpired(ctx)
			if err != nil {
				slog.Error("idempotency cache cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("idempotency cache cleaned", "removed", n)
			}
		}
	}
}
