package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"orders-api/internal/account"
	"orders-api/internal/admin"
	"orders-api/internal/auth"
	"orders-api/internal/config"
	"orders-api/internal/db"
	"orders-api/internal/observability"
	"orders-api/internal/order"
	"orders-api/internal/token"
)

type Runtime struct {
	Handler http.Handler
	Logger  *zap.Logger
	Close   func() error
}

// Build wires the whole service from configuration: store, token codec,
// lockout policy, middleware pipeline and routes. The signing key and policy
// are constructed once here and passed down explicitly; nothing reads them
// from globals.
func Build(cfg config.Config) (*Runtime, error) {
	logger := observability.NewLogger(cfg.Env)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		logger.Error("init_sentry_failed", zap.Error(err))
	}

	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	accounts := account.NewRepository(database)
	if err := accounts.EnsureAdmin(context.Background(), cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("seed admin account: %w", err)
	}

	codec := token.NewCodec(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	policy := account.Policy{Threshold: cfg.LockThreshold, LockDuration: cfg.LockDuration}

	authService := auth.NewService(accounts, codec, policy)
	authHandler := auth.NewHandler(authService)
	adminHandler := admin.NewHandler(accounts, logger)
	orderHandler := order.NewHandler(order.NewRepository(database))

	loginLimiter := auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuthenticated(h)
	}
	privileged := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAdmin(h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /auth/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("GET /health", healthHandler(database))

	mux.Handle("GET /orders", authed(orderHandler.ListOrders))
	mux.Handle("POST /orders", authed(orderHandler.CreateOrder))
	mux.Handle("GET /orders/{id}", authed(orderHandler.GetOrder))
	mux.Handle("PUT /orders/{id}", authed(orderHandler.UpdateOrder))
	mux.Handle("DELETE /orders/{id}", authed(orderHandler.DeleteOrder))

	mux.Handle("POST /admin/accounts", privileged(adminHandler.CreateAccount))
	mux.Handle("PUT /admin/accounts/{id}", privileged(adminHandler.UpdateAccount))
	mux.Handle("POST /admin/accounts/{id}/unlock", privileged(adminHandler.UnlockAccount))

	// Pipeline: recover -> request log -> authenticate -> route guards.
	handler := observability.Recover(logger,
		observability.RequestLogging(logger,
			auth.Authenticate(codec, accounts, mux)))

	return &Runtime{
		Handler: handler,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			_ = logger.Sync()
			return database.Close()
		},
	}, nil
}

func healthHandler(database *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		overall, dbStatus := "ok", "ok"
		if err := database.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			overall, dbStatus = "degraded", "unreachable"
		}
		body := map[string]any{
			"status": overall,
			"db":     dbStatus,
			"time":   time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
