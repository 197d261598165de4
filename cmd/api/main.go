// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diplomate/backend/internal/account"
	"github.com/diplomate/backend/internal/admin"
	"github.com/diplomate/backend/internal/auth"
	"github.com/diplomate/backend/internal/config"
	"github.com/diplomate/backend/internal/content"
	"github.com/diplomate/backend/internal/core"
	"github.com/diplomate/backend/internal/health"
	"github.com/diplomate/backend/internal/identity"
	"github.com/diplomate/backend/internal/mail"
	"github.com/diplomate/backend/internal/middleware"
	"github.com/diplomate/backend/internal/otp"
	"github.com/diplomate/backend/internal/purchase"
	"github.com/diplomate/backend/internal/server"
	"github.com/diplomate/backend/internal/storage"
)

const (
	drainDelay          = 5 * time.Second
	sessionSweepEvery   = time.Hour
	otpPurgeEvery       = 10 * time.Minute
	backgroundJobBudget = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	uploader, err := storage.NewOSSUploader(cfg.Storage)
	if err != nil {
		return err
	}

	mailer := mail.NewSMTPSender(cfg.SMTP)

	identityRepo := identity.NewRepository(db.DB)
	identityProvider := identity.NewLocalProvider(identityRepo, logger)

	accountRepo := account.NewRepository(db.DB)
	accountSvc := account.NewService(accountRepo)
	accountHandler := account.NewHandler(accountSvc)

	otpRepo := otp.NewRepository(db.DB)
	otpThrottle := otp.NewRedisThrottle(redis.Client, cfg.OTP)
	otpSvc := otp.NewService(otpRepo, mailer, otpThrottle, cfg.OTP.TTL, logger)
	otpHandler := otp.NewHandler(otpSvc)

	sessionRepo := auth.NewRepository(db.DB)
	blacklist := auth.NewRedisBlacklist(redis.Client)
	authSvc := auth.NewService(
		sessionRepo,
		jwtManager,
		accountSvc,
		identityProvider,
		otpSvc,
		blacklist,
		logger,
	)
	authHandler := auth.NewHandler(authSvc)

	purchaseRepo := purchase.NewRepository(db.DB)
	purchaseSvc := purchase.NewService(purchaseRepo, uploader, cfg.Purchase, logger)
	purchaseHandler := purchase.NewHandler(purchaseSvc)

	contentRepo := content.NewRepository(db.DB)
	contentSvc := content.NewService(
		contentRepo,
		purchaseSvc,
		uploader,
		cfg.Purchase.BundlePrice,
		logger,
	)
	contentHandler := content.NewHandler(contentSvc)

	healthHandler := health.NewHandler(
		health.Check{Name: "database", Ping: db.Ping},
		health.Check{Name: "redis", Ping: redis.Ping},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Accounts:   accountSvc,
		Purchases:  purchaseSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	// The service verifier layers the revocation blacklist over plain
	// signature checks; device-conflict revocations bite immediately.
	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		otpHandler.RegisterRoutes(r)
		authHandler.RegisterRoutes(r, authenticator)

		accountHandler.RegisterRoutes(r, authenticator)
		accountHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		contentHandler.RegisterRoutes(r, authenticator)
		contentHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		purchaseHandler.RegisterRoutes(r, authenticator)
		purchaseHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	go sweepExpired(ctx, logger, otpSvc, sessionRepo)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// sweepExpired clears dead OTP challenges and sessions on a timer so
// the tables do not accumulate rows that only ever lose comparisons.
func sweepExpired(
	ctx context.Context,
	logger *slog.Logger,
	otpSvc *otp.Service,
	sessions auth.Repository,
) {
	otpTicker := time.NewTicker(otpPurgeEvery)
	defer otpTicker.Stop()

	sessionTicker := time.NewTicker(sessionSweepEvery)
	defer sessionTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-otpTicker.C:
			jobCtx, cancel := context.WithTimeout(ctx, backgroundJobBudget)
			otpSvc.PurgeExpired(jobCtx)
			cancel()
		case <-sessionTicker.C:
			jobCtx, cancel := context.WithTimeout(ctx, backgroundJobBudget)
			removed, err := sessions.DeleteExpired(jobCtx)
			cancel()
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("expired sessions removed", "count", removed)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
