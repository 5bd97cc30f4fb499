package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/academichub/backend-go/internal/api"
	"github.com/academichub/backend-go/internal/config"
	"github.com/academichub/backend-go/internal/database"
	"github.com/academichub/backend-go/internal/database/repository"
	"github.com/academichub/backend-go/internal/database/service"
	internalgrpc "github.com/academichub/backend-go/internal/grpc"
	"github.com/academichub/backend-go/internal/handler"
	"github.com/academichub/backend-go/internal/logger"
	"github.com/academichub/backend-go/internal/mailer"
	"github.com/academichub/backend-go/internal/metrics"
	"github.com/academichub/backend-go/internal/middleware"
	"github.com/academichub/backend-go/internal/scheduler"
	"github.com/academichub/backend-go/internal/security"
	"github.com/academichub/backend-go/internal/worker"
)

const (
	shutdownTimeout     = 15 * time.Second
	healthProbeInterval = 10 * time.Second
)

func main() {
	// 0. Optional .env for local runs
	_ = godotenv.Load()

	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	if err := cfg.Validate(); err != nil {
		appLogger.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.WeakSecret() {
		appLogger.Warn("⚠️ JWT_SECRET is shorter than recommended for HS512",
			"length", len(cfg.JWTSecret),
			"recommended", config.MinSecretLength,
		)
	}

	appLogger.Info("🚀 [Go] Starting Academic Hub auth service...",
		"environment", cfg.AppEnv,
		"http_port", cfg.ApiServicePort,
		"grpc_port", cfg.ApiGrpcPort,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to Database
	db, err := database.ConnectDatabase(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.Error("❌ Failed to access database pool", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// 4. Initialize Redis revocation cache (optional)
	var revocationCache database.RevocationCache
	redisClient, err := database.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis", "error", err)
		appLogger.Info("💡 Revocation checks will only use Postgres (no Redis caching)")
	} else {
		revocationCache = redisClient
		defer redisClient.Close()
	}

	// 5. Initialize mail dispatch
	var sender mailer.Sender
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSender := mailer.NewKafkaSender(cfg, appLogger)
		defer kafkaSender.Close()
		sender = kafkaSender
	} else {
		appLogger.Warn("⚠️ KAFKA_BROKERS not set, reset links will only be logged")
		sender = mailer.NewLogSender(cfg.FrontendURL, appLogger)
	}

	// 6. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry)

	// 7. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	revokedTokenRepo := repository.NewRevokedTokenRepository(db)
	resetTokenRepo := repository.NewPasswordResetTokenRepository(db)

	// 8. Initialize Services
	codec := security.NewTokenCodec(cfg)
	hasher := security.NewBcryptHasher(int(cfg.BcryptCost))

	refreshTokenService := service.NewRefreshTokenService(refreshTokenRepo, cfg, appLogger)
	revocationService := service.NewRevocationService(revokedTokenRepo, revocationCache, codec, appMetrics, appLogger)
	passwordResetService := service.NewPasswordResetService(resetTokenRepo, hasher, cfg, appLogger)
	authService := service.NewAuthService(service.AuthDeps{
		Users:          userRepo,
		Departments:    departmentRepo,
		Professors:     professorRepo,
		RefreshTokens:  refreshTokenService,
		Revocations:    revocationService,
		PasswordResets: passwordResetService,
		Codec:          codec,
		Hasher:         hasher,
		Mailer:         sender,
		Metrics:        appMetrics,
	}, cfg, appLogger)

	// 9. Background cleanup
	pool := worker.NewPool(appLogger)
	cleanup, err := scheduler.New(cfg.CleanupSchedule, pool, appMetrics, appLogger,
		scheduler.CleanupJobs(passwordResetService, revocationService, refreshTokenService)...,
	)
	if err != nil {
		appLogger.Error("❌ Failed to schedule token cleanup", "error", err)
		os.Exit(1)
	}
	cleanup.Start()

	// 10. Initialize Handlers, Middleware & Router
	authHandler := handler.NewAuthHandler(authService, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)
	r := api.SetupRouter(authHandler, authMiddleware, appMetrics)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 11. gRPC health server
	probes := []internalgrpc.Probe{{Name: "postgres", Check: sqlDB.PingContext}}
	if redisClient != nil {
		probes = append(probes, internalgrpc.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.GetClient().Ping(ctx).Err()
		}})
	}
	healthServer := internalgrpc.NewHealthServer(appLogger, probes...)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.ApiGrpcPort))
	if err != nil {
		appLogger.Error("❌ Failed to listen for gRPC", "error", err)
		os.Exit(1)
	}

	// 12. Run servers until a signal arrives
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("🌍 [Go] HTTP Server running on port...", "port", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("🔌 [Go] gRPC Server running...", "port", cfg.ApiGrpcPort)
		if err := healthServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		healthServer.Watch(gctx, healthProbeInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("🛑 [Go] Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		<-cleanup.Stop().Done()
		healthServer.Stop()
		err := httpServer.Shutdown(shutdownCtx)
		pool.Shutdown(shutdownTimeout)
		return err
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("❌ Server exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("👋 [Go] Shutdown complete")
}
