package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/sheetload/internal/async"
	"github.com/joseph-ayodele/sheetload/internal/cache"
	"github.com/joseph-ayodele/sheetload/internal/common"
	"github.com/joseph-ayodele/sheetload/internal/contacts"
	repo "github.com/joseph-ayodele/sheetload/internal/repository"
	svc "github.com/joseph-ayodele/sheetload/internal/server"
	"github.com/joseph-ayodele/sheetload/internal/upload"
)

func main() {
	cfg := common.LoadConfig()

	logger, closeLog := common.SetupLogger(cfg.Logging.File, cfg.Logging.Level)
	defer closeLog()
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if cfg.Database.DSN == "" {
		logger.Error("missing DB_URL environment variable")
		os.Exit(1)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)

	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	rc := cache.NewRedis(cfg.Redis, logger)
	defer rc.Close()
	if err := rc.Ping(ctx, cfg.Redis.DialTimeout); err != nil {
		logger.Error("failed to ping redis", "error", err, "addr", cfg.Redis.Addr)
		os.Exit(1)
	}

	profiles, err := common.LoadJobProfiles(cfg.Jobs.ProfilesPath)
	if err != nil {
		logger.Error("failed to load job profiles", "error", err, "path", cfg.Jobs.ProfilesPath)
		os.Exit(1)
	}

	pool := async.NewPool(logger,
		async.WithCoreWorkers(cfg.Pool.CoreWorkers),
		async.WithMaxWorkers(cfg.Pool.MaxWorkers),
		async.WithQueueSize(cfg.Pool.QueueSize),
		async.WithKeepAlive(cfg.Pool.KeepAlive),
	)

	contactsRepo := repo.NewContactRepository(db, logger)
	contactsSvc, err := contacts.NewService(contactsRepo, profiles[contacts.JobName], rc, pool, logger)
	if err != nil {
		logger.Error("failed to build contacts job", "error", err)
		os.Exit(1)
	}
	registry := upload.NewRegistry(contactsSvc)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(svc.RequestLogger(logger)),
		grpc.MaxRecvMsgSize(svc.MaxMessageSize),
		grpc.MaxSendMsgSize(svc.MaxMessageSize),
	)

	uploadService := svc.NewUploadService(registry, upload.NewTracker(rc, logger), logger)
	svc.RegisterUploadsServer(grpcServer, uploadService)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	logger.Info("sheetloadd listening", "addr", addr, "jobs", registry.Names())
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	logger.Info("sheetloadd stopped")
}
