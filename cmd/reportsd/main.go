package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/hotel-reports/internal/api"
	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/export"
	"github.com/joseph-ayodele/hotel-reports/internal/llm/provider"
	"github.com/joseph-ayodele/hotel-reports/internal/pipeline"
	"github.com/joseph-ayodele/hotel-reports/internal/server"
	"github.com/joseph-ayodele/hotel-reports/internal/session"
)

// Version info (set during build)
var Version = "dev"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, err := provider.New(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to create extraction client", "error", err)
		os.Exit(1)
	}
	logger.Info("extraction client initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	processor := pipeline.NewProcessor(logger, extractor, cfg.Batch.MaxFileBytes())
	batch := pipeline.NewBatch(logger, processor, cfg.Batch.MaxConcurrency)
	sessions := session.NewManager(batch, logger)

	go runJanitor(ctx, sessions, cfg.Session, logger)

	// HTTP API
	handler := api.NewHandler(sessions, export.NewService(logger), logger, Version)
	e := api.NewServer(handler, logger, cfg.Server.BodyLimit)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	// gRPC
	grpcServer, hs := server.NewGRPCServer(server.NewExtractionServer(batch, logger), logger)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		go func() {
			logger.Info("grpc serving", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc serve failed", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down...")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
}

// runJanitor evicts idle sessions until ctx is done.
func runJanitor(ctx context.Context, sessions *session.Manager, cfg common.SessionConfig, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.CleanupIdle(cfg.MaxAge); n > 0 {
				logger.Debug("session.janitor.swept", "removed", n, "remaining", sessions.Len())
			}
		}
	}
}
