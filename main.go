package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	_ "github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse/bigquery"
	_ "github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse/mssql"
	_ "github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse/postgres"
	"github.com/ekaya-inc/biometric-advisor/pkg/audit"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
	"github.com/ekaya-inc/biometric-advisor/pkg/handlers"
	"github.com/ekaya-inc/biometric-advisor/pkg/llm"
	"github.com/ekaya-inc/biometric-advisor/pkg/logging"
	"github.com/ekaya-inc/biometric-advisor/pkg/middleware"
	"github.com/ekaya-inc/biometric-advisor/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("warehouse", cfg.Warehouse.Type),
		zap.String("sleep_table", cfg.Warehouse.SleepTable),
		zap.String("activity_table", cfg.Warehouse.ActivityTable),
		zap.String("advice_table", cfg.Warehouse.AdviceTable),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Int("row_limit", cfg.Pipeline.RowLimit))

	wh, err := warehouse.Open(ctx, &cfg.Warehouse, logger)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer func() {
		if err := wh.Close(); err != nil {
			logger.Warn("Failed to close warehouse", zap.Error(err))
		}
	}()

	llmClient, err := llm.NewClientFromConfig(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	adviceService := services.NewAdviceService(
		services.NewBiometricsFetcher(wh, cfg.Pipeline, logger),
		services.NewAdviceGenerator(llmClient, cfg.LLM.Temperature, logger),
		services.NewAdvicePersister(wh, logger),
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAdviceHandler(adviceService, audit.NewSecurityAuditor(logger), logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// Generation can take minutes; leave room for the LLM request timeout.
		WriteTimeout: cfg.LLM.RequestTimeout + time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting biometric-advisor",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}
