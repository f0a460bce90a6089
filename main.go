package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopfabric/dispatch/internal/dispatch"
	"github.com/shopfabric/dispatch/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dispatch",
	Short:   "Shopfabric Dispatch - multi-carrier shipment dispatch service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dispatch server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	metrics := initMetrics()

	// Carrier registry with all enabled providers
	registry := initRegistry(cfg, logger)

	// Persistence, cache and event emission
	st, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	emitter := initEmitter(cfg, logger)

	manager := dispatch.NewManager(dispatch.Deps{
		Registry:     registry,
		Orders:       st,
		Integrations: st,
		Logs:         st,
		Emitter:      emitter,
		Logger:       logger,
		Metrics:      metrics,
		BaseDelay:    cfg.RetryBaseDelay,
	})

	if cache, err := initCache(ctx, cfg, logger); err != nil {
		logger.Warn("Pickup point cache disabled", zap.Error(err))
	} else if cache != nil {
		manager.WithPickupCache(cache)
	}

	autoSender := dispatch.NewAutoSender(dispatch.AutoSenderConfig{
		Workers:   cfg.AutoSendWorkers,
		QueueSize: cfg.AutoSendQueue,
	}, manager, logger, metrics)
	autoSender.Start(ctx)
	defer autoSender.Stop()

	logger.Info("Starting Shopfabric Dispatch",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("carriers", registry.Names()),
	)

	srv := server.New(server.Config{Port: cfg.Port}, manager, autoSender, registry, logger, metrics)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
