package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tally-backend/config"
	"tally-backend/internal/api"
	"tally-backend/internal/auth"
	"tally-backend/internal/db"
	"tally-backend/internal/metrics"
	"tally-backend/internal/seed"
	"tally-backend/internal/store"
)

const (
	Version = "0.1.0"
	appName = "tallyd"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Constituency vote tally server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "Config file path (YAML)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	})

	var seedSource string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load districts, wards, centers and candidates from a YAML file or URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), configPath, seedSource)
		},
	}
	seedCmd.Flags().StringVarP(&seedSource, "file", "f", "", "Seed document path or http(s) URL (defaults to seed.file)")
	cmd.AddCommand(seedCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == gin.DebugMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// setup loads the configuration and opens the store.
func setup(configPath string) (*config.Config, *zap.Logger, store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	logger, err := newLogger(cfg.Server.Mode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	return cfg, logger, store.NewGormStore(gormDB), nil
}

func serve(configPath string) error {
	cfg, logger, appStore, err := setup(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	authManager, err := auth.NewManager(appStore, &cfg.Admin)
	if err != nil {
		return fmt.Errorf("failed to configure admin auth: %w", err)
	}

	handler := api.NewHandler(appStore, authManager, metrics.New(reg), logger)
	router := api.NewRouter(handler, cfg, reg)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	case <-stop:
	}
	logger.Info("shutdown signal received, stopping server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Info("server gracefully stopped")
	return nil
}

func runSeed(ctx context.Context, configPath, source string) error {
	cfg, logger, appStore, err := setup(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if source == "" {
		source = cfg.Seed.File
	}

	report, err := seed.NewService(cfg.Seed, appStore, logger).Run(ctx, source)
	if err != nil {
		return fmt.Errorf("seed %s: %w", source, err)
	}
	fmt.Printf("seeded %d districts, %d wards, %d centers, %d candidates (%d skipped)\n",
		report.Districts, report.Wards, report.Centers, report.Candidates, report.Skipped)
	return nil
}
