package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/novahq/nova/internal/gateway"
	"github.com/novahq/nova/internal/nova"
	"github.com/novahq/nova/internal/stats"
	"github.com/novahq/nova/pkg/config"
	"github.com/novahq/nova/pkg/database"
)

var (
	devMode     bool
	verbose     bool
	autoMigrate bool
	noDatabase  bool
)

// ServeCmd rappresenta il comando serve
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Nova gateway server",
	Long: `Start the Nova gateway server.

This command starts the HTTP server that answers questions through
the configured provider chain and orchestrates agent tasks.`,
	Example: `  # Start server with default settings
  nova serve

  # Start in development mode with verbose logging
  nova serve --dev --verbose

  # Start without the statistics database
  nova serve --no-db

  # Start with custom config
  nova serve -c /path/to/config.yaml`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (pretty logging)")
	ServeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (debug level)")
	ServeCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Auto-run database migrations on startup")
	ServeCmd.Flags().BoolVar(&noDatabase, "no-db", false, "Run without the statistics database")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Setup logger
	setupLogger(cfg, verbose, devMode)

	log.Info().Msg("Starting Nova Gateway")
	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Int("providers", len(cfg.Providers.Chain)).
		Bool("dev_mode", devMode).
		Msg("Configuration loaded")

	// Initialize database
	var db *database.DB
	if !noDatabase {
		db, err = database.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		log.Info().
			Str("type", cfg.Database.Type).
			Str("connection", cfg.Database.Connection).
			Msg("Database connected")

		if autoMigrate {
			if err := db.AutoMigrate(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}
	}

	// Initialize metrics exporter
	var exporter *stats.Exporter
	if cfg.Monitoring.Prometheus.Enabled {
		exporter = stats.NewExporter(nil, "nova")
	}

	// Create the service
	svc, err := nova.New(cfg, db, exporter)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	// Create gateway instance
	gw, err := gateway.New(cfg, svc, db)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	// Start gateway in background
	go func() {
		if err := gw.Start(); err != nil {
			log.Fatal().Err(err).Msg("Gateway failed to start")
		}
	}()

	log.Info().Msgf("Gateway running on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().Msgf("Health check: http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)
	if cfg.Monitoring.Prometheus.Enabled {
		log.Info().Msgf("Metrics: http://%s:%d/metrics", cfg.Server.Host, cfg.Server.Port)
	}
	log.Info().Msg("Press Ctrl+C to stop")

	// Setup graceful shutdown
	return waitForShutdown(gw)
}

func waitForShutdown(gw *gateway.Gateway) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := gw.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	log.Info().Msg("Nova Gateway stopped cleanly")
	return nil
}

func setupLogger(cfg *config.Config, verbose, dev bool) {
	switch {
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		level, err := zerolog.ParseLevel(cfg.Monitoring.Logging.Level)
		if err != nil || level == zerolog.NoLevel {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	}

	// Pretty console output in development
	if dev || cfg.Monitoring.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}
}
