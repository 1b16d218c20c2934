package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/novahq/nova/pkg/config"
	"github.com/novahq/nova/pkg/database"
)

// ConfigCmd rappresenta il comando config
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage Nova configuration files.

This command allows you to view, validate, and generate configuration
files for the Nova gateway.`,
	Example: `  # Show current configuration
  nova config show

  # Validate configuration file
  nova config validate -c config.yaml

  # Generate template configuration
  nova config generate -o config.yaml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the currently loaded configuration with all values.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file for syntax and semantic errors.`,
	RunE:  runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate template configuration",
	Long:  `Generate a template configuration file with all available options.`,
	Example: `  # Generate to stdout
  nova config generate

  # Generate to file
  nova config generate -o config.yaml`,
	RunE: runConfigGenerate,
}

var configOutput string

func init() {
	configGenerateCmd.Flags().StringVarP(&configOutput, "output", "o", "", "Output file path (stdout if not specified)")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configGenerateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("# Current Configuration")
	fmt.Println("# =====================")
	fmt.Println()
	fmt.Print(string(data))

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	fmt.Printf("Validating configuration: %s\n\n", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println("✗ Failed to load configuration")
		return err
	}

	fmt.Println("✓ Configuration loaded successfully")

	if err := cfg.Validate(); err != nil {
		fmt.Println("✗ Configuration validation failed")
		return err
	}

	fmt.Println("✓ Configuration is valid")
	fmt.Println()
	fmt.Println("Configuration summary:")
	fmt.Printf("  Server:       %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Database:     %s (%s)\n", cfg.Database.Type, cfg.Database.Connection)
	fmt.Printf("  Providers:    %d in chain\n", len(cfg.Providers.Chain))
	fmt.Printf("  Cache:        %v\n", cfg.Cache.Enabled)
	fmt.Printf("  Orchestrator: %d max concurrent tasks\n", cfg.Orchestrator.MaxConcurrent)
	fmt.Printf("  Auth:         %v\n", cfg.Auth.Enabled)
	fmt.Printf("  Prometheus:   %v\n", cfg.Monitoring.Prometheus.Enabled)

	return nil
}

func runConfigGenerate(cmd *cobra.Command, args []string) error {
	cfg := generateTemplateConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	output := `# Nova Configuration File
# =======================
#
# This is a template configuration for the Nova gateway.
# Adjust the values according to your environment.
# Provider API keys can also come from environment variables
# with the NOVA_ prefix.

`
	output += string(data)

	if configOutput != "" {
		if err := os.WriteFile(configOutput, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Printf("✓ Configuration template generated: %s\n", configOutput)
	} else {
		fmt.Print(output)
	}

	return nil
}

func generateTemplateConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Database: database.Config{
			Type:       "sqlite",
			Connection: "./data/nova.db",
			MaxConns:   25,
			LogLevel:   "warn",
		},
		Cache: config.CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
		Providers: config.ProvidersConfig{
			Chain: []config.ProviderConfig{
				{
					Name:       "gemini",
					Type:       "gemini",
					APIKey:     "your-gemini-api-key",
					Model:      "gemini-2.0-flash",
					Timeout:    30 * time.Second,
					MaxRetries: 2,
				},
				{
					Name:       "openai",
					Type:       "openai",
					APIKey:     "your-openai-api-key",
					Model:      "gpt-4o-mini",
					Timeout:    30 * time.Second,
					MaxRetries: 2,
				},
				{
					Name:       "local",
					Type:       "local",
					MaxRetries: 0,
				},
			},
			DefaultTimeout:      30 * time.Second,
			DefaultMaxRetries:   2,
			HealthCheckInterval: 5 * time.Minute,
		},
		Orchestrator: config.OrchestratorConfig{
			MaxConcurrent:  8,
			DefaultTimeout: time.Minute,
		},
		Auth: config.AuthConfig{
			Enabled:   false,
			RateLimit: 10,
			RateBurst: 20,
		},
	}

	cfg.Cache.Redis.Host = "localhost:6379"
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Logging.Level = "info"
	cfg.Monitoring.Logging.Format = "json"

	return cfg
}
