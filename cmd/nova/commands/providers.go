package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/novahq/nova/internal/nova"
	"github.com/novahq/nova/pkg/config"
)

var providersCheck bool

// ProvidersCmd rappresenta il comando providers
var ProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the configured provider chain",
	Long: `List the providers in the configured chain, in priority order.
With --check, each provider is probed with a health check.`,
	Example: `  # List the chain
  nova providers

  # List and probe every provider
  nova providers --check`,
	RunE: runProviders,
}

func init() {
	ProvidersCmd.Flags().BoolVar(&providersCheck, "check", false, "Probe each provider with a health check")
}

func runProviders(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	svc, err := nova.New(cfg, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	var health map[string]error
	if providersCheck {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		health = svc.HealthCheck(ctx)
	}

	fmt.Println("Provider chain (priority order):")
	for i, name := range svc.ProviderNames() {
		line := fmt.Sprintf("  %d. %s", i+1, name)
		if providersCheck {
			if err := health[name]; err != nil {
				line += fmt.Sprintf("  ✗ %v", err)
			} else {
				line += "  ✓ healthy"
			}
		}
		fmt.Println(line)
	}

	return nil
}
