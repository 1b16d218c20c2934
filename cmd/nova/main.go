package main

import (
	"fmt"
	"os"

	"github.com/novahq/nova/cmd/nova/commands"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nova",
		Short: "Nova - Resilient question answering service",
		Long: `Nova - Resilient Question Answering Service

A service that answers questions through a prioritized chain of
LLM providers with automatic fallback, and orchestrates tasks
across capability-tagged agents.

Features:
  • Prioritized provider chain with per-provider retry and timeout
  • Question classification and category-aware prompts
  • Response caching on normalized question fingerprints
  • Task orchestration with priority queueing and deadlines
  • Structured statistics and Prometheus metrics`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")

	// Add all commands
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AskCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.ProvidersCmd)

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Nova version %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
		},
	})

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
