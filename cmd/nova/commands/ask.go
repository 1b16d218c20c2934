package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/novahq/nova/internal/nova"
	"github.com/novahq/nova/pkg/config"
)

var (
	askContext string
	askTimeout time.Duration
	askTrail   bool
)

// AskCmd rappresenta il comando ask
var AskCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question through the provider chain",
	Long: `Ask a single question through the configured provider chain
and print the answer. The chain is traversed in priority order with
automatic fallback between providers.`,
	Example: `  # Ask a question
  nova ask "What is the capital of France?"

  # Provide additional context
  nova ask "Summarize this" --context "Go is a programming language..."

  # Show the full attempt trail
  nova ask "What is 2+2?" --trail`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	AskCmd.Flags().StringVar(&askContext, "context", "", "Additional context for the question")
	AskCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "Overall timeout for the question")
	AskCmd.Flags().BoolVar(&askTrail, "trail", false, "Print the per-provider attempt trail")
}

func runAsk(cmd *cobra.Command, args []string) error {
	// Il comando scrive su stdout, il logging resta silenzioso
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

	question := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	outcome, err := svc.AskQuestion(ctx, question, askContext)
	if err != nil {
		return err
	}

	if askTrail {
		fmt.Println("Attempt trail:")
		for i, attempt := range outcome.Attempts {
			status := "ok"
			if !attempt.Success {
				status = fmt.Sprintf("failed (%s: %s)", attempt.Kind, attempt.Error)
			}
			fmt.Printf("  %d. %-12s %6dms  %s\n", i+1, attempt.Provider, attempt.LatencyMS, status)
		}
		fmt.Println()
	}

	if !outcome.Answered() {
		fmt.Printf("No provider could answer (%d attempts, %dms)\n",
			len(outcome.Attempts), outcome.TotalLatencyMS)
		return nil
	}

	fmt.Println(outcome.Result.Text)
	fmt.Println()
	fmt.Printf("Provider:   %s\n", outcome.Result.ProviderID)
	fmt.Printf("Confidence: %.2f\n", outcome.Result.Confidence)
	fmt.Printf("Latency:    %dms", outcome.TotalLatencyMS)
	if outcome.CacheHit {
		fmt.Print(" (cached)")
	}
	fmt.Println()

	return nil
}
