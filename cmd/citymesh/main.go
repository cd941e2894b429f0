package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/citymesh/coordinator"
	"github.com/hupe1980/citymesh/core"
	"github.com/hupe1980/citymesh/decision"
	"github.com/hupe1980/citymesh/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "citymesh",
		Short: "CityMesh runs autonomous multi-agent city simulations.",
	}

	var (
		agents     int
		duration   time.Duration
		configPath string
		provider   string
		logLevel   string
		seed       int64
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation with a randomly generated population",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(agents, duration, configPath, provider, logLevel, seed)
		},
	}
	runCmd.Flags().IntVar(&agents, "agents", 10, "number of citizens to simulate")
	runCmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "maximum simulation duration")
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML run configuration")
	runCmd.Flags().StringVar(&provider, "provider", "", "external decision provider (openai, anthropic)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "population seed (0 = random)")

	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSimulation(agents int, duration time.Duration, configPath, providerName, logLevel string, seed int64) error {
	cfg := coordinator.DefaultConfig
	if configPath != "" {
		loaded, err := coordinator.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.MaxDuration = duration

	logger := logging.NewSlogLogger(parseLogLevel(logLevel), "text", false)

	var provider core.DecisionProvider
	switch providerName {
	case "":
	case "openai":
		provider = decision.NewOpenAIProvider()
	case "anthropic":
		provider = decision.NewAnthropicProvider()
	default:
		return fmt.Errorf("unknown provider %q", providerName)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	citizens := make([]*core.Citizen, 0, agents)
	for i := 0; i < agents; i++ {
		citizens = append(citizens, core.NewCitizen(
			fmt.Sprintf("citizen-%d", i+1),
			core.WithTraits(core.RandomTraits(rng)),
			core.WithLocation("downtown"),
		))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	coord := coordinator.New(citizens,
		coordinator.WithConfig(cfg),
		coordinator.WithProvider(provider),
		coordinator.WithLogger(logger),
	)

	fmt.Printf("Starting simulation: %d agents, %s\n", agents, duration)

	results, err := coord.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Simulation Complete ===")
	fmt.Printf("Duration:     %s\n", results.Duration.Round(time.Millisecond))
	fmt.Printf("Ticks:        %d\n", results.TotalTicks)
	fmt.Printf("Messages:     %d sent, %d delivered\n", results.Bus.MessagesSent, results.Bus.MessagesDelivered)
	fmt.Printf("Interactions: %d (%.0f%% successful)\n",
		results.Interactions.TotalInteractions, results.Interactions.SuccessRate*100)

	var totalActions int64
	for _, stats := range results.AgentStats {
		totalActions += stats.ActionsTaken
	}
	fmt.Printf("Actions:      %d\n", totalActions)
	return nil
}

func parseLogLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
