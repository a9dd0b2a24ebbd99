// stratograph analyzes batches of strategy-canvas items with an
// inference provider, splitting work that exceeds the provider's token
// budget and consolidating the partial results.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stratograph/internal/capacity"
	"stratograph/internal/config"
	"stratograph/internal/estimate"
	"stratograph/internal/provider"
	"stratograph/internal/relate"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// analyze flags
	itemsPath        string
	target           string
	instructionsPath string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stratograph",
	Short: "stratograph - relationship analysis for strategy canvases",
	Long: `stratograph asks an inference provider to propose relationships
between the items of a strategy canvas. Batches too large for one
provider call are split into budget-safe chunks, dispatched
independently, and consolidated into one deduplicated, ranked result.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one batch analysis over an items file",
	Long: `Reads a JSON array of items, partitions it under the target's
capacity profile, dispatches every chunk, and prints the consolidated
candidate relations as JSON on stdout.

Example:
  stratograph analyze --items nodes.json --target gemini-2.5-flash`,
	RunE: runAnalyze,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show how a batch would be partitioned without dispatching it",
	RunE:  runPlan,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "stratograph.yaml", "path to config file")

	for _, cmd := range []*cobra.Command{analyzeCmd, planCmd} {
		cmd.Flags().StringVar(&itemsPath, "items", "", "path to JSON array of items (required)")
		cmd.Flags().StringVar(&target, "target", "", "inference target id (defaults to llm.model)")
		cmd.Flags().StringVar(&instructionsPath, "instructions", "", "path to custom instruction text")
		_ = cmd.MarkFlagRequired("items")
	}

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(planCmd)
}

// loadBatchInputs resolves config, items, overhead text, and the
// capacity profile shared by analyze and plan.
func loadBatchInputs() (*config.Config, []relate.Item, string, capacity.Profile, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, "", capacity.Profile{}, err
	}

	data, err := os.ReadFile(itemsPath)
	if err != nil {
		return nil, nil, "", capacity.Profile{}, fmt.Errorf("failed to read items: %w", err)
	}
	var items []relate.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, "", capacity.Profile{}, fmt.Errorf("failed to parse items: %w", err)
	}

	overhead := relate.DefaultInstructions
	if instructionsPath != "" {
		text, err := os.ReadFile(instructionsPath)
		if err != nil {
			return nil, nil, "", capacity.Profile{}, fmt.Errorf("failed to read instructions: %w", err)
		}
		overhead = string(text)
	}

	if target == "" {
		target = cfg.LLM.Model
	}
	registry, err := capacity.NewRegistry(cfg.Capacity, logger)
	if err != nil {
		return nil, nil, "", capacity.Profile{}, err
	}
	return cfg, items, overhead, registry.ProfileFor(target), nil
}

func buildClient(ctx context.Context, cfg *config.Config) (provider.Client, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		return provider.NewGeminiClient(ctx, cfg.LLM.APIKey, logger)
	case "openai":
		ocfg := provider.DefaultOpenAIConfig(cfg.LLM.APIKey)
		if cfg.LLM.BaseURL != "" {
			ocfg.BaseURL = cfg.LLM.BaseURL
		}
		ocfg.MaxTokens = cfg.LLM.MaxTokens
		ocfg.Timeout = cfg.LLM.TimeoutDuration()
		return provider.NewOpenAIClient(ocfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, items, overhead, profile, err := loadBatchInputs()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}

	opts := relate.Options{
		MaxConcurrentChunks: cfg.Batch.MaxConcurrentChunks,
		ChunkTimeout:        cfg.Batch.ChunkTimeoutDuration(),
	}
	orch := relate.NewOrchestrator(client, estimate.NewEstimator(), opts, logger)

	result, err := orch.RunBatch(ctx, items, overhead, profile)
	if result != nil {
		out, mErr := json.MarshalIndent(result, "", "  ")
		if mErr != nil {
			return mErr
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	}
	return err
}

func runPlan(cmd *cobra.Command, args []string) error {
	_, items, overhead, profile, err := loadBatchInputs()
	if err != nil {
		return err
	}

	p := relate.NewPartitioner(estimate.NewEstimator())
	chunks, err := p.Partition(items, overhead, profile)
	if err != nil {
		return err
	}

	plan := struct {
		Target     string         `json:"target"`
		NeedsSplit bool           `json:"needs_split"`
		Chunks     []relate.Chunk `json:"chunks"`
	}{
		Target:     profile.TargetID,
		NeedsSplit: p.NeedsSplit(items, overhead, profile),
		Chunks:     chunks,
	}
	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
