package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"druglookup/internal/collector"
	"druglookup/internal/config"
	"druglookup/internal/dataset"
	"druglookup/internal/openfda"
	"druglookup/internal/rxterms"
	"druglookup/internal/summarizer"
)

var (
	cfgPath string
	outPath string
)

var rootCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect complete drug ingredient records into a CSV file",
	Long: `Pages through the openFDA drug label endpoint, completes labels that lack
ingredient lists from the ingredient search service, drops duplicate
application numbers and writes the normalized records as CSV.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCollect,
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/druglookup/config.yaml)")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "output CSV path (overrides dataset.path)")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("collect: %v", err)
	}
}

func runCollect(cmd *cobra.Command, _ []string) error {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if outPath != "" {
		cfg.Dataset.Path = outPath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	timeout := time.Duration(cfg.Collector.TimeoutSecs) * time.Second
	labels := openfda.NewClient(openfda.Config{BaseURL: cfg.Collector.LabelAPIURL, Timeout: timeout})
	ingredients := rxterms.NewClient(rxterms.Config{BaseURL: cfg.Collector.IngredientAPIURL, Timeout: timeout})

	c := collector.New(labels, collector.NewCompleter(ingredients, logger), collector.Options{
		Target:    cfg.Collector.Target,
		BatchSize: cfg.Collector.BatchSize,
		Interval:  time.Duration(cfg.Collector.IntervalMillis) * time.Millisecond,
	}, logger)

	records, err := c.Collect(ctx)
	if err != nil {
		// keep what was gathered before the failure
		logger.Error("collection stopped early", "error", err, "records", len(records))
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No complete records found.")
		return nil
	}
	records = collector.Normalize(records)
	if err := dataset.Write(cfg.Dataset.Path, records); err != nil {
		return err
	}
	logger.Info("collection summary", "summary", summarizer.NewFrequencySummarizer().Summarize(records, 5))
	fmt.Fprintf(out, "Saved %d complete and normalized drug records to '%s'\n", len(records), cfg.Dataset.Path)
	return nil
}
