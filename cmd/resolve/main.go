package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"druglookup/internal/chain"
	"druglookup/internal/config"
	"druglookup/internal/dataset"
	"druglookup/internal/domain"
	"druglookup/internal/embedding/azure"
	"druglookup/internal/embedding/tfidf"
	"druglookup/internal/index"
	llmazure "druglookup/internal/llm/azure"
	"druglookup/internal/openfda"
	"druglookup/internal/resolver"
	"druglookup/internal/summarizer"
	"druglookup/internal/tui"
	"druglookup/internal/vectorstore/memory"
	"druglookup/internal/vectorstore/qdrant"
	"druglookup/internal/vectorstore/sqlite"
)

var (
	cfgPath string
	useTUI  bool
)

var rootCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Look up drug ingredients locally or from openFDA",
	Long: `Loads the collected CSV into a vector index and answers drug name queries.
Names present in the CSV are answered from the index; any other name is
looked up on the openFDA drug label endpoint.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runResolve,
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/druglookup/config.yaml)")
	rootCmd.Flags().BoolVar(&useTUI, "tui", false, "run the interactive terminal UI instead of the line prompt")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("resolve: %v", err)
	}
}

func runResolve(cmd *cobra.Command, _ []string) error {
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	out := cmd.OutOrStdout()

	records, err := dataset.Read(cfg.Dataset.Path)
	if errors.Is(err, dataset.ErrSourceMissing) {
		fmt.Fprintf(out, "CSV file '%s' not found!\n", cfg.Dataset.Path)
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Assemble components
	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	st, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	model, err := newChatModel(cfg)
	if err != nil {
		return err
	}

	ix, err := index.Open(ctx, emb, st, dataset.Documents(records), logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Vector index '%s' is ready.\n", cfg.VectorStore.Collection)

	ch := chain.New(model, ix, chain.Config{
		TopK:   cfg.Chain.TopK,
		Memory: chain.NewMemory(cfg.Chain.MemoryWindow),
	}, logger)
	labels := openfda.NewClient(openfda.Config{
		BaseURL: cfg.Collector.LabelAPIURL,
		Timeout: time.Duration(cfg.Collector.TimeoutSecs) * time.Second,
	})
	res := resolver.New(resolver.NewRouter(dataset.NameSet(records)), ch, labels, resolver.Options{
		OverrideHistory: cfg.Chain.History != config.HistoryMemory,
	}, logger)

	if !useTUI {
		return res.Run(ctx, cmd.InOrStdin(), out)
	}

	summary := summarizer.NewFrequencySummarizer().Summarize(records, 3)
	header := fmt.Sprintf("%s | index '%s' (%s, %s)", summary, cfg.VectorStore.Collection, emb.Name(), cfg.VectorStore.Type)
	final, err := tea.NewProgram(tui.New(ctx, res, header)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

func newEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "azure", "":
		az := cfg.Embedder.Azure
		return azure.NewEmbedder(azure.Config{
			Endpoint:   az.Endpoint,
			APIKey:     az.APIKey,
			Deployment: az.Deployment,
			APIVersion: az.APIVersion,
			Timeout:    time.Duration(az.TimeoutSecs) * time.Second,
		}), nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

// newStore returns the configured vector store and a func releasing it.
func newStore(cfg *config.AppConfig) (domain.VectorStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		s, err := sqlite.NewStorage(sqlite.Config{Dir: cfg.VectorStore.PersistDir, Collection: cfg.VectorStore.Collection})
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store init failed: %w", err)
		}
		return s, s.Close, nil
	case "memory":
		return memory.NewStorage(), noop, nil
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, nil, errors.New("qdrant config missing")
		}
		s, err := qdrant.NewStorage(qdrant.Config{
			Addr:       cfg.VectorStore.Qdrant.Addr,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Collection,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("qdrant store init failed: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func newChatModel(cfg *config.AppConfig) (domain.ChatModel, error) {
	switch cfg.Chat.Type {
	case "azure", "":
		az := cfg.Chat.Azure
		temperature := config.DefaultTemperature
		if cfg.Chat.Temperature != nil {
			temperature = *cfg.Chat.Temperature
		}
		return llmazure.NewChatModel(llmazure.Config{
			Endpoint:    az.Endpoint,
			APIKey:      az.APIKey,
			Deployment:  az.Deployment,
			APIVersion:  az.APIVersion,
			Temperature: temperature,
			Timeout:     time.Duration(az.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown chat model: %s", cfg.Chat.Type)
	}
}
