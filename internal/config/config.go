package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultAPIVersion is the Azure OpenAI API version used when none is configured.
const DefaultAPIVersion = "2024-12-01-preview"

// DefaultTemperature is the chat sampling temperature when none is configured.
const DefaultTemperature = 1.0

// DatasetConfig locates the flat file shared by the collector and the resolver.
type DatasetConfig struct {
	Path string `yaml:"path"`
}

// CollectorConfig configures the label scraping pipeline.
type CollectorConfig struct {
	Target           int    `yaml:"target"`
	BatchSize        int    `yaml:"batch_size"`
	IntervalMillis   int    `yaml:"interval_ms"`
	LabelAPIURL      string `yaml:"label_api_url"`
	IngredientAPIURL string `yaml:"ingredient_api_url"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// AzureConfig holds connection details for one Azure OpenAI deployment.
type AzureConfig struct {
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
	Deployment  string `yaml:"deployment"`
	APIVersion  string `yaml:"api_version"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type  string      `yaml:"type"`
	Azure AzureConfig `yaml:"azure"`
}

// ChatConfig configures the chat model used by the retrieval chain.
type ChatConfig struct {
	Type        string      `yaml:"type"`
	Temperature *float64    `yaml:"temperature"` // nil means DefaultTemperature
	Azure       AzureConfig `yaml:"azure"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string        `yaml:"type"`
	PersistDir string        `yaml:"persist_dir"`
	Collection string        `yaml:"collection"`
	Qdrant     *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

// ChainConfig configures the conversational retrieval chain.
type ChainConfig struct {
	TopK         int    `yaml:"top_k"`
	MemoryWindow int    `yaml:"memory_window"`
	History      string `yaml:"history"`
}

// History modes.
const (
	HistoryOverride = "override"
	HistoryMemory   = "memory"
)

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name onto a slog level. Unknown
// names fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Dataset     DatasetConfig     `yaml:"dataset"`
	Collector   CollectorConfig   `yaml:"collector"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chat        ChatConfig        `yaml:"chat"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chain       ChainConfig       `yaml:"chain"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/druglookup/config.yaml.
// If neither exists, defaults are returned.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return defaultConfig(), "", nil
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return defaultConfig(), "", nil
}

// ApplyEnv overrides Azure settings with values from the environment.
// Unset variables leave the configured value untouched.
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	for _, az := range []*AzureConfig{&c.Embedder.Azure, &c.Chat.Azure} {
		set(&az.APIKey, "AZURE_OPENAI_API_KEY")
		set(&az.Endpoint, "AZURE_OPENAI_ENDPOINT")
		set(&az.APIVersion, "OPENAI_API_VERSION")
	}
	set(&c.Embedder.Azure.Deployment, "AZURE_OPENAI_EMBED_DEPLOYMENT")
	set(&c.Chat.Azure.Deployment, "AZURE_OPENAI_CHAT_DEPLOYMENT")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "druglookup", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "azure"},
		Chat:        ChatConfig{Type: "azure"},
		VectorStore: VectorStoreConfig{Type: "sqlite"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = "drug_ingredient.csv"
	}
	if cfg.Collector.Target == 0 {
		cfg.Collector.Target = 50
	}
	if cfg.Collector.BatchSize == 0 {
		cfg.Collector.BatchSize = 10
	}
	if cfg.Collector.IntervalMillis == 0 {
		cfg.Collector.IntervalMillis = 1000
	}
	if cfg.Collector.LabelAPIURL == "" {
		cfg.Collector.LabelAPIURL = "https://api.fda.gov/drug/label.json"
	}
	if cfg.Collector.IngredientAPIURL == "" {
		cfg.Collector.IngredientAPIURL = "https://clinicaltables.nlm.nih.gov/api/drug_ingredients/v3/search"
	}
	if cfg.Collector.TimeoutSecs == 0 {
		cfg.Collector.TimeoutSecs = 30
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "azure"
	}
	if cfg.Chat.Type == "" {
		cfg.Chat.Type = "azure"
	}
	if cfg.Chat.Temperature == nil {
		t := DefaultTemperature
		cfg.Chat.Temperature = &t
	}
	for _, az := range []*AzureConfig{&cfg.Embedder.Azure, &cfg.Chat.Azure} {
		if az.APIVersion == "" {
			az.APIVersion = DefaultAPIVersion
		}
		if az.TimeoutSecs == 0 {
			az.TimeoutSecs = 60
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.PersistDir == "" {
		cfg.VectorStore.PersistDir = "./vector_db"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "drug_ingredients_collection"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.Addr == "" {
		cfg.VectorStore.Qdrant.Addr = "localhost:6334"
	}
	if cfg.Chain.TopK == 0 {
		cfg.Chain.TopK = 1
	}
	if cfg.Chain.MemoryWindow == 0 {
		cfg.Chain.MemoryWindow = 5
	}
	if cfg.Chain.History == "" {
		cfg.Chain.History = HistoryOverride
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
