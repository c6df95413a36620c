package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Rebuild strategies for the persisted index.
const (
	StrategyFull = "full"
	StrategyHash = "hash"
)

// Store backends.
const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// FallbackPhrase is what the model is told to answer when the context lacks the answer.
const FallbackPhrase = "Not found in speech."

// Config holds all configuration for speechqa.
type Config struct {
	Source     string           `yaml:"source"`
	Index      IndexConfig      `yaml:"index"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	PersistDir   string `yaml:"persist_dir"`
	Strategy     string `yaml:"strategy"` // "full" or "hash"
	Backend      string `yaml:"backend"`  // "bolt" or "memory"
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "ollama", "hash"
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	Attempts  int           `yaml:"attempts"`
	Backoff   time.Duration `yaml:"backoff"`
}

// GenerationConfig holds configuration for the local language model.
type GenerationConfig struct {
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: "speech.txt",
		Index: IndexConfig{
			PersistDir:   "vector_db",
			Strategy:     StrategyFull,
			Backend:      BackendBolt,
			ChunkSize:    300,
			ChunkOverlap: 30,
		},
		Retrieve: RetrieveConfig{
			TopK:      2,
			CacheSize: 64,
			CacheTTL:  5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-minilm", // sentence-transformers/all-MiniLM-L6-v2
			BaseURL:   "http://localhost:11434",
			Dimension: 384,
			BatchSize: 32,
			Timeout:   60 * time.Second,
			Attempts:  2,
			Backoff:   500 * time.Millisecond,
		},
		Generation: GenerationConfig{
			Model:    "llama3.2:1b",
			BaseURL:  "http://localhost:11434",
			Timeout:  120 * time.Second,
			Attempts: 1,
			Backoff:  time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for speechqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "speechqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".speechqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// ApplyEnv loads a .env file from dir (if any) and applies SPEECHQA_* overrides.
// Variables already present in the environment win over the .env file.
func (c *Config) ApplyEnv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	if v := os.Getenv("SPEECHQA_SOURCE"); v != "" {
		c.Source = v
	}
	if v := os.Getenv("SPEECHQA_PERSIST_DIR"); v != "" {
		c.Index.PersistDir = v
	}
	if v := os.Getenv("SPEECHQA_OLLAMA_URL"); v != "" {
		c.Embedding.BaseURL = v
		c.Generation.BaseURL = v
	}
	if v := os.Getenv("SPEECHQA_EMBED_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("SPEECHQA_LLM_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("SPEECHQA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source must not be empty")
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be greater than 0")
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap must be in [0, %d), got %d", c.Index.ChunkSize, c.Index.ChunkOverlap)
	}
	switch c.Index.Strategy {
	case StrategyFull, StrategyHash:
	default:
		return fmt.Errorf("unknown index.strategy: %q", c.Index.Strategy)
	}
	switch c.Index.Backend {
	case BackendBolt:
		if c.Index.PersistDir == "" {
			return fmt.Errorf("index.persist_dir must not be empty")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown index.backend: %q", c.Index.Backend)
	}
	if c.Retrieve.TopK <= 0 {
		return fmt.Errorf("retrieve.top_k must be greater than 0")
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "ollama", "hash":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be greater than 0")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model must not be empty")
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database inside the persist directory.
func IndexDBPath(persistDir string) string {
	return filepath.Join(persistDir, "index.db")
}

// EnsurePersistDir ensures the persist directory exists.
func EnsurePersistDir(persistDir string) error {
	return os.MkdirAll(persistDir, 0755)
}

// Resolve makes a relative path absolute against dir.
func Resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
