// Package config provides configuration loading and structs for the Toiawase server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool           `yaml:"debug"`
	Server  ServerConfig   `yaml:"server"`
	Storage StorageConfig  `yaml:"storage"`
	Vector  VectorConfig   `yaml:"vector"`
	AI      AIConfig       `yaml:"ai"`
	Sources []SourceConfig `yaml:"sources"`
	Search  SearchConfig   `yaml:"search"`
	Cache   CacheConfig    `yaml:"cache"`
}

// Duration wraps time.Duration so values like "30s" parse from YAML.
type Duration time.Duration

// UnmarshalYAML parses either a Go duration string ("30s", "10m") or an
// integer number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// MarshalYAML renders the duration in Go duration syntax.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document database and keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// VectorConfig selects and configures the vector store.
type VectorConfig struct {
	// Provider selects the store implementation: "memory" or "chromem".
	Provider   string `yaml:"provider"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
}

// ProviderConfig configures one AI provider. APIKeyEnv names the environment
// variable holding the key so secrets stay out of config files.
type ProviderConfig struct {
	Name           string `yaml:"name"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	BaseURL        string `yaml:"base_url"`
}

// RetryConfig configures the retry policy wrapped around external calls.
type RetryConfig struct {
	// Policy is one of "none", "fixed", "linear", "exponential".
	Policy      string        `yaml:"policy"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   Duration      `yaml:"base_delay"`
}

// AIConfig holds the ordered provider list (first is primary, rest are
// fallbacks) and the retry policy.
type AIConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
	Retry     RetryConfig      `yaml:"retry"`
}

// SourceConfig configures one relational data source.
type SourceConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // sqlite | postgres | mysql | sqlserver
	DSN     string `yaml:"dsn"`
	MaxRows int    `yaml:"max_rows"`
}

// SearchConfig holds scoring, routing, and orchestration settings.
type SearchConfig struct {
	SemanticWeight   float64       `yaml:"semantic_weight"`
	LexicalWeight    float64       `yaml:"lexical_weight"`
	OverlapThreshold float64       `yaml:"overlap_threshold"`
	ContextWindow    int           `yaml:"context_window"`
	MaxContextWindow int           `yaml:"max_context_window"`
	MaxContextChars  int           `yaml:"max_context_chars"`
	BranchTimeout    Duration      `yaml:"branch_timeout"`
	DefaultLimit     int           `yaml:"max_results"`
	MaxLimit         int           `yaml:"max_limit"`
	ChunkSize        int           `yaml:"chunk_size"`
	TopKCandidates   int           `yaml:"top_k_candidates"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	TTL             Duration `yaml:"ttl"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Vector.Path != "" {
		cfg.Vector.Path = expandPath(cfg.Vector.Path, configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config consistency that defaults cannot repair.
func Validate(cfg *Config) error {
	for i, src := range cfg.Sources {
		switch src.Type {
		case "sqlite", "postgres", "mysql", "sqlserver":
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.Name, src.Type)
		}
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if src.DSN == "" {
			return fmt.Errorf("sources[%d] %q: dsn is required", i, src.Name)
		}
	}
	switch cfg.Vector.Provider {
	case "memory", "chromem":
	default:
		return fmt.Errorf("vector.provider: unknown provider %q", cfg.Vector.Provider)
	}
	switch cfg.AI.Retry.Policy {
	case "none", "fixed", "linear", "exponential":
	default:
		return fmt.Errorf("ai.retry.policy: unknown policy %q", cfg.AI.Retry.Policy)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
