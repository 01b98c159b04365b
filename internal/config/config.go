// Package config handles paperdup configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the directory name under XDG_CONFIG_HOME and XDG_CACHE_HOME.
	AppDir = "paperdup"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// CacheFile is the persistent embedding cache file name.
	CacheFile = "embeddings.db"

	// DefaultCorpusPath matches the file the corpus has always been written to.
	DefaultCorpusPath = "corpus.json"
)

// Provider names accepted in Embedding.Provider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// ValidProviders lists the supported embedding providers.
var ValidProviders = []string{ProviderOllama, ProviderOpenAI, ProviderHash}

// Config represents configuration stored in ~/.config/paperdup/config.yml.
type Config struct {
	CorpusPath string    `yaml:"corpus_path"`
	Check      Check     `yaml:"check"`
	Embedding  Embedding `yaml:"embedding"`
	ArXiv      ArXiv     `yaml:"arxiv"`
	Server     Server    `yaml:"server"`
	LogLevel   string    `yaml:"log_level"`
}

// Check holds duplicate-detection parameters.
type Check struct {
	Threshold      float64 `yaml:"threshold"`
	TopK           int     `yaml:"top_k"`
	TitleWeight    float64 `yaml:"title_weight"`
	AbstractWeight float64 `yaml:"abstract_weight"`
}

// Embedding selects and configures the embedding backend.
type Embedding struct {
	Provider   string        `yaml:"provider"` // ollama, openai, hash
	Model      string        `yaml:"model,omitempty"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	APIKey     string        `yaml:"api_key,omitempty"`
	Dimensions int           `yaml:"dimensions,omitempty"` // 0 = discover from the model
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	CacheSize  int           `yaml:"cache_size"` // In-memory LRU entries; 0 disables
	CachePath  string        `yaml:"cache_path,omitempty"`
	NoCache    bool          `yaml:"no_cache,omitempty"` // Disable the persistent cache
}

// ArXiv configures the arXiv export API client.
type ArXiv struct {
	BaseURL      string        `yaml:"base_url,omitempty"`
	PageSize     int           `yaml:"page_size"`
	RateInterval time.Duration `yaml:"rate_interval"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		CorpusPath: DefaultCorpusPath,
		Check: Check{
			Threshold:      0.85,
			TopK:           5,
			TitleWeight:    0.4,
			AbstractWeight: 0.6,
		},
		Embedding: Embedding{
			Provider:  ProviderOllama,
			CacheSize: 4096,
			Timeout:   30 * time.Second,
		},
		ArXiv: ArXiv{
			PageSize:     100,
			RateInterval: 3 * time.Second,
		},
		Server: Server{
			Addr: "127.0.0.1:8085",
		},
		LogLevel: "warn",
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/paperdup/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppDir, ConfigFile)
}

// DefaultCachePath returns the persistent embedding cache location.
// Respects XDG_CACHE_HOME, defaults to ~/.cache/paperdup/embeddings.db.
func DefaultCachePath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, AppDir, CacheFile)
}

// Load reads the config file at path on top of the defaults.
// A missing file is not an error. An empty path means Path().
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.CorpusPath = ExpandPath(cfg.CorpusPath)
	cfg.Embedding.CachePath = ExpandPath(cfg.Embedding.CachePath)
	return cfg, nil
}

// Save writes the config to path, creating parent directories. An empty path means Path().
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	if path == "" {
		return errors.New("cannot determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PAPERDUP_CORPUS"); v != "" {
		c.CorpusPath = ExpandPath(v)
	}
	if v := os.Getenv("PAPERDUP_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Embedding.BaseURL == "" {
		switch c.Embedding.Provider {
		case ProviderOllama:
			if v := os.Getenv("OLLAMA_HOST"); v != "" {
				c.Embedding.BaseURL = normalizeOllamaHost(v)
			}
		case ProviderOpenAI:
			c.Embedding.BaseURL = os.Getenv("OPENAI_BASE_URL")
		}
	}
}

// normalizeOllamaHost accepts OLLAMA_HOST in its bare host:port form.
func normalizeOllamaHost(host string) string {
	if len(host) >= 7 && (host[:7] == "http://" || (len(host) >= 8 && host[:8] == "https://")) {
		return host
	}
	return "http://" + host
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.CorpusPath == "" {
		return errors.New("corpus_path must not be empty")
	}
	if err := ValidateProvider(c.Embedding.Provider); err != nil {
		return err
	}
	if c.Check.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", c.Check.TopK)
	}
	if math.IsNaN(c.Check.Threshold) {
		return errors.New("threshold must be a number")
	}
	if err := ValidateWeights(c.Check.TitleWeight, c.Check.AbstractWeight); err != nil {
		return err
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.Embedding.CacheSize)
	}
	if c.ArXiv.PageSize < 1 {
		return fmt.Errorf("arxiv page_size must be at least 1, got %d", c.ArXiv.PageSize)
	}
	return nil
}

// ValidateProvider checks that the provider name is supported.
func ValidateProvider(provider string) error {
	for _, valid := range ValidProviders {
		if provider == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid embedding provider: %s (valid: %v)", provider, ValidProviders)
}

// ValidateWeights checks that the fusion weights are finite, non-negative and not both zero.
func ValidateWeights(title, abstract float64) error {
	for _, w := range []float64{title, abstract} {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weights must be finite, got title=%v abstract=%v", title, abstract)
		}
		if w < 0 {
			return fmt.Errorf("weights must not be negative, got title=%v abstract=%v", title, abstract)
		}
	}
	if title == 0 && abstract == 0 {
		return errors.New("title_weight and abstract_weight must not both be zero")
	}
	return nil
}

// ResolvedCachePath returns the cache path to use, or "" when the persistent cache is disabled.
func (e Embedding) ResolvedCachePath() string {
	if e.NoCache {
		return ""
	}
	if e.CachePath != "" {
		return e.CachePath
	}
	return DefaultCachePath()
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
