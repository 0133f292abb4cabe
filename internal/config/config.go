package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the reelrank configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Index     IndexConfig     `yaml:"index"`
	Data      DataConfig      `yaml:"data"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// LLMConfig holds the chat-completion provider used for query optimization
// and recommendation narratives. Both calls are best-effort.
type LLMConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	OptimizeTimeoutSec int    `yaml:"optimize_timeout_sec"`
}

// Enabled reports whether the LLM collaborator is configured at all.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

// IndexConfig holds vector index and retrieval policy settings.
type IndexConfig struct {
	Collection string `yaml:"collection"`
	KeyPrefix  string `yaml:"key_prefix"`
	BatchSize  int    `yaml:"batch_size"`
	OverFetch  int    `yaml:"over_fetch"`
	TopK       int    `yaml:"top_k"`
}

// DataConfig holds source table locations for the reconciliation run.
type DataConfig struct {
	Dir         string `yaml:"dir"`
	MoviesFile  string `yaml:"movies_file"`
	KeywordFile string `yaml:"keywords_file"`
	CreditsFile string `yaml:"credits_file"`
	LinksFile   string `yaml:"links_file"`
	RatingsFile string `yaml:"ratings_file"`
	CorpusFile  string `yaml:"corpus_file"`
	MaxMovies   int    `yaml:"max_movies"` // 0 = unlimited
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.LLM.OptimizeTimeoutSec <= 0 {
		c.LLM.OptimizeTimeoutSec = 5
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "movies"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "reelrank:"
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 100
	}
	if c.Index.OverFetch <= 0 {
		c.Index.OverFetch = 20
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 6
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Data.MoviesFile == "" {
		c.Data.MoviesFile = filepath.Join(c.Data.Dir, "movies_metadata.csv")
	}
	if c.Data.KeywordFile == "" {
		c.Data.KeywordFile = filepath.Join(c.Data.Dir, "keywords.csv")
	}
	if c.Data.CreditsFile == "" {
		c.Data.CreditsFile = filepath.Join(c.Data.Dir, "credits.csv")
	}
	if c.Data.LinksFile == "" {
		c.Data.LinksFile = filepath.Join(c.Data.Dir, "links.csv")
	}
	if c.Data.RatingsFile == "" {
		c.Data.RatingsFile = filepath.Join(c.Data.Dir, "ratings.csv")
	}
	if c.Data.CorpusFile == "" {
		c.Data.CorpusFile = filepath.Join(c.Data.Dir, "movies_clean.csv")
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Index.TopK > c.Index.OverFetch {
		return fmt.Errorf(
			"index.top_k (%d) must not exceed index.over_fetch (%d)",
			c.Index.TopK, c.Index.OverFetch,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
