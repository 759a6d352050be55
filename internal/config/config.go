package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultBatchSize is the default number of texts embedded per batch.
	DefaultBatchSize = 64

	// DefaultTopK is the default number of records retrieved per query.
	DefaultTopK = 10

	// DefaultDimension matches all-MiniLM-L6-v2 sentence embeddings.
	DefaultDimension = 384
)

// Config holds all configuration for tarix. It is constructed once at
// startup and passed into constructors; no package reads the environment
// directly.
type Config struct {
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Claude    ClaudeConfig    `mapstructure:"claude"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// PostgresConfig holds tariff database connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ConnString builds a pgx-compatible connection URL.
func (c PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Database,
	}
	if c.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// EmbeddingConfig holds Hugging Face inference API settings. The model
// here is the model-version tag stored with every embedding; query-time
// vectors are only compared against rows tagged with the same model.
type EmbeddingConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Token     string `mapstructure:"token"`
	Dimension int    `mapstructure:"dimension"`
	BatchSize int    `mapstructure:"batch_size"`
}

// ClaudeConfig holds Anthropic Claude API settings for answer synthesis.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", maskSecret(c.APIKey), c.Model)
}

// RetrievalConfig holds similarity-search settings.
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// maskSecret shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskSecret(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 20073)
	v.SetDefault("postgres.database", "Tarix")
	v.SetDefault("postgres.ssl_mode", "")

	v.SetDefault("embedding.base_url", "https://api-inference.huggingface.co")
	v.SetDefault("embedding.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimension", DefaultDimension)
	v.SetDefault("embedding.batch_size", DefaultBatchSize)

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	v.SetDefault("retrieval.top_k", DefaultTopK)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".tarix"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("TARIX")
	v.AutomaticEnv()

	// Legacy env names used by the original deployment.
	_ = v.BindEnv("postgres.host", "PG_HOST")
	_ = v.BindEnv("postgres.user", "PG_ADMIN")
	_ = v.BindEnv("postgres.password", "PG_PASSWORD")
	_ = v.BindEnv("embedding.token", "HF_TOKEN")
	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("api.listen_addr", "TARIX_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "TARIX_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK — use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host must not be empty")
	}
	if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
		return fmt.Errorf("postgres.port must be a valid port, got %d", c.Postgres.Port)
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("postgres.database must not be empty")
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding.base_url must not be empty")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model must not be empty")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be greater than 0")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be greater than 0")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be greater than 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
