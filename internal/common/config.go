// Package common provides shared utilities for Insight
package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// ErrMissingConfig is returned by Validate when a required setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds all configuration for Insight
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Provider    ProviderConfig `toml:"provider"`
	LLM         LLMConfig      `toml:"llm"`
	Storage     StorageConfig  `toml:"storage"`
	Universe    UniverseConfig `toml:"universe"`
	Chat        ChatConfig     `toml:"chat"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	PublicBaseURL string `toml:"public_base_url"` // Externally reachable base URL, used for file-backend links
}

// ProviderConfig holds the financial-events provider (Quartr) configuration
type ProviderConfig struct {
	BaseURL    string `toml:"base_url"`
	AppHost    string `toml:"app_host"` // Host of the provider's web app, e.g. app.quartr.com
	APIKey     string `toml:"api_key"`
	RateLimit  int    `toml:"rate_limit"`
	Timeout    string `toml:"timeout"`
	EventLimit int    `toml:"event_limit"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LLMConfig holds language model configuration
type LLMConfig struct {
	APIKey          string  `toml:"api_key"`
	Model           string  `toml:"model"`
	Temperature     float32 `toml:"temperature"`
	MaxOutputTokens int32   `toml:"max_output_tokens"`
	Timeout         string  `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *LLMConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	Backend        string     `toml:"backend"` // "file", "memory" or "s3"
	Bucket         string     `toml:"bucket"`
	Region         string     `toml:"region"`
	Endpoint       string     `toml:"endpoint"` // Custom endpoint for S3-compatible stores (MinIO, R2)
	AccessKey      string     `toml:"access_key"`
	SecretKey      string     `toml:"secret_key"`
	UseSSL         bool       `toml:"use_ssl"`
	PublicURLStyle string     `toml:"public_url_style"` // "s3", "supabase" or "path"
	PublicBaseURL  string     `toml:"public_base_url"`
	File           FileConfig `toml:"file"`
}

// FileConfig holds file backend configuration
type FileConfig struct {
	BasePath string `toml:"base_path"`
}

// UniverseConfig holds the company directory configuration
type UniverseConfig struct {
	DBPath          string `toml:"db_path"`
	SeedFile        string `toml:"seed_file"`
	RefreshInterval string `toml:"refresh_interval"`
}

// GetRefreshInterval parses and returns the directory cache refresh interval
func (c *UniverseConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return FreshnessDirectory
	}
	return d
}

// ChatConfig holds conversational session configuration
type ChatConfig struct {
	SessionTTL string `toml:"session_ttl"`
}

// GetSessionTTL parses and returns the idle session expiry
func (c *ChatConfig) GetSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return FreshnessSession
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults.
// Secrets have no defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Provider: ProviderConfig{
			BaseURL:    "https://api.quartr.com/public/v1",
			AppHost:    "app.quartr.com",
			RateLimit:  5,
			Timeout:    "30s",
			EventLimit: 10,
		},
		LLM: LLMConfig{
			Model:           "gemini-2.0-flash",
			Temperature:     0.1,
			MaxOutputTokens: 7000,
			Timeout:         "120s",
		},
		Storage: StorageConfig{
			Backend:        "file",
			Bucket:         "insight-documents",
			Region:         "eu-central-2",
			UseSSL:         true,
			PublicURLStyle: "path",
			File:           FileConfig{BasePath: "data/objects"},
		},
		Universe: UniverseConfig{
			DBPath:          "data/universe.db",
			SeedFile:        "config/universe.yaml",
			RefreshInterval: "1h",
		},
		Chat: ChatConfig{
			SessionTTL: "1h",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/insight.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first when present.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if config.Server.PublicBaseURL == "" {
		config.Server.PublicBaseURL = fmt.Sprintf("http://localhost:%d", config.Server.Port)
	}
	if config.Storage.PublicBaseURL == "" && config.Storage.Backend != "s3" {
		config.Storage.PublicBaseURL = strings.TrimSuffix(config.Server.PublicBaseURL, "/") + "/files"
	}

	return config, nil
}

// firstEnv returns the first non-empty environment variable among names.
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INSIGHT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("INSIGHT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("INSIGHT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if v := os.Getenv("INSIGHT_PUBLIC_BASE_URL"); v != "" {
		config.Server.PublicBaseURL = v
	}

	if level := os.Getenv("INSIGHT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Provider
	if v := firstEnv("QUARTR_API_KEY", "INSIGHT_PROVIDER_API_KEY"); v != "" {
		config.Provider.APIKey = v
	}
	if v := os.Getenv("INSIGHT_PROVIDER_BASE_URL"); v != "" {
		config.Provider.BaseURL = v
	}

	// Language model
	if v := firstEnv("GEMINI_API_KEY", "INSIGHT_GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("INSIGHT_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}

	// Storage
	if v := os.Getenv("INSIGHT_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := firstEnv("S3_BUCKET_NAME", "INSIGHT_STORAGE_BUCKET"); v != "" {
		config.Storage.Bucket = v
	}
	if v := firstEnv("AWS_DEFAULT_REGION", "INSIGHT_STORAGE_REGION"); v != "" {
		config.Storage.Region = v
	}
	if v := firstEnv("AWS_ACCESS_KEY_ID", "INSIGHT_STORAGE_ACCESS_KEY"); v != "" {
		config.Storage.AccessKey = v
	}
	if v := firstEnv("AWS_SECRET_ACCESS_KEY", "INSIGHT_STORAGE_SECRET_KEY"); v != "" {
		config.Storage.SecretKey = v
	}
	if v := os.Getenv("INSIGHT_STORAGE_ENDPOINT"); v != "" {
		config.Storage.Endpoint = v
	}
	if v := os.Getenv("INSIGHT_DATA_PATH"); v != "" {
		config.Storage.File.BasePath = v + "/objects"
		config.Universe.DBPath = v + "/universe.db"
	}
}

// Validate reports every missing setting needed by the configured features.
// The returned error wraps ErrMissingConfig.
func (c *Config) Validate() error {
	var errs []error
	missing := func(key string) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingConfig, key))
	}

	if c.Provider.APIKey == "" {
		missing("provider.api_key (QUARTR_API_KEY)")
	}
	if c.Provider.BaseURL == "" {
		missing("provider.base_url")
	}
	if c.LLM.APIKey == "" {
		missing("llm.api_key (GEMINI_API_KEY)")
	}
	if c.Storage.Bucket == "" {
		missing("storage.bucket (S3_BUCKET_NAME)")
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.File.BasePath == "" {
			missing("storage.file.base_path")
		}
	case "memory":
	case "s3":
		if c.Storage.AccessKey == "" {
			missing("storage.access_key (AWS_ACCESS_KEY_ID)")
		}
		if c.Storage.SecretKey == "" {
			missing("storage.secret_key (AWS_SECRET_ACCESS_KEY)")
		}
		if c.Storage.Region == "" && c.Storage.Endpoint == "" {
			missing("storage.region (AWS_DEFAULT_REGION)")
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Universe.DBPath == "" {
		missing("universe.db_path")
	}

	return errors.Join(errs...)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
