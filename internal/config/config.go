// Package config loads the application configuration: defaults, optional
// YAML file, then environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"quartermaster/internal/llm"
	"quartermaster/internal/logging"
	"quartermaster/internal/observability"
	"quartermaster/internal/session"
)

// Config is the full application configuration.
type Config struct {
	CatalogPath   string               `yaml:"catalog_path"`
	LLM           LLMConfig            `yaml:"llm"`
	Server        ServerConfig         `yaml:"server"`
	Sessions      SessionsConfig       `yaml:"sessions"`
	Tools         ToolsConfig          `yaml:"tools"`
	Observability observability.Config `yaml:"observability"`
}

// LLMConfig configures the justification provider.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Settings maps the LLM section onto the client factory settings.
func (c LLMConfig) Settings(logger logging.Logger, onUsage func(inputTokens, outputTokens int)) llm.Settings {
	return llm.Settings{
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		Timeout:    time.Duration(c.TimeoutSeconds) * time.Second,
		MaxRetries: c.MaxRetries,
		OnUsage:    onUsage,
		Logger:     logger,
	}
}

// ServerConfig configures the REST listener.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionsConfig configures session persistence.
type SessionsConfig struct {
	Dir string `yaml:"dir"`
}

// ToolsConfig configures the tool result cache.
type ToolsConfig struct {
	CacheSize       int `yaml:"cache_size"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		CatalogPath: "catalog.json",
		LLM: LLMConfig{
			Provider:       llm.ProviderMock,
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-3.5-turbo",
			MaxTokens:      150,
			TimeoutSeconds: 60,
			MaxRetries:     3,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			AllowOrigins: []string{"*"},
		},
		Sessions: SessionsConfig{
			Dir: session.DefaultDir,
		},
		Tools: ToolsConfig{
			CacheSize:       128,
			CacheTTLSeconds: 300,
		},
		Observability: observability.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the YAML file at path when it
// exists, and environment overrides. A missing file is not an error; an
// unreadable or malformed one is.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// defaults only
		default:
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnv(&config)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("QUARTERMASTER_CATALOG"); v != "" {
		config.CatalogPath = v
	}
	if v := os.Getenv("QUARTERMASTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("QUARTERMASTER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("QUARTERMASTER_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("QUARTERMASTER_SESSIONS_DIR"); v != "" {
		config.Sessions.Dir = v
	}
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog_path must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.LLM.Provider {
	case llm.ProviderMock, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if c.Tools.CacheSize <= 0 {
		return fmt.Errorf("tools cache_size must be positive")
	}
	return nil
}
