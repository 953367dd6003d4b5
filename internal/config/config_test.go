package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	config := Default()

	assert.Equal(t, "catalog.json", config.CatalogPath)
	assert.Equal(t, "mock", config.LLM.Provider)
	assert.Equal(t, "gpt-3.5-turbo", config.LLM.Model)
	assert.Equal(t, 8000, config.Server.Port)
	assert.Equal(t, []string{"*"}, config.Server.AllowOrigins)
	assert.Equal(t, 128, config.Tools.CacheSize)
	assert.Equal(t, "info", config.Observability.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, config.Server.Port)
}

func TestLoadMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quartermaster.yaml")
	content := `
catalog_path: fixtures/catalog.json
llm:
  provider: openai
  api_key: sk-test
server:
  port: 9001
  allow_origins: ["https://ops.example.com"]
observability:
  logging:
    level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fixtures/catalog.json", config.CatalogPath)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, 9001, config.Server.Port)
	assert.Equal(t, []string{"https://ops.example.com"}, config.Server.AllowOrigins)
	assert.Equal(t, "debug", config.Observability.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 150, config.LLM.MaxTokens)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUARTERMASTER_CATALOG", "/srv/catalog.json")
	t.Setenv("QUARTERMASTER_PORT", "7070")
	t.Setenv("QUARTERMASTER_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/catalog.json", config.CatalogPath)
	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "sk-env", config.LLM.APIKey)
}

func TestLoadEnvDoesNotClobberFileAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: sk-file\n"), 0o644))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", config.LLM.APIKey)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLLMSettings(t *testing.T) {
	cfg := LLMConfig{
		BaseURL:        "https://llm.internal/v1",
		Model:          "gpt-4",
		TimeoutSeconds: 9,
		MaxRetries:     5,
	}

	var gotIn, gotOut int
	onUsage := func(in, out int) { gotIn, gotOut = in, out }
	settings := cfg.Settings(nil, onUsage)

	assert.Equal(t, "https://llm.internal/v1", settings.BaseURL)
	assert.Equal(t, "gpt-4", settings.Model)
	assert.Equal(t, 9*time.Second, settings.Timeout)
	assert.Equal(t, 5, settings.MaxRetries)
	require.NotNil(t, settings.OnUsage)
	settings.OnUsage(42, 12)
	assert.Equal(t, 42, gotIn)
	assert.Equal(t, 12, gotOut)
}

func TestValidate(t *testing.T) {
	bad := Default()
	bad.Server.Port = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.LLM.Provider = "carrier-pigeon"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.CatalogPath = ""
	assert.Error(t, bad.Validate())

	assert.NoError(t, Default().Validate())
}
