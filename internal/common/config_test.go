package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"HTTP_ADDR", "GRPC_ADDR", "HTTP_BODY_LIMIT", "LLM_PROVIDER",
	"GEMINI_API_KEY", "API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
	"LLM_TEMPERATURE", "LLM_TIMEOUT", "LLM_STRICT_SCHEMA",
	"MAX_FILE_MB", "BATCH_MAX_CONCURRENCY", "SESSION_MAX_AGE", "SESSION_CLEANUP_INTERVAL",
	"REPORTS_CONFIG",
}

// cleanEnv unsets every config key for the test and moves into an empty directory.
func cleanEnv(t *testing.T) string {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	cleanEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, int64(20*1024*1024), cfg.Batch.MaxFileBytes())
	assert.Equal(t, 0, cfg.Batch.MaxConcurrency)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("LLM_TEMPERATURE", "0.3")
	t.Setenv("LLM_STRICT_SCHEMA", "true")
	t.Setenv("BATCH_MAX_CONCURRENCY", "4")
	t.Setenv("SESSION_MAX_AGE", "1h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "o-key", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-test", cfg.LLM.Model)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-6)
	assert.True(t, cfg.LLM.StrictSchema)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrency)
	assert.Equal(t, time.Hour, cfg.Session.MaxAge)
}

func TestLoadConfig_YAMLFileThenEnv(t *testing.T) {
	dir := cleanEnv(t)
	path := filepath.Join(dir, "reports.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9000"
llm:
  provider: gemini
  api_key: from-file
  model: gemini-2.5-pro
batch:
  max_file_mb: 5
`), 0o600))
	t.Setenv("REPORTS_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":9100")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.HTTPAddr)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Batch.MaxFileMB)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddr)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := cleanEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "APIKey")

	cfg.LLM.APIKey = "k"
	cfg.LLM.Provider = "other"
	assert.ErrorContains(t, cfg.Validate(), "Provider")

	cfg.LLM.Provider = "gemini"
	cfg.LLM.Temperature = 3
	assert.Error(t, cfg.Validate())
}
