package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DB_PATH", "HF_TOKEN", "HF_MODEL", "HF_BASE_URL", "GOOGLE_API_KEY",
		"GOOGLE_MODEL", "MAX_TOKENS", "TEMPERATURE", "CALL_TIMEOUT", "MAX_SESSIONS",
		"ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8100", cfg.Port)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, "Intelligent-Internet/II-Medical-8B-1706", cfg.Completion.Model)
	assert.Equal(t, 1000, cfg.Completion.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Completion.Temperature, 1e-9)
	assert.Zero(t, cfg.Completion.CallTimeout)
	assert.Empty(t, cfg.Completion.APIKey)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.Language.Model)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HF_TOKEN", " hf-secret ")
	t.Setenv("GOOGLE_API_KEY", "g-secret")
	t.Setenv("MAX_TOKENS", "512")
	t.Setenv("TEMPERATURE", "0.2")
	t.Setenv("CALL_TIMEOUT", "45s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hf-secret", cfg.Completion.APIKey)
	assert.Equal(t, "g-secret", cfg.Language.APIKey)
	assert.Equal(t, 512, cfg.Completion.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Completion.Temperature, 1e-9)
	assert.Equal(t, 45*time.Second, cfg.Completion.CallTimeout)
	assert.Equal(t, 45*time.Second, cfg.Language.CallTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MAX_SESSIONS", "0")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MAX_SESSIONS", "4")
	t.Setenv("TEMPERATURE", "3.5")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MEDICHAT_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("MEDICHAT_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("MEDICHAT_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("MEDICHAT_DOTENV_PROBE"))
}
