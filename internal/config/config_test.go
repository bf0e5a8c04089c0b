package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `{
	"port": 8080,
	"jwt_secret": "secret",
	"database": {"host": "localhost"},
	"ai": {
		"providers": [{"name": "main", "type": "gemini", "data": {"api_key": "k"}}],
		"generator": [{"provider": "main", "model": "gemini-2.0-flash"}],
		"embedder": [{"provider": "main", "model": "gemini-embedding-001"}]
	}
}`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, 5, cfg.Assistant.DefaultMaxSources)
	require.Equal(t, 10, cfg.Assistant.MaxSourcesLimit)
	require.InDelta(t, 0.55, cfg.Assistant.MinScore, 1e-6)
	require.Equal(t, "Spanish", cfg.Assistant.Language)
	require.Equal(t, 10, cfg.Assistant.QuestionMinChars)
	require.Equal(t, 1000, cfg.Assistant.QuestionMaxChars)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "*/5 * * * *", cfg.Jobs.IndexSpec)
	require.Equal(t, 2, cfg.RateLimitWindow)
}

func assistantConfig(assistant string) string {
	return `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"dsn": "postgres://"},
		"ai": {"generator": [{"provider": "a", "model": "m"}], "embedder": [{"provider": "a", "model": "e"}]},
		"assistant": ` + assistant + `
	}`
}

func TestLoadRejectsBoundsOutsideBoundary(t *testing.T) {
	for _, assistant := range []string{
		`{"max_sources_limit": 15}`,
		`{"max_sources_limit": -1}`,
		`{"default_max_sources": -2}`,
		`{"question_min_chars": 3}`,
		`{"question_max_chars": 5000}`,
		`{"question_min_chars": 500, "question_max_chars": 100}`,
		`{"min_score": 1.5}`,
	} {
		_, err := Load(writeConfig(t, assistantConfig(assistant)))
		require.Error(t, err, assistant)
	}
}

func TestLoadAcceptsNarrowedBounds(t *testing.T) {
	cfg, err := Load(writeConfig(t, assistantConfig(`{"max_sources_limit": 3, "default_max_sources": 2, "question_min_chars": 20, "question_max_chars": 400}`)))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Assistant.MaxSourcesLimit)
	require.Equal(t, 20, cfg.Assistant.QuestionMinChars)
}

func TestLoadHonorsExplicitZeroMinScore(t *testing.T) {
	cfg, err := Load(writeConfig(t, assistantConfig(`{"min_score": 0}`)))
	require.NoError(t, err)
	require.Zero(t, cfg.Assistant.MinScore)
}

func TestLoadRateLimitWindowCanBeDisabled(t *testing.T) {
	body := strings.Replace(minimalConfig, `"port": 8080,`, `"port": 8080, "rate_limit_window": -1,`, 1)
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	require.Equal(t, -1, cfg.RateLimitWindow)
}

func TestLoadRejectsMissingGenerator(t *testing.T) {
	_, err := Load(writeConfig(t, `{"port": 1, "jwt_secret": "s", "database": {"dsn": "x"}}`))
	require.Error(t, err)
}

func TestLoadRejectsDefaultAboveLimit(t *testing.T) {
	body := `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"dsn": "postgres://"},
		"ai": {"generator": [{"provider": "a", "model": "m"}], "embedder": [{"provider": "a", "model": "e"}]},
		"assistant": {"default_max_sources": 8, "max_sources_limit": 4}
	}`
	_, err := Load(writeConfig(t, body))
	require.Error(t, err)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("LEXASSIST_JWT_SECRET", "from-env")
	t.Setenv("LEXASSIST_AI_MAIN_API_KEY", "env-key")
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.JWTSecret)
	data, ok := cfg.AI.Providers[0].Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "env-key", data["api_key"])
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEXASSIST_TEST_ENV_FILE=loaded\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("LEXASSIST_TEST_ENV_FILE") })
	require.NoError(t, LoadEnvFile(path))
	require.Equal(t, "loaded", os.Getenv("LEXASSIST_TEST_ENV_FILE"))
	require.NoError(t, LoadEnvFile(""))
}
