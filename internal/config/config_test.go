package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "STATIC_DIR", "CORS_ORIGINS", "CACHE_BACKEND", "CACHE_DIR", "DB_PATH", "CACHE_TTL",
	"SCRAPE_PAGES", "SCRAPE_DETAIL_LIMIT", "SCRAPE_PROXY_URL", "OLLAMA_URL", "OLLAMA_MODEL",
	"REFRESH_CRON", "LOG_LEVEL", "LOG_FILE",
}

// clearEnv blanks every variable applyEnv reads; empty values are ignored.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 25, cfg.Scrape.Pages)
	assert.Equal(t, 3*time.Second, cfg.Scrape.PageDelay)
	assert.Equal(t, 50, cfg.Scrape.DetailLimit)
	assert.Equal(t, time.Second, cfg.Scrape.DetailDelay)
	assert.Equal(t, 20*time.Second, cfg.Scrape.Timeout)
	assert.Equal(t, []string{"www.themoviedb.org"}, cfg.Scrape.AllowedHosts)
	assert.Equal(t, 60*time.Second, cfg.Ollama.Timeout)
	assert.Empty(t, cfg.Scheduler.RefreshCron)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
port = 9090
cors_origins = ["http://localhost:5173"]

[cache]
backend = "sqlite"
db_path = "/tmp/catalog.db"
ttl = "1h"

[scrape]
pages = 2
detail_limit = 0
page_delay = "500ms"

[scheduler]
refresh_cron = "0 4 * * *"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, BackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/catalog.db", cfg.Cache.DBPath)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.Scrape.Pages)
	assert.Equal(t, 0, cfg.Scrape.DetailLimit, "explicit zero is kept")
	assert.Equal(t, 500*time.Millisecond, cfg.Scrape.PageDelay)
	assert.Equal(t, time.Second, cfg.Scrape.DetailDelay, "unset keys keep their default")
	assert.Equal(t, "0 4 * * *", cfg.Scheduler.RefreshCron)
}

func TestLoad_SubstitutesEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_TEST_MODEL", "mistral")
	path := writeConfig(t, `
[ollama]
model = "${CATALOG_TEST_MODEL}"
url = "${CATALOG_TEST_UNSET_12345}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Ollama.Model)
	assert.Equal(t, "${CATALOG_TEST_UNSET_12345}", cfg.Ollama.URL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
port = 9090
[cache]
ttl = "1h"
`)
	t.Setenv("PORT", "7000")
	t.Setenv("CACHE_TTL", "3600")
	t.Setenv("CACHE_DIR", "/var/cache/catalog")
	t.Setenv("SCRAPE_PAGES", "3")
	t.Setenv("SCRAPE_DETAIL_LIMIT", "10")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("REFRESH_CRON", "@every 12h")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "/var/cache/catalog", cfg.Cache.Dir)
	assert.Equal(t, 3, cfg.Scrape.Pages)
	assert.Equal(t, 10, cfg.Scrape.DetailLimit)
	assert.Equal(t, "http://ollama:11434", cfg.Ollama.URL)
	assert.Equal(t, "@every 12h", cfg.Scheduler.RefreshCron)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
}

func TestLoad_BadEnvValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("CACHE_TTL", "a week")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "[server\nport = "))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Cache.Backend = "redis"
	cfg.Cache.TTL = 0
	cfg.Scrape.Pages = 0
	cfg.Scrape.DetailLimit = -1
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "cache.backend", "cache.ttl", "scrape.pages", "scrape.detail_limit", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}

	assert.NoError(t, Default().Validate())
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("604800")
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = parseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = parseDuration("soon")
	assert.Error(t, err)
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, ":8080", Default().Server.Addr())
}
