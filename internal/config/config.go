// Package config loads the service configuration from an optional TOML
// file and environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Cache     CacheConfig     `toml:"cache"`
	Scrape    ScrapeConfig    `toml:"scrape"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
}

type ServerConfig struct {
	Host         string        `toml:"host"`
	Port         int           `toml:"port"`
	StaticDir    string        `toml:"static_dir"`
	CORSOrigins  []string      `toml:"cors_origins"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

type CacheConfig struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	DBPath  string        `toml:"db_path"`
	TTL     time.Duration `toml:"ttl"`
}

type ScrapeConfig struct {
	Pages          int           `toml:"pages"`
	PageDelay      time.Duration `toml:"page_delay"`
	DetailLimit    int           `toml:"detail_limit"`
	DetailDelay    time.Duration `toml:"detail_delay"`
	Timeout        time.Duration `toml:"timeout"`
	MaxConcurrency int64         `toml:"max_concurrency"`
	RetryMax       int           `toml:"retry_max"`
	ProxyURL       string        `toml:"proxy_url"`
	AllowedHosts   []string      `toml:"allowed_hosts"`
}

type OllamaConfig struct {
	URL     string        `toml:"url"`
	Model   string        `toml:"model"`
	Timeout time.Duration `toml:"timeout"`
}

type SchedulerConfig struct {
	// RefreshCron is a standard cron expression. Empty disables the scheduler.
	RefreshCron string `toml:"refresh_cron"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			CORSOrigins:  []string{"*"},
			WriteTimeout: 10 * time.Minute,
		},
		Cache: CacheConfig{
			Backend: BackendFile,
			Dir:     "cache",
			DBPath:  "data/catalog.db",
			TTL:     7 * 24 * time.Hour,
		},
		Scrape: ScrapeConfig{
			Pages:          25,
			PageDelay:      3 * time.Second,
			DetailLimit:    50,
			DetailDelay:    time.Second,
			Timeout:        20 * time.Second,
			MaxConcurrency: 1,
			RetryMax:       2,
			AllowedHosts:   []string{"www.themoviedb.org"},
		},
		Ollama: OllamaConfig{
			URL:     "http://127.0.0.1:11434",
			Model:   "llama3.2",
			Timeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load starts from Default, overlays the TOML file at path when path is
// not empty, then the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if _, err := toml.Decode(substituteEnvVars(string(data)), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match
	})
}
