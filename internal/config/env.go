package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := parseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	list := func(key string, dst *[]string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		var out []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}

	num("PORT", &cfg.Server.Port)
	str("STATIC_DIR", &cfg.Server.StaticDir)
	list("CORS_ORIGINS", &cfg.Server.CORSOrigins)

	str("CACHE_BACKEND", &cfg.Cache.Backend)
	str("CACHE_DIR", &cfg.Cache.Dir)
	str("DB_PATH", &cfg.Cache.DBPath)
	dur("CACHE_TTL", &cfg.Cache.TTL)

	num("SCRAPE_PAGES", &cfg.Scrape.Pages)
	num("SCRAPE_DETAIL_LIMIT", &cfg.Scrape.DetailLimit)
	str("SCRAPE_PROXY_URL", &cfg.Scrape.ProxyURL)

	str("OLLAMA_URL", &cfg.Ollama.URL)
	str("OLLAMA_MODEL", &cfg.Ollama.Model)

	str("REFRESH_CRON", &cfg.Scheduler.RefreshCron)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)

	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("168h") and bare seconds ("604800").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
