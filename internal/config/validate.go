package config

import (
	"errors"
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, errors.New("server.write_timeout: must not be negative"))
	}

	switch c.Cache.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Cache.Dir) == "" {
			errs = append(errs, errors.New("cache.dir: required for the file backend"))
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Cache.DBPath) == "" {
			errs = append(errs, errors.New("cache.db_path: required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend: must be one of file, sqlite; got %q", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl: must be positive, got %s", c.Cache.TTL))
	}

	if c.Scrape.Pages < 1 {
		errs = append(errs, fmt.Errorf("scrape.pages: must be at least 1, got %d", c.Scrape.Pages))
	}
	if c.Scrape.DetailLimit < 0 {
		errs = append(errs, fmt.Errorf("scrape.detail_limit: must not be negative, got %d", c.Scrape.DetailLimit))
	}
	if c.Scrape.PageDelay < 0 || c.Scrape.DetailDelay < 0 {
		errs = append(errs, errors.New("scrape delays must not be negative"))
	}
	if c.Scrape.Timeout <= 0 {
		errs = append(errs, errors.New("scrape.timeout: must be positive"))
	}
	if c.Scrape.MaxConcurrency < 1 {
		errs = append(errs, errors.New("scrape.max_concurrency: must be at least 1"))
	}
	if c.Scrape.RetryMax < 0 {
		errs = append(errs, errors.New("scrape.retry_max: must not be negative"))
	}
	if len(c.Scrape.AllowedHosts) == 0 {
		errs = append(errs, errors.New("scrape.allowed_hosts: at least one host is required"))
	}

	if c.Ollama.Timeout <= 0 {
		errs = append(errs, errors.New("ollama.timeout: must be positive"))
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
