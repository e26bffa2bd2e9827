package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/handsomefox/title-catalog/internal/config"
	"github.com/handsomefox/title-catalog/internal/enrich"
	"github.com/handsomefox/title-catalog/internal/httpx"
	"github.com/handsomefox/title-catalog/internal/logger"
	"github.com/handsomefox/title-catalog/internal/store"
	"github.com/handsomefox/title-catalog/internal/tmdb"
)

const serviceCloseTimeout = 30 * time.Second

func openStore(c *config.Config) (store.Store, error) {
	switch c.Cache.Backend {
	case config.BackendSQLite:
		st, err := store.OpenSQL(c.Cache.DBPath, c.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		return st, nil
	default:
		st, err := store.NewFileStore(afero.NewOsFs(), c.Cache.Dir, c.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache dir: %w", err)
		}
		return st, nil
	}
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("Failed to close cache", logger.Error(err))
	}
}

// closeService waits a bounded time for in-flight scrapes to write what
// they have. It must run before the store is closed.
func closeService(svc *enrich.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), serviceCloseTimeout)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		slog.Error("Failed to close catalog service", logger.Error(err))
	}
}

func newScraper(c *config.Config) (*tmdb.Scraper, error) {
	client, err := httpx.NewClient(httpx.Options{
		Timeout:      c.Scrape.Timeout,
		ProxyURL:     c.Scrape.ProxyURL,
		AllowedHosts: c.Scrape.AllowedHosts,
		RetryMax:     c.Scrape.RetryMax,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build http client: %w", err)
	}
	return tmdb.New(tmdb.Options{
		Client:       client,
		AllowedHosts: c.Scrape.AllowedHosts,
		Pages:        c.Scrape.Pages,
		PageDelay:    c.Scrape.PageDelay,
	})
}

func newService(c *config.Config, st store.Store) (*enrich.Service, error) {
	sc, err := newScraper(c)
	if err != nil {
		return nil, err
	}
	return enrich.New(st, sc, enrich.Options{
		DetailLimit:    c.Scrape.DetailLimit,
		DetailDelay:    c.Scrape.DetailDelay,
		MaxConcurrency: c.Scrape.MaxConcurrency,
	}), nil
}
