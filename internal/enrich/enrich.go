// Package enrich combines the listing and detail scrapers into the cached
// title list served by the API.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/handsomefox/title-catalog/internal/catalog"
	"github.com/handsomefox/title-catalog/internal/httpx"
	"github.com/handsomefox/title-catalog/internal/logger"
	"github.com/handsomefox/title-catalog/internal/store"
)

const (
	DefaultDetailLimit    = 50
	DefaultDetailDelay    = time.Second
	DefaultMaxConcurrency = 1
)

// ErrClosed is returned for scrapes requested after Close.
var ErrClosed = errors.New("enrich: service closed")

// Scraper is the part of tmdb.Scraper the service needs.
type Scraper interface {
	ScrapeListing(ctx context.Context, t catalog.Type) ([]catalog.TitleItem, error)
	FetchDetails(ctx context.Context, detailURL string) (catalog.Details, error)
}

type Options struct {
	// DetailLimit is how many items from the head of the listing get a
	// detail fetch. Zero disables enrichment, negative uses the default.
	DetailLimit    int
	DetailDelay    time.Duration
	MaxConcurrency int64
}

type Result struct {
	Total int                 `json:"total"`
	Items []catalog.TitleItem `json:"items"`
}

type Service struct {
	store   store.Store
	scraper Scraper

	detailLimit int
	pacer       *httpx.Pacer
	sem         *semaphore.Weighted
	flights     singleflight.Group

	// Scrapes run on this context rather than the caller's so a caller
	// going away does not abort a batch other callers are waiting on.
	life   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	builds sync.WaitGroup
}

func New(st store.Store, sc Scraper, opts Options) *Service {
	limit := opts.DetailLimit
	if limit < 0 {
		limit = DefaultDetailLimit
	}
	maxConc := opts.MaxConcurrency
	if maxConc <= 0 {
		maxConc = DefaultMaxConcurrency
	}
	life, cancel := context.WithCancel(context.Background())
	return &Service{
		store:       st,
		scraper:     sc,
		detailLimit: limit,
		pacer:       httpx.NewPacer(opts.DetailDelay),
		sem:         semaphore.NewWeighted(maxConc),
		life:        life,
		cancel:      cancel,
	}
}

// Close stops in-flight scrapes and waits until whatever they enriched so
// far is written, or until ctx is done.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.builds.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for in-flight scrapes: %w", ctx.Err())
	}
}

// track registers a build with Close. It reports false once Close started.
func (s *Service) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.builds.Add(1)
	return true
}

// GetEnriched returns the cached list for t, scraping it first on a miss.
// Concurrent misses for the same type share one scrape.
func (s *Service) GetEnriched(ctx context.Context, t catalog.Type) (Result, error) {
	if !t.Valid() {
		return Result{}, fmt.Errorf("%w: %q", catalog.ErrUnsupportedType, t)
	}

	items, ok, err := s.store.Read(ctx, t.CacheKey())
	if err != nil {
		return Result{}, fmt.Errorf("read cache: %w", err)
	}
	if ok {
		return Result{Total: len(items), Items: items}, nil
	}

	ch := s.flights.DoChan(t.CacheKey(), func() (any, error) {
		if !s.track() {
			return nil, ErrClosed
		}
		defer s.builds.Done()
		return s.build(s.life, t)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		items := res.Val.([]catalog.TitleItem)
		return Result{Total: len(items), Items: items}, nil
	}
}

// Refresh drops the cached list for t and scrapes it again.
func (s *Service) Refresh(ctx context.Context, t catalog.Type) (Result, error) {
	if !t.Valid() {
		return Result{}, fmt.Errorf("%w: %q", catalog.ErrUnsupportedType, t)
	}
	if err := s.store.Invalidate(ctx, t.CacheKey()); err != nil {
		return Result{}, fmt.Errorf("invalidate cache: %w", err)
	}
	return s.GetEnriched(ctx, t)
}

// Find looks up one item of the enriched list by id.
func (s *Service) Find(ctx context.Context, t catalog.Type, id string) (catalog.TitleItem, bool, error) {
	res, err := s.GetEnriched(ctx, t)
	if err != nil {
		return catalog.TitleItem{}, false, err
	}
	i := slices.IndexFunc(res.Items, func(it catalog.TitleItem) bool { return it.ID == id })
	if i < 0 {
		return catalog.TitleItem{}, false, nil
	}
	return res.Items[i], true, nil
}

func (s *Service) build(ctx context.Context, t catalog.Type) ([]catalog.TitleItem, error) {
	key := t.CacheKey()

	// A flight that finished just before this one started already wrote the list.
	if items, ok, err := s.store.Read(ctx, key); err == nil && ok {
		return items, nil
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	started := time.Now()
	items, err := s.scraper.ScrapeListing(ctx, t)
	if err != nil {
		if len(items) == 0 || ctx.Err() != nil || !errors.Is(err, catalog.ErrUpstreamFetch) {
			return nil, fmt.Errorf("scrape %s listing: %w", t, err)
		}
		slog.Warn("listing truncated",
			slog.String("type", string(t)),
			slog.Int("items", len(items)),
			logger.Error(err),
		)
	}

	items, enrichErr := s.enrich(ctx, items)

	// Persist even when enrichment was cut short.
	wctx := context.WithoutCancel(ctx)
	if err := s.store.Write(wctx, key, items); err != nil {
		return nil, errors.Join(enrichErr, fmt.Errorf("write cache: %w", err))
	}
	if enrichErr != nil {
		return nil, enrichErr
	}

	slog.Info("catalog refreshed",
		slog.String("type", string(t)),
		slog.Int("items", len(items)),
		slog.Duration("took", time.Since(started)),
	)
	return items, nil
}

// enrich returns a new slice where the first detailLimit items carry
// their detail page fields. A failed detail fetch leaves the item as it
// was. Cancellation stops the loop and returns what was done so far.
func (s *Service) enrich(ctx context.Context, items []catalog.TitleItem) ([]catalog.TitleItem, error) {
	out := slices.Clone(items)
	n := min(s.detailLimit, len(out))

	for i := range n {
		it := out[i]
		if it.URL == "" {
			continue
		}
		if err := s.pacer.Wait(ctx); err != nil {
			return out, fmt.Errorf("enrich stopped at %d/%d: %w", i, n, err)
		}

		d, err := s.scraper.FetchDetails(ctx, it.URL)
		s.pacer.Done()
		if err != nil {
			if ctx.Err() != nil {
				return out, fmt.Errorf("enrich stopped at %d/%d: %w", i, n, ctx.Err())
			}
			slog.Warn("detail fetch failed",
				slog.String("url", it.URL),
				logger.Error(err),
			)
			continue
		}
		out[i] = it.Merge(d)
		slog.Debug("enriched", slog.Int("n", i+1), slog.Int("of", n), slog.String("title", it.Title))
	}
	return out, nil
}
