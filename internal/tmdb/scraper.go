// Package tmdb scrapes listing and detail pages of www.themoviedb.org.
//
// Fetching and parsing are split: ScrapeListing and FetchDetails do the
// network work, ParseListing and ExtractDetails only read a goquery
// document and never fail.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/handsomefox/title-catalog/internal/catalog"
	"github.com/handsomefox/title-catalog/internal/httpx"
	"github.com/handsomefox/title-catalog/internal/logger"
)

const (
	SiteRoot = "https://www.themoviedb.org"
	Language = "fr-FR"

	DefaultPages     = 25
	DefaultPageDelay = 3 * time.Second

	maxPageBytes = 8 << 20
)

type Options struct {
	// Client is used for every request. Nil builds one with httpx defaults
	// restricted to AllowedHosts.
	Client *http.Client

	// SiteRoot prefixes relative card links and derives the listing sources.
	SiteRoot string

	AllowedHosts []string
	Pages        int
	PageDelay    time.Duration
}

type Scraper struct {
	client  *http.Client
	root    string
	allowed httpx.AllowList
	sources map[catalog.Type]string
	pages   int
	pacer   *httpx.Pacer
}

func New(opts Options) (*Scraper, error) {
	root := strings.TrimRight(strings.TrimSpace(opts.SiteRoot), "/")
	if root == "" {
		root = SiteRoot
	}
	hosts := opts.AllowedHosts
	if len(hosts) == 0 {
		hosts = []string{"www.themoviedb.org"}
	}
	pages := opts.Pages
	if pages <= 0 {
		pages = DefaultPages
	}

	client := opts.Client
	if client == nil {
		c, err := httpx.NewClient(httpx.Options{AllowedHosts: hosts, RetryMax: -1})
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &Scraper{
		client:  client,
		root:    root,
		allowed: httpx.NewAllowList(hosts...),
		sources: map[catalog.Type]string{
			catalog.Movie:  root + "/movie",
			catalog.Series: root + "/tv",
		},
		pages: pages,
		pacer: httpx.NewPacer(opts.PageDelay),
	}, nil
}

// Source returns the listing URL for t.
func (s *Scraper) Source(t catalog.Type) (string, error) {
	src, ok := s.sources[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", catalog.ErrUnsupportedType, t)
	}
	return src, nil
}

// ScrapeListing walks the listing pages of t one after the other.
//
// When a page fails after at least one page went through, the items
// collected so far are returned together with the error so the caller can
// decide whether a truncated listing is good enough.
func (s *Scraper) ScrapeListing(ctx context.Context, t catalog.Type) ([]catalog.TitleItem, error) {
	src, err := s.Source(t)
	if err != nil {
		return nil, err
	}
	if err := s.allowed.Check(src); err != nil {
		return nil, err
	}

	items := []catalog.TitleItem{}
	for page := 1; page <= s.pages; page++ {
		if err := s.pacer.Wait(ctx); err != nil {
			return items, err
		}

		pageURL := fmt.Sprintf("%s?language=%s&page=%d", src, Language, page)
		doc, err := s.fetch(ctx, pageURL)
		s.pacer.Done()
		if err != nil {
			return items, fmt.Errorf("listing page %d/%d: %w", page, s.pages, err)
		}

		found := ParseListing(doc, s.root, len(items))
		items = append(items, found...)
		slog.Debug("scraped listing page",
			slog.String("type", string(t)),
			slog.Int("page", page),
			slog.Int("items", len(found)),
		)
	}

	slog.Info("scraped listing", slog.String("type", string(t)), slog.Int("items", len(items)))
	return items, nil
}

// FetchDetails loads one detail page. The French locale is requested when
// the URL does not already pick a language, and the page is read as a
// series when its path goes through /tv/.
func (s *Scraper) FetchDetails(ctx context.Context, detailURL string) (catalog.Details, error) {
	if err := s.allowed.Check(detailURL); err != nil {
		return catalog.Details{}, err
	}

	full := withLanguage(detailURL)
	doc, err := s.fetch(ctx, full)
	if err != nil {
		return catalog.Details{}, err
	}
	return ExtractDetails(doc, IsSeriesURL(full)), nil
}

func IsSeriesURL(u string) bool { return strings.Contains(u, "/tv/") }

func withLanguage(u string) string {
	switch {
	case !strings.Contains(u, "?"):
		return u + "?language=" + Language
	case !strings.Contains(u, "language="):
		return u + "&language=" + Language
	}
	return u
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.6")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, catalog.ErrDomainNotAllowed) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("close response body failed", logger.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	return doc, nil
}
