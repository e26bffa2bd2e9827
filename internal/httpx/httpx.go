// Package httpx builds the HTTP client used to talk to the scraped site:
// rotating User-Agent, bounded retry on network errors, a host allow-list
// checked on every hop (redirects included) and a total timeout.
package httpx

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/handsomefox/title-catalog/internal/catalog"
)

const (
	DefaultTimeout  = 20 * time.Second
	DefaultRetryMax = 2

	retryDelay = 250 * time.Millisecond
)

// AllowList is a set of lower-cased host names. A nil list allows any host.
type AllowList map[string]struct{}

func NewAllowList(hosts ...string) AllowList {
	l := make(AllowList, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			l[h] = struct{}{}
		}
	}
	return l
}

func (l AllowList) Allows(u *url.URL) bool {
	if l == nil {
		return true
	}
	if u == nil {
		return false
	}
	_, ok := l[strings.ToLower(u.Hostname())]
	return ok
}

// Check returns an error wrapping catalog.ErrDomainNotAllowed when raw
// does not parse or points at a host outside the list.
func (l AllowList) Check(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", catalog.ErrDomainNotAllowed, raw)
	}
	if !l.Allows(u) {
		return fmt.Errorf("%w: %s", catalog.ErrDomainNotAllowed, u.Hostname())
	}
	return nil
}

// Transport applies the UA pool, the allow-list and the retry policy on
// top of Base. Only GET/HEAD requests without a body are retried.
type Transport struct {
	Base http.RoundTripper

	ua *uaPool

	// RetryMax is the number of retries after the first attempt.
	RetryMax int

	Allowed AllowList
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}
	if !t.Allowed.Allows(req.URL) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrDomainNotAllowed, req.URL.Hostname())
	}

	retries := max(t.RetryMax, 0)
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	if !canRetry {
		retries = 0
	}

	return retry.DoWithData(
		func() (*http.Response, error) {
			r := req.Clone(req.Context())
			if r.Header.Get("User-Agent") == "" && t.ua != nil {
				r.Header.Set("User-Agent", t.ua.random())
			}
			return t.Base.RoundTrip(r)
		},
		retry.Attempts(uint(retries)+1),
		retry.Context(req.Context()),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

type Options struct {
	Timeout      time.Duration
	ProxyURL     string
	AllowedHosts []string
	RetryMax     int
}

// NewClient builds a client for page fetches. Zero Timeout and negative
// RetryMax fall back to the package defaults.
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   2,
	}

	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		base.Proxy = http.ProxyURL(u)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := opts.RetryMax
	if retries < 0 {
		retries = DefaultRetryMax
	}

	var allowed AllowList
	if len(opts.AllowedHosts) > 0 {
		allowed = NewAllowList(opts.AllowedHosts...)
	}

	return &http.Client{
		Transport: &Transport{
			Base:     base,
			ua:       globalUA,
			RetryMax: retries,
			Allowed:  allowed,
		},
		Timeout: timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:129.0) Gecko/20100101 Firefox/129.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
