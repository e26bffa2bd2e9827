package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/title-catalog/internal/catalog"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse(r *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
		Request:    r,
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{RetryMax: -1})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.Timeout)

	tr, ok := c.Transport.(*Transport)
	require.True(t, ok, "got %T", c.Transport)
	assert.Equal(t, DefaultRetryMax, tr.RetryMax)
	assert.Nil(t, tr.Allowed)

	base, ok := tr.Base.(*http.Transport)
	require.True(t, ok)
	assert.Nil(t, base.Proxy)
}

func TestNewClient_Proxy(t *testing.T) {
	c, err := NewClient(Options{ProxyURL: "http://127.0.0.1:8080"})
	require.NoError(t, err)
	base := c.Transport.(*Transport).Base.(*http.Transport)
	assert.NotNil(t, base.Proxy)

	_, err = NewClient(Options{ProxyURL: "http://[::1"})
	assert.Error(t, err)
}

func TestAllowList(t *testing.T) {
	l := NewAllowList("WWW.TheMovieDB.org", " ")

	u, _ := url.Parse("https://www.themoviedb.org/movie?page=1")
	assert.True(t, l.Allows(u))

	u, _ = url.Parse("https://themoviedb.org/movie")
	assert.False(t, l.Allows(u))

	assert.NoError(t, l.Check("https://www.themoviedb.org:443/tv"))
	err := l.Check("https://evil.example.com/")
	assert.ErrorIs(t, err, catalog.ErrDomainNotAllowed)

	var open AllowList
	assert.True(t, open.Allows(u))
}

func TestTransport_BlocksDisallowedHost(t *testing.T) {
	var calls atomic.Int32
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls.Add(1)
			return okResponse(r), nil
		}),
		Allowed: NewAllowList("www.themoviedb.org"),
	}
	c := &http.Client{Transport: tr}

	_, err := c.Get("https://example.com/")
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrDomainNotAllowed)
	assert.Zero(t, calls.Load())
}

func TestTransport_BlocksRedirectToDisallowedHost(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "should not be reached")
	}))
	defer target.Close()

	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// localhost and 127.0.0.1 are different host names for the allow-list.
		to := strings.Replace(target.URL, "127.0.0.1", "localhost", 1)
		http.Redirect(w, r, to, http.StatusFound)
	}))
	defer src.Close()

	c, err := NewClient(Options{AllowedHosts: []string{"127.0.0.1"}, RetryMax: 0})
	require.NoError(t, err)

	_, err = c.Get(src.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrDomainNotAllowed)
}

func TestTransport_SetsUserAgent(t *testing.T) {
	var got string
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			got = r.Header.Get("User-Agent")
			return okResponse(r), nil
		}),
		ua: globalUA,
	}
	req, _ := http.NewRequest(http.MethodGet, "https://www.themoviedb.org/", nil)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Contains(t, got, "Mozilla/5.0")
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request must not be modified")
}

func TestTransport_RetriesNetworkErrors(t *testing.T) {
	var calls atomic.Int32
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("connection reset")
			}
			return okResponse(r), nil
		}),
		RetryMax: 2,
	}
	req, _ := http.NewRequest(http.MethodGet, "https://www.themoviedb.org/", nil)
	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransport_GivesUpAfterRetryMax(t *testing.T) {
	var calls atomic.Int32
	tr := &Transport{
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		}),
		RetryMax: 1,
	}
	req, _ := http.NewRequest(http.MethodGet, "https://www.themoviedb.org/", nil)
	_, err := tr.RoundTrip(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, int32(2), calls.Load())
}

func TestTransport_DoesNotRetryRequestsWithBody(t *testing.T) {
	var calls atomic.Int32
	tr := &Transport{
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("boom")
		}),
		RetryMax: 3,
	}
	req, _ := http.NewRequest(http.MethodPost, "https://www.themoviedb.org/", strings.NewReader("{}"))
	_, err := tr.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPacer_ZeroIntervalNeverBlocks(t *testing.T) {
	p := NewPacer(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	for range 50 {
		require.NoError(t, p.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_SpacesCalls(t *testing.T) {
	p := NewPacer(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.Less(t, time.Since(start), 20*time.Millisecond, "first wait is free")

	require.NoError(t, p.Wait(ctx))
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestPacer_HonoursCancellation(t *testing.T) {
	p := NewPacer(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Wait(ctx))
}

func TestPacer_DoneRestartsInterval(t *testing.T) {
	p := NewPacer(60 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx))
	// A request slower than the interval must not use it up.
	time.Sleep(80 * time.Millisecond)
	p.Done()

	finished := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(finished), 55*time.Millisecond)
}

func TestPacer_DoneWithoutIntervalIsNoop(t *testing.T) {
	p := NewPacer(0)
	p.Done()

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}
