// Package store persists scraped title lists with a time-to-live.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/handsomefox/title-catalog/internal/catalog"
)

// Store is the cache contract shared by the file and sqlite backends.
// Read reports ok=false when the key is absent or older than the TTL.
// Write replaces the whole entry for a key.
type Store interface {
	Read(ctx context.Context, key string) (items []catalog.TitleItem, ok bool, err error)
	Write(ctx context.Context, key string, items []catalog.TitleItem) error
	Invalidate(ctx context.Context, key string) error
	Prune(ctx context.Context) (int64, error)
	Close() error
}

// Entry is the persisted shape: {"ts": <epoch seconds>, "value": [...]}.
type Entry struct {
	TS    float64             `json:"ts"`
	Value []catalog.TitleItem `json:"value"`
}

type Option func(*options)

type options struct {
	now func() time.Time
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var keyRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func checkKey(key string) error {
	if !keyRE.MatchString(key) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func expired(ts float64, now time.Time, ttl time.Duration) bool {
	return epochSeconds(now)-ts > ttl.Seconds()
}

func encodeItems(items []catalog.TitleItem) ([]byte, error) {
	if items == nil {
		items = []catalog.TitleItem{}
	}
	return json.Marshal(items)
}
