package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/handsomefox/title-catalog/internal/catalog"

	_ "modernc.org/sqlite"
)

// SQLStore keeps cache entries in a single sqlite table.
type SQLStore struct {
	sqldb *sql.DB
	db    *bun.DB
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	bun.BaseModel `bun:"table:cache_entries,alias:ce"`

	Key   string  `bun:"key,pk"`
	TS    float64 `bun:"ts,notnull"`
	Value string  `bun:"value,notnull"`
}

func OpenSQL(dbPath string, ttl time.Duration, opts ...Option) (*SQLStore, error) {
	if dbPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := sqldb.PingContext(ctx); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("ping db: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if err := initSchema(ctx, sqldb); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	o := buildOptions(opts)
	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	return &SQLStore{sqldb: sqldb, db: bdb, ttl: ttl, now: o.now}, nil
}

func (s *SQLStore) Close() error { return s.sqldb.Close() }

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	ts REAL NOT NULL,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_ts ON cache_entries(ts);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *SQLStore) Read(ctx context.Context, key string) ([]catalog.TitleItem, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	var e cacheEntry
	err := s.db.NewSelect().
		Model(&e).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if expired(e.TS, s.now(), s.ttl) {
		return nil, false, nil
	}

	items := []catalog.TitleItem{}
	if err := json.Unmarshal([]byte(e.Value), &items); err != nil {
		return nil, false, fmt.Errorf("decode cache %s: %w", key, err)
	}
	return items, true, nil
}

func (s *SQLStore) Write(ctx context.Context, key string, items []catalog.TitleItem) error {
	if err := checkKey(key); err != nil {
		return err
	}
	value, err := encodeItems(items)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	e := cacheEntry{Key: key, TS: epochSeconds(s.now()), Value: string(value)}
	_, err = s.db.NewInsert().
		Model(&e).
		On("CONFLICT (key) DO UPDATE").
		Set("ts = EXCLUDED.ts").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (s *SQLStore) Invalidate(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Table("cache_entries").
		Where("key = ?", key).
		Exec(ctx)
	return err
}

func (s *SQLStore) Prune(ctx context.Context) (int64, error) {
	cutoff := epochSeconds(s.now()) - s.ttl.Seconds()
	res, err := s.db.NewDelete().
		Table("cache_entries").
		Where("ts < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
