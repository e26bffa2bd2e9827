package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/handsomefox/title-catalog/internal/catalog"
)

// FileStore keeps one <key>.json file per entry under dir.
type FileStore struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewFileStore(fsys afero.Fs, dir string, ttl time.Duration, opts ...Option) (*FileStore, error) {
	if fsys == nil {
		return nil, errors.New("filesystem is required")
	}
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	dir = filepath.Clean(strings.TrimSpace(dir))
	if err := fsys.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	o := buildOptions(opts)
	return &FileStore{fs: fsys, dir: dir, ttl: ttl, now: o.now}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Read(_ context.Context, key string) ([]catalog.TitleItem, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	entry, ok, err := s.readEntry(s.path(key))
	if err != nil || !ok {
		return nil, false, err
	}
	if expired(entry.TS, s.now(), s.ttl) {
		return nil, false, nil
	}
	if entry.Value == nil {
		entry.Value = []catalog.TitleItem{}
	}
	return entry.Value, true, nil
}

func (s *FileStore) readEntry(path string) (Entry, bool, error) {
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read cache %s: %w", filepath.Base(path), err)
	}
	var entry Entry
	if err := json.Unmarshal(b, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache %s: %w", filepath.Base(path), err)
	}
	return entry, true, nil
}

func (s *FileStore) Write(_ context.Context, key string, items []catalog.TitleItem) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if items == nil {
		items = []catalog.TitleItem{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Entry{TS: epochSeconds(s.now()), Value: items}); err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		if rerr := s.fs.Remove(tmp); rerr != nil {
			return errors.Join(fmt.Errorf("replace cache: %w", err), rerr)
		}
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

func (s *FileStore) Invalidate(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prune removes entries that are past the TTL and reports how many went away.
func (s *FileStore) Prune(_ context.Context) (int64, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var removed int64
	for _, info := range infos {
		if info.IsDir() || filepath.Ext(info.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, info.Name())
		entry, ok, err := s.readEntry(path)
		if err != nil || !ok {
			continue
		}
		if !expired(entry.TS, now, s.ttl) {
			continue
		}
		if err := s.fs.Remove(path); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *FileStore) Close() error { return nil }
