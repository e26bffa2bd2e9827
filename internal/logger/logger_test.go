package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/title-catalog/internal/env"
)

func TestNewHandler_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, env.Production, slog.LevelInfo))
	l.Info("catalog refreshed", slog.String("type", "movie"), Error(errors.New("boom")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "catalog refreshed", rec["msg"])
	assert.Equal(t, "movie", rec["type"])
	assert.Equal(t, "boom", rec["err"])
	assert.Contains(t, rec, "source")
}

func TestNewHandler_LocalIsTextAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, env.Local, slog.LevelWarn))
	l.Info("hidden")
	l.Warn("shown", Error(nil))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "err=nil")
}

func TestNew_TeesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "catalog.log")
	l, closer := New(Options{Level: slog.LevelDebug, File: path, MaxSizeMB: 1})
	l.Debug("written to file")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "written to file")
}
