// Package scheduler re-scrapes every catalog type on a cron schedule so
// API requests keep hitting a warm cache.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/handsomefox/title-catalog/internal/catalog"
	"github.com/handsomefox/title-catalog/internal/enrich"
	"github.com/handsomefox/title-catalog/internal/logger"
)

type Refresher interface {
	Refresh(ctx context.Context, t catalog.Type) (enrich.Result, error)
}

type Scheduler struct {
	cron *cron.Cron
	r    Refresher

	mu  sync.Mutex
	ctx context.Context
}

// New validates spec (standard five fields or a descriptor such as
// "@every 12h") and registers the refresh job. It does not start it.
func New(spec string, r Refresher) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty refresh schedule")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}

	l := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		r:   r,
		ctx: context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the schedule in the background. Jobs see ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop prevents new runs and waits for a running one, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.RunOnce(ctx); err != nil {
		slog.Warn("scheduled refresh failed", logger.Error(err))
	}
}

// RunOnce refreshes every type one after the other. A failing type does
// not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, t := range catalog.Types() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.r.Refresh(ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", t, err))
			continue
		}
		slog.Info("scheduled refresh done", slog.String("type", string(t)), slog.Int("items", res.Total))
	}
	return errors.Join(errs...)
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{logger.Error(err)}, keysAndValues...)...)
}
