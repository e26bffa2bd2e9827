package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/handsomefox/title-catalog/internal/handlers"
	"github.com/handsomefox/title-catalog/internal/logger"
	"github.com/handsomefox/title-catalog/internal/ollama"
	"github.com/handsomefox/title-catalog/internal/scheduler"
	"github.com/handsomefox/title-catalog/internal/web"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API and the frontend.

Examples:
  catalog serve                 # listen on :8080
  catalog serve --warm          # also fill both caches in the background
  PORT=9000 catalog serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("warm", false, "fill the movie and series caches in the background at startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	warm, _ := cmd.Flags().GetBool("warm")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	svc, err := newService(cfg, st)
	if err != nil {
		return err
	}
	defer closeService(svc)

	app, err := handlers.New(&handlers.Config{
		Catalog: svc,
		Chat:    ollama.New(cfg.Ollama.URL, cfg.Ollama.Model, cfg.Ollama.Timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	static, err := frontend(cfg.Server.StaticDir)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: handlers.NewRouter(app, handlers.RouterOptions{
			Logger:      slog.Default(),
			CORSOrigins: cfg.Server.CORSOrigins,
			Static:      static,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	var sched *scheduler.Scheduler
	if spec := strings.TrimSpace(cfg.Scheduler.RefreshCron); spec != "" {
		if sched, err = scheduler.New(spec, svc); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if sched != nil {
		sched.Start(gctx)
		slog.Info("refresh scheduled", slog.Time("next", sched.Next()))
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return sched.Stop(stopCtx)
		})
	}

	if warm {
		g.Go(func() error {
			for _, err := range warmAll(gctx, svc, false) {
				slog.Warn("warm failed", logger.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}

// frontend serves dir when set and the embedded pages otherwise.
func frontend(dir string) (http.Handler, error) {
	if dir = strings.TrimSpace(dir); dir != "" {
		h, err := handlers.Frontend(os.DirFS(dir))
		if err != nil {
			return nil, fmt.Errorf("static dir %q: %w", dir, err)
		}
		return h, nil
	}
	dist, err := web.Dist()
	if err != nil {
		return nil, err
	}
	return handlers.Frontend(dist)
}
