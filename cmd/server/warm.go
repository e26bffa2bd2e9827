package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/handsomefox/title-catalog/internal/catalog"
	"github.com/handsomefox/title-catalog/internal/enrich"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Fill the catalog cache",
	Long: `Scrape and enrich the listings so the API answers from cache.

Fresh entries are left alone unless --force is given.

Examples:
  catalog warm                  # both movies and series
  catalog warm --type series
  catalog warm --force          # rescrape even if the cache is fresh`,
	Args: cobra.NoArgs,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)
	warmCmd.Flags().String("type", "", "movie or series (default both)")
	warmCmd.Flags().Bool("force", false, "ignore a fresh cache entry")
}

func runWarm(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	types, err := typesFlag(cmd)
	if err != nil {
		return err
	}

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

	failed := 0
	for _, t := range types {
		res, err := warmOne(ctx, svc, t, force)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", t, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items\n", t, res.Total)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d listings failed", failed, len(types))
	}
	return nil
}

func typesFlag(cmd *cobra.Command) ([]catalog.Type, error) {
	raw, _ := cmd.Flags().GetString("type")
	if raw == "" {
		return catalog.Types(), nil
	}
	t, err := catalog.ParseType(raw)
	if err != nil {
		return nil, err
	}
	return []catalog.Type{t}, nil
}

func warmOne(ctx context.Context, svc *enrich.Service, t catalog.Type, force bool) (enrich.Result, error) {
	if force {
		return svc.Refresh(ctx, t)
	}
	return svc.GetEnriched(ctx, t)
}

func warmAll(ctx context.Context, svc *enrich.Service, force bool) []error {
	var errs []error
	for _, t := range catalog.Types() {
		res, err := warmOne(ctx, svc, t, force)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
			continue
		}
		slog.Info("cache warm", slog.String("type", string(t)), slog.Int("items", res.Total))
	}
	return errs
}
