package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/handsomefox/title-catalog/internal/config"
	"github.com/handsomefox/title-catalog/internal/logger"
)

var version = "dev"

var (
	configPath string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Movie and series catalog scraped from themoviedb.org",
	Long: `catalog scrapes the themoviedb.org movie and TV listings, enriches the
head of each listing from the detail pages and serves the result over HTTP.

Configuration comes from an optional TOML file overlaid by the environment
(.env is loaded automatically).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c

		l, closer := logger.New(logger.Options{
			Level:      cfg.Log.SlogLevel(),
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		slog.SetDefault(l)
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logCloser == nil {
			return
		}
		if err := logCloser.Close(); err != nil {
			slog.Warn("close log file", logger.Error(err))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "path to a TOML config file")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("catalog {{.Version}}\n")
}
