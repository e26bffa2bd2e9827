package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the catalog cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries older than the cache TTL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore(st)

		n, err := st.Prune(cmd.Context())
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop cached listings so the next request rescrapes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		types, err := typesFlag(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore(st)

		for _, t := range types {
			if err := st.Invalidate(cmd.Context(), t.CacheKey()); err != nil {
				return fmt.Errorf("invalidate %s: %w", t, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: invalidated\n", t)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd, cacheInvalidateCmd)
	cacheInvalidateCmd.Flags().String("type", "", "movie or series (default both)")
}
