package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/landmetric/epc/pkg/cache/sqlite"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local certificate cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Cached searches:\t%s\n", humanize.Comma(stats.Entries))
			fmt.Fprintf(w, "Cached records:\t%s\n", humanize.Comma(stats.TotalRecords))
			fmt.Fprintf(w, "Cached coordinates:\t%s\n", humanize.Comma(stats.Coordinates))
			if !stats.OldestFetch.IsZero() {
				fmt.Fprintf(w, "Oldest fetch:\t%s\n", humanize.Time(stats.OldestFetch))
			}
			if !stats.NewestFetch.IsZero() {
				fmt.Fprintf(w, "Newest fetch:\t%s\n", humanize.Time(stats.NewestFetch))
			}
			fmt.Fprintf(w, "Database:\t%s\n", cfg.DBPath)
			return w.Flush()
		},
	}

	var maxAgeDays int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cached searches older than the age threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			removed, err := store.Cleanup(cmd.Context(), time.Duration(maxAgeDays)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d cached searches older than %d days.\n", removed, maxAgeDays)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&maxAgeDays, "max-age", 30, "maximum age in days for data to keep")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "epc.yaml", "path to config file")
	cmd.AddCommand(statsCmd, cleanupCmd)
	return cmd
}
