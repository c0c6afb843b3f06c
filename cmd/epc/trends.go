package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/landmetric/epc/pkg/cache/sqlite"
	"github.com/landmetric/epc/pkg/epcapi"
	"github.com/landmetric/epc/pkg/export"
	"github.com/landmetric/epc/pkg/models"
	"github.com/landmetric/epc/pkg/retriever"
)

func newTrendsCmd() *cobra.Command {
	var (
		configPath     string
		postcode       string
		localAuthority string
		fromYear       int
		toYear         int
	)

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Analyze energy efficiency trends over time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if postcode == "" && localAuthority == "" {
				return fmt.Errorf("either --postcode or --local-authority is required")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var store *sqlite.Store
			if cfg.Cache.Enabled {
				store, err = sqlite.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
			}

			q := models.Query{
				Postcode:       postcode,
				LocalAuthority: localAuthority,
				FromYear:       fromYear,
				ToYear:         toYear,
			}

			r := retriever.New(epcapi.New(cfg.API), store)
			records, _, err := r.Fetch(ctx, q, retriever.Options{
				UseCache: cfg.Cache.Enabled,
				MaxAge:   cfg.Cache.MaxAge,
			}, printProgress)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No records found for trend analysis.")
				return nil
			}

			exp, err := export.NewCSV(cfg.Export.Path)
			if err != nil {
				return err
			}
			path, err := exp.EnergyTrends(records, areaName(postcode, localAuthority))
			if err != nil {
				return err
			}
			fmt.Printf("Trends analysis exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "epc.yaml", "path to config file")
	cmd.Flags().StringVar(&postcode, "postcode", "", "postcode for trend analysis")
	cmd.Flags().StringVar(&localAuthority, "local-authority", "", "local authority for trend analysis")
	cmd.Flags().IntVar(&fromYear, "from-year", 2020, "start year for analysis")
	cmd.Flags().IntVar(&toYear, "to-year", 0, "end year for analysis (default: none)")
	return cmd
}
