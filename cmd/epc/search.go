package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/landmetric/epc/pkg/cache/sqlite"
	"github.com/landmetric/epc/pkg/epcapi"
	"github.com/landmetric/epc/pkg/export"
	"github.com/landmetric/epc/pkg/geocode"
	"github.com/landmetric/epc/pkg/models"
	"github.com/landmetric/epc/pkg/retriever"
)

func newSearchCmd() *cobra.Command {
	var (
		configPath     string
		postcode       string
		localAuthority string
		propertyType   string
		agricultural   bool
		format         string
		filename       string
		noCache        bool
		maxAge         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for EPC certificates and export them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if postcode == "" && localAuthority == "" {
				return fmt.Errorf("either --postcode or --local-authority is required")
			}
			if format != "csv" && format != "geojson" {
				return fmt.Errorf("unsupported export format %q", format)
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			q := models.Query{
				Postcode:       postcode,
				LocalAuthority: localAuthority,
				PropertyType:   models.PropertyType(propertyType),
				Agricultural:   agricultural,
			}

			var store *sqlite.Store
			if cfg.Cache.Enabled {
				store, err = sqlite.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
			}

			if maxAge == 0 {
				maxAge = cfg.Cache.MaxAge
			}

			r := retriever.New(epcapi.New(cfg.API), store)
			records, source, err := r.Fetch(ctx, q, retriever.Options{
				UseCache: cfg.Cache.Enabled && !noCache,
				MaxAge:   maxAge,
			}, printProgress)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No records found.")
				return nil
			}
			fmt.Printf("Found %d records (%s)\n", len(records), source)

			if filename == "" {
				filename = "epc_search_" + string(q.Canonical().PropertyType)
			}

			switch format {
			case "csv":
				exp, err := export.NewCSV(cfg.Export.Path)
				if err != nil {
					return err
				}
				var path string
				if agricultural {
					path, err = exp.AgriculturalSummary(records, areaName(postcode, localAuthority))
				} else {
					path, err = exp.Export(records, filename, nil)
				}
				if err != nil {
					return err
				}
				fmt.Printf("Exported to %s\n", path)

			case "geojson":
				chain := geocode.NewChainFromConfig(cfg.Geocoder, coordStore(store))
				coords, failed, err := chain.ResolveAll(ctx, records)
				if err != nil {
					return err
				}
				if failed > 0 {
					fmt.Printf("%d records could not be geocoded\n", failed)
				}

				exp, err := export.NewGeoJSON(cfg.Export.Path, cfg.Export.CRS)
				if err != nil {
					return err
				}
				var (
					path    string
					skipped int
				)
				if agricultural {
					path, skipped, err = exp.Agricultural(records, coords, areaName(postcode, localAuthority))
				} else {
					path, skipped, err = exp.Export(records, coords, filename, nil)
				}
				if err != nil {
					return err
				}
				if skipped > 0 {
					fmt.Printf("%d records omitted (no coordinates)\n", skipped)
				}
				fmt.Printf("Exported to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "epc.yaml", "path to config file")
	cmd.Flags().StringVar(&postcode, "postcode", "", "postcode to search (e.g. GU5 0AA)")
	cmd.Flags().StringVar(&localAuthority, "local-authority", "", "local authority name")
	cmd.Flags().StringVar(&propertyType, "property-type", "domestic", "domestic or non-domestic")
	cmd.Flags().BoolVar(&agricultural, "agricultural", false, "search for agricultural buildings only")
	cmd.Flags().StringVar(&format, "export", "csv", "export format: csv or geojson")
	cmd.Flags().StringVar(&filename, "filename", "", "output filename (without extension)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the local cache and force a refetch")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "cache freshness window (default from config)")
	return cmd
}

func printProgress(p models.Page) {
	fmt.Printf("Page %d: %d records (total %d)\n", p.Number, len(p.Records), p.TotalRetrieved)
}

func areaName(postcode, localAuthority string) string {
	if localAuthority != "" {
		return localAuthority
	}
	if postcode != "" {
		return postcode
	}
	return "unknown"
}

// coordStore narrows a possibly-nil *sqlite.Store to the geocoder's
// store interface without tripping the typed-nil problem.
func coordStore(s *sqlite.Store) geocode.CoordinateStore {
	if s == nil {
		return nil
	}
	return s
}
