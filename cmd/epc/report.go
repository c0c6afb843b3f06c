package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/landmetric/epc/pkg/cache/sqlite"
	"github.com/landmetric/epc/pkg/epcapi"
	"github.com/landmetric/epc/pkg/export"
	"github.com/landmetric/epc/pkg/models"
	"github.com/landmetric/epc/pkg/retriever"
)

func newReportCmd() *cobra.Command {
	var (
		configPath string
		template   string
		uprnsPath  string
		area       string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a specialized report for a set of UPRNs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if template != "supply-chain" && template != "agricultural" {
				return fmt.Errorf("unsupported template %q", template)
			}
			if uprnsPath == "" {
				return fmt.Errorf("--uprns is required")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			uprns, err := readUPRNs(uprnsPath)
			if err != nil {
				return err
			}
			if len(uprns) == 0 {
				return fmt.Errorf("no UPRNs found in %s", uprnsPath)
			}

			var store *sqlite.Store
			if cfg.Cache.Enabled {
				store, err = sqlite.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
			}

			r := retriever.New(epcapi.New(cfg.API), store)
			var combined []models.Certificate
			for _, uprn := range uprns {
				records, _, err := r.Fetch(ctx, models.Query{UPRN: uprn}, retriever.Options{
					UseCache: cfg.Cache.Enabled,
					MaxAge:   cfg.Cache.MaxAge,
				}, nil)
				if err != nil {
					return fmt.Errorf("uprn %s: %w", uprn, err)
				}
				combined = append(combined, records...)
			}
			if len(combined) == 0 {
				fmt.Println("No data found for provided UPRNs.")
				return nil
			}

			exp, err := export.NewCSV(cfg.Export.Path)
			if err != nil {
				return err
			}
			if area == "" {
				area = "report"
			}

			var path string
			switch template {
			case "supply-chain":
				path, err = exp.SupplyChainReport(combined, area)
			case "agricultural":
				path, err = exp.AgriculturalSummary(combined, area)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s report exported to %s (%d records)\n", template, path, len(combined))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "epc.yaml", "path to config file")
	cmd.Flags().StringVar(&template, "template", "", "report template: supply-chain or agricultural")
	cmd.Flags().StringVar(&uprnsPath, "uprns", "", "path to CSV file containing a uprn column")
	cmd.Flags().StringVar(&area, "area", "", "area name for the report")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

// readUPRNs reads the uprn column from a CSV file.
func readUPRNs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open uprn file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read uprn file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := -1
	for i, name := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(name), "uprn") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("uprn file must contain a uprn column")
	}

	var uprns []string
	for _, row := range rows[1:] {
		if col < len(row) {
			if v := strings.TrimSpace(row[col]); v != "" {
				uprns = append(uprns, v)
			}
		}
	}
	return uprns, nil
}
