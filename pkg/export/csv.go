// Package export re-projects normalized certificate records into the
// downstream tabular and geospatial formats.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/landmetric/epc/pkg/models"
)

// defaultColumns is the canonical column order for plain CSV exports.
var defaultColumns = []string{
	"lmk-key", "uprn", "address1", "address2", "address3", "postcode",
	"local-authority", "property-type", "built-form",
	"current-energy-rating", "potential-energy-rating",
	"current-energy-efficiency", "potential-energy-efficiency",
	"total-floor-area", "co2-emissions-current", "co2-emissions-potential",
	"lighting-cost-current", "heating-cost-current", "hot-water-cost-current",
	"main-fuel", "main-heating-controls",
	"inspection-date", "lodgement-date",
}

// agriculturalColumns is the summary subset for farm-building reports.
var agriculturalColumns = []string{
	"address1", "address2", "postcode", "local-authority",
	"current-energy-rating", "potential-energy-rating",
	"current-energy-efficiency", "potential-energy-efficiency",
	"total-floor-area", "property-type", "built-form",
	"inspection-date", "lodgement-date",
}

// supplyChainColumns is the subset for supplier energy reports.
var supplyChainColumns = []string{
	"uprn", "address1", "address2", "postcode",
	"current-energy-rating", "current-energy-efficiency",
	"co2-emissions-current", "lighting-cost-current",
	"heating-cost-current", "hot-water-cost-current",
	"total-floor-area", "property-type",
	"main-fuel", "main-heating-controls",
	"inspection-date",
}

// CSVExporter writes record sets as CSV files under one directory.
type CSVExporter struct {
	dir string
}

// NewCSV creates a CSVExporter, creating the export directory if needed.
func NewCSV(dir string) (*CSVExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &CSVExporter{dir: dir}, nil
}

// Export writes the records with the given columns (defaultColumns when
// nil) and returns the file path.
func (e *CSVExporter) Export(records []models.Certificate, filename string, columns []string) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("no records to export")
	}
	if columns == nil {
		columns = defaultColumns
	}

	path := filepath.Join(e.dir, filename+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = rec.Field(col)
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}

// AgriculturalSummary writes the farm-building report for an area.
func (e *CSVExporter) AgriculturalSummary(records []models.Certificate, area string) (string, error) {
	return e.Export(records, timestamped("agricultural_buildings", area), agriculturalColumns)
}

// SupplyChainReport writes the supplier energy report.
func (e *CSVExporter) SupplyChainReport(records []models.Certificate, supplier string) (string, error) {
	return e.Export(records, timestamped("supply_chain", supplier), supplyChainColumns)
}

// EnergyTrends pivots records into inspection-year rows against current
// energy rating counts.
func (e *CSVExporter) EnergyTrends(records []models.Certificate, area string) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("no records to export")
	}

	// year -> rating -> count
	counts := make(map[int]map[string]int)
	ratings := make(map[string]bool)
	for _, rec := range records {
		if len(rec.InspectionDate) < 4 || rec.CurrentEnergyRating == "" {
			continue
		}
		year, err := strconv.Atoi(rec.InspectionDate[:4])
		if err != nil {
			continue
		}
		if counts[year] == nil {
			counts[year] = make(map[string]int)
		}
		counts[year][rec.CurrentEnergyRating]++
		ratings[rec.CurrentEnergyRating] = true
	}
	if len(counts) == 0 {
		return "", fmt.Errorf("no records with inspection dates to export")
	}

	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)

	ratingCols := make([]string, 0, len(ratings))
	for r := range ratings {
		ratingCols = append(ratingCols, r)
	}
	sort.Strings(ratingCols)

	path := filepath.Join(e.dir, timestamped("energy_trends", area)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"inspection-year"}, ratingCols...)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, y := range years {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(y))
		for _, r := range ratingCols {
			row = append(row, strconv.Itoa(counts[y][r]))
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}

func timestamped(prefix, name string) string {
	if name == "" {
		name = "area"
	}
	return fmt.Sprintf("%s_%s_%s", prefix, name, time.Now().Format("20060102_150405"))
}
