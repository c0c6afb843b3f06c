package export

import (
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmetric/epc/pkg/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVExport(t *testing.T) {
	e, err := NewCSV(t.TempDir())
	require.NoError(t, err)

	records := []models.Certificate{
		{LMKKey: "LMK-1", Postcode: "GU5 0AA", CurrentEnergyRating: "D", TotalFloorArea: 118.5},
		{LMKKey: "LMK-2", Postcode: "GU5 0AB", CurrentEnergyRating: "C"},
	}

	path, err := e.Export(records, "test_export", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "test_export.csv"))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, defaultColumns, rows[0])

	header := rows[0]
	byCol := func(row []string, col string) string {
		for i, c := range header {
			if c == col {
				return row[i]
			}
		}
		t.Fatalf("column %s missing", col)
		return ""
	}
	assert.Equal(t, "LMK-1", byCol(rows[1], "lmk-key"))
	assert.Equal(t, "118.5", byCol(rows[1], "total-floor-area"))
	assert.Equal(t, "C", byCol(rows[2], "current-energy-rating"))
}

func TestCSVExportEmpty(t *testing.T) {
	e, err := NewCSV(t.TempDir())
	require.NoError(t, err)

	_, err = e.Export(nil, "empty", nil)
	require.Error(t, err)
}

func TestAgriculturalSummaryColumns(t *testing.T) {
	e, err := NewCSV(t.TempDir())
	require.NoError(t, err)

	path, err := e.AgriculturalSummary([]models.Certificate{
		{LMKKey: "LMK-1", Address1: "Home Farm", Postcode: "GU5 0AA", PropertyType: "Other", BuiltForm: "Detached"},
	}, "waverley")
	require.NoError(t, err)
	assert.Contains(t, path, "agricultural_buildings_waverley_")

	rows := readCSV(t, path)
	assert.Equal(t, agriculturalColumns, rows[0])
	assert.NotContains(t, rows[0], "lmk-key")
}

func TestEnergyTrendsPivot(t *testing.T) {
	e, err := NewCSV(t.TempDir())
	require.NoError(t, err)

	records := []models.Certificate{
		{LMKKey: "1", InspectionDate: "2021-03-01", CurrentEnergyRating: "D"},
		{LMKKey: "2", InspectionDate: "2021-07-14", CurrentEnergyRating: "D"},
		{LMKKey: "3", InspectionDate: "2021-09-30", CurrentEnergyRating: "C"},
		{LMKKey: "4", InspectionDate: "2023-01-05", CurrentEnergyRating: "B"},
		{LMKKey: "5", InspectionDate: "", CurrentEnergyRating: "A"},
		{LMKKey: "6", InspectionDate: "2023-02-02", CurrentEnergyRating: ""},
	}

	path, err := e.EnergyTrends(records, "guildford")
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"inspection-year", "B", "C", "D"}, rows[0])
	assert.Equal(t, []string{"2021", "0", "1", "2"}, rows[1])
	assert.Equal(t, []string{"2023", "1", "0", "0"}, rows[2])
}

func TestEnergyTrendsNoDatedRecords(t *testing.T) {
	e, err := NewCSV(t.TempDir())
	require.NoError(t, err)

	_, err = e.EnergyTrends([]models.Certificate{{LMKKey: "1"}}, "area")
	require.Error(t, err)
}

func TestTimestamped(t *testing.T) {
	name := timestamped("supply_chain", "")
	assert.True(t, strings.HasPrefix(name, "supply_chain_area_"))
	// Suffix is a sortable timestamp.
	parts := strings.Split(name, "_")
	require.Len(t, parts, 5)
	_, err := time.Parse("20060102", parts[3])
	assert.NoError(t, err)
}
