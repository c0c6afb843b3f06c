package export

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmetric/epc/pkg/models"
)

func coordAt(lat, lon float64) models.Coordinate {
	return models.Coordinate{Lat: lat, Lon: lon, Provider: "os-places", ResolvedAt: time.Now()}
}

func TestGeoJSONExport(t *testing.T) {
	e, err := NewGeoJSON(t.TempDir(), "EPSG:4326")
	require.NoError(t, err)

	records := []models.Certificate{
		{LMKKey: "LMK-1", Address1: "Barn Cottage", Postcode: "GU5 0AA", CurrentEnergyRating: "D"},
		{LMKKey: "LMK-2", Address1: "Mill House", Postcode: "GU5 0AB", CurrentEnergyRating: "C"},
		{LMKKey: "LMK-3", Address1: "Unresolvable", Postcode: "ZZ1 1ZZ"},
	}
	coords := map[string]models.Coordinate{
		"LMK-1": coordAt(51.1875, -0.5231),
		"LMK-2": coordAt(51.1880, -0.5220),
	}

	path, skipped, err := e.Export(records, coords, "test_points", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc struct {
		Type string `json:"type"`
		CRS  struct {
			Type       string            `json:"type"`
			Properties map[string]string `json:"properties"`
		} `json:"crs"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, "name", fc.CRS.Type)
	assert.Equal(t, "EPSG:4326", fc.CRS.Properties["name"])

	require.Len(t, fc.Features, 2)
	f := fc.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	// GeoJSON positions are [lon, lat].
	require.Len(t, f.Geometry.Coordinates, 2)
	assert.Equal(t, -0.5231, f.Geometry.Coordinates[0])
	assert.Equal(t, 51.1875, f.Geometry.Coordinates[1])
	assert.Equal(t, "D", f.Properties["current-energy-rating"])
	assert.Equal(t, "Barn Cottage, GU5 0AA", f.Properties["full_address"])
	assert.Equal(t, "os-places", f.Properties["geocode_provider"])
}

func TestGeoJSONSkipsInvalidCoordinates(t *testing.T) {
	e, err := NewGeoJSON(t.TempDir(), "EPSG:4326")
	require.NoError(t, err)

	records := []models.Certificate{{LMKKey: "LMK-1", Postcode: "GU5 0AA"}}
	coords := map[string]models.Coordinate{
		// Outside the UK bounding box.
		"LMK-1": coordAt(48.85, 2.35),
	}

	path, skipped, err := e.Export(records, coords, "invalid_points", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fc struct {
		Features []any `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Empty(t, fc.Features)
}

func TestGeoJSONExportEmpty(t *testing.T) {
	e, err := NewGeoJSON(t.TempDir(), "EPSG:4326")
	require.NoError(t, err)

	_, _, err = e.Export(nil, nil, "empty", nil)
	require.Error(t, err)
}
