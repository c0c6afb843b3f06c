package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/landmetric/epc/pkg/models"
)

// landappProperties is the property subset for the mapping-platform
// GeoJSON export.
var landappProperties = []string{
	"lmk-key", "address1", "address2", "postcode", "local-authority",
	"current-energy-rating", "potential-energy-rating",
	"current-energy-efficiency", "potential-energy-efficiency",
	"co2-emissions-current", "co2-emissions-potential",
	"total-floor-area", "property-type", "built-form",
	"inspection-date", "lodgement-date", "uprn",
}

// agriculturalProperties is the GeoJSON subset for farm-building exports.
var agriculturalProperties = []string{
	"address1", "address2", "postcode", "local-authority",
	"current-energy-rating", "potential-energy-rating",
	"total-floor-area", "property-type", "built-form", "main-fuel",
	"inspection-date", "co2-emissions-current",
	"lighting-cost-current", "heating-cost-current",
}

// GeoJSONExporter writes record sets as GeoJSON FeatureCollections.
type GeoJSONExporter struct {
	dir string
	crs string
}

// NewGeoJSON creates a GeoJSONExporter, creating the export directory if
// needed.
func NewGeoJSON(dir, crs string) (*GeoJSONExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &GeoJSONExporter{dir: dir, crs: crs}, nil
}

// featureCollection wraps the orb features with the named-CRS member the
// downstream mapping tools expect.
type featureCollection struct {
	Type     string             `json:"type"`
	CRS      crsMember          `json:"crs"`
	Features []*geojson.Feature `json:"features"`
}

type crsMember struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

// Export writes one Point feature per record that has a resolution in
// coords (keyed by LMK key). Records without a valid resolution are
// omitted; the count of omissions is returned alongside the path.
func (e *GeoJSONExporter) Export(records []models.Certificate, coords map[string]models.Coordinate, filename string, properties []string) (string, int, error) {
	if len(records) == 0 {
		return "", 0, fmt.Errorf("no records to export")
	}
	if properties == nil {
		properties = landappProperties
	}

	fc := featureCollection{
		Type: "FeatureCollection",
		CRS: crsMember{
			Type:       "name",
			Properties: map[string]string{"name": e.crs},
		},
		Features: make([]*geojson.Feature, 0, len(records)),
	}

	skipped := 0
	for _, rec := range records {
		coord, ok := coords[rec.LMKKey]
		if !ok || !coord.Valid() {
			skipped++
			continue
		}

		f := geojson.NewFeature(orb.Point{coord.Lon, coord.Lat})
		for _, prop := range properties {
			if v := rec.Field(prop); v != "" {
				f.Properties[prop] = v
			}
		}
		f.Properties["full_address"] = rec.FullAddress()
		f.Properties["geocode_provider"] = coord.Provider
		fc.Features = append(fc.Features, f)
	}

	path := filepath.Join(e.dir, filename+".geojson")
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", skipped, fmt.Errorf("encode geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", skipped, fmt.Errorf("write geojson: %w", err)
	}
	return path, skipped, nil
}

// Agricultural writes the farm-building GeoJSON for an area.
func (e *GeoJSONExporter) Agricultural(records []models.Certificate, coords map[string]models.Coordinate, area string) (string, int, error) {
	return e.Export(records, coords, timestamped("agricultural_buildings", area), agriculturalProperties)
}
