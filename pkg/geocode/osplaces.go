package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/landmetric/epc/pkg/models"
)

// OSPlaces is the precise provider: the Ordnance Survey Places API.
// It requires an API key and resolves by postcode.
type OSPlaces struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOSPlaces creates the OS Places resolver.
func NewOSPlaces(baseURL, apiKey string) *OSPlaces {
	return &OSPlaces{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 1),
	}
}

func (o *OSPlaces) Name() string { return "os-places" }

// Resolve looks the postcode up in the Places API, falling back to the
// address text when no postcode is available.
func (o *OSPlaces) Resolve(ctx context.Context, address, postcode string) (models.Coordinate, error) {
	if o.apiKey == "" {
		return models.Coordinate{}, fmt.Errorf("os-places: api key not configured")
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return models.Coordinate{}, err
	}

	search := postcode
	if search == "" {
		search = address
	}

	params := url.Values{}
	params.Set("postcode", search)
	params.Set("key", o.apiKey)
	params.Set("output_srs", "WGS84")

	u := fmt.Sprintf("%s/postcode?%s", o.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("os-places: create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("os-places: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinate{}, fmt.Errorf("os-places: status %d", resp.StatusCode)
	}

	var body struct {
		Results []map[string]struct {
			Lat float64 `json:"LAT"`
			Lng float64 `json:"LNG"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Coordinate{}, fmt.Errorf("os-places: decode: %w", err)
	}
	if len(body.Results) == 0 {
		return models.Coordinate{}, fmt.Errorf("os-places: %w for %q", errNoResult, search)
	}

	// Each result holds one record type, DPA or LPI; either carries the
	// WGS84 position.
	for _, key := range []string{"DPA", "LPI"} {
		if loc, ok := body.Results[0][key]; ok {
			return models.Coordinate{
				Lat:        loc.Lat,
				Lon:        loc.Lng,
				Provider:   o.Name(),
				ResolvedAt: time.Now().UTC(),
			}, nil
		}
	}
	return models.Coordinate{}, fmt.Errorf("os-places: %w for %q", errNoResult, search)
}
