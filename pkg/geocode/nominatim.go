package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/landmetric/epc/pkg/models"
)

// Nominatim is the best-effort fallback provider: the public OpenStreetMap
// geocoder. No credential, but a User-Agent and a one-request-per-second
// pace are required by its usage policy.
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewNominatim creates the Nominatim resolver.
func NewNominatim(baseURL string) *Nominatim {
	return &Nominatim{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		userAgent:  "epc-tool-geocoder",
	}
}

func (n *Nominatim) Name() string { return "nominatim" }

// Resolve searches for "address, postcode, UK", then retries with the
// postcode alone when the full address finds nothing.
func (n *Nominatim) Resolve(ctx context.Context, address, postcode string) (models.Coordinate, error) {
	queries := buildQueries(address, postcode)
	var lastErr error
	for _, q := range queries {
		coord, err := n.search(ctx, q)
		if err == nil {
			return coord, nil
		}
		lastErr = err
	}
	return models.Coordinate{}, lastErr
}

func buildQueries(address, postcode string) []string {
	var queries []string
	switch {
	case address != "" && postcode != "":
		queries = append(queries, fmt.Sprintf("%s, %s, UK", address, postcode))
	case address != "":
		queries = append(queries, address+", UK")
	}
	if postcode != "" && address != postcode {
		queries = append(queries, postcode+", UK")
	}
	return queries
}

func (n *Nominatim) search(ctx context.Context, query string) (models.Coordinate, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return models.Coordinate{}, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	u := fmt.Sprintf("%s/search?%s", n.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("nominatim: create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinate{}, fmt.Errorf("nominatim: status %d", resp.StatusCode)
	}

	var body []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Coordinate{}, fmt.Errorf("nominatim: decode: %w", err)
	}
	if len(body) == 0 {
		return models.Coordinate{}, fmt.Errorf("nominatim: %w for %q", errNoResult, query)
	}

	lat, err := strconv.ParseFloat(body[0].Lat, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("nominatim: parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(body[0].Lon, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("nominatim: parse lon: %w", err)
	}

	return models.Coordinate{
		Lat:        lat,
		Lon:        lon,
		Provider:   n.Name(),
		ResolvedAt: time.Now().UTC(),
	}, nil
}
