package epcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/landmetric/epc/pkg/backoff"
	"github.com/landmetric/epc/pkg/config"
	"github.com/landmetric/epc/pkg/logging"
	"github.com/landmetric/epc/pkg/models"
)

// PageSize is the upstream maximum records per search request. The API
// rejects anything larger, so it is not configurable.
const PageSize = 5000

// Client talks to the EPC open-data API.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	policy     backoff.Policy
	log        *zap.SugaredLogger
}

// New creates a Client from API configuration.
func New(cfg config.APIConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		creds:   Credentials{Email: cfg.Email, Key: cfg.Key},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		policy: backoff.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
		log: logging.Named("epcapi"),
	}
}

// Search starts a pagination run for the query. Pages are consumed with
// Paginator.Next; restarting requires a new Search call.
func (c *Client) Search(q models.Query) *Paginator {
	q = q.Canonical()
	return &Paginator{
		client:   c,
		endpoint: q.Endpoint(),
		params:   q.Params(),
	}
}

// SearchAll runs the pagination end-to-end and collects every record.
// On failure the records fetched so far are returned alongside the typed
// error, so the caller can decide what to do with partial results.
func (c *Client) SearchAll(ctx context.Context, q models.Query, progress func(models.Page)) ([]models.Certificate, error) {
	p := c.Search(q)
	var records []models.Certificate
	for {
		page, err := p.Next(ctx)
		if err != nil {
			return records, err
		}
		if page == nil {
			return records, nil
		}
		records = append(records, page.Records...)
		if progress != nil {
			progress(*page)
		}
	}
}

// Certificate fetches a single certificate by its LMK key.
func (c *Client) Certificate(ctx context.Context, lmkKey string, propertyType models.PropertyType) (models.Certificate, error) {
	if propertyType == "" {
		propertyType = models.PropertyDomestic
	}
	u := fmt.Sprintf("%s/%s/certificate/%s", c.baseURL, propertyType, url.PathEscape(lmkKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Certificate{}, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Certificate{}, fmt.Errorf("fetch certificate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return models.Certificate{}, ErrAuthenticationFailed
	}
	if resp.StatusCode != http.StatusOK {
		return models.Certificate{}, fmt.Errorf("fetch certificate %s: status %d", lmkKey, resp.StatusCode)
	}

	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Certificate{}, fmt.Errorf("decode certificate: %w", err)
	}
	if len(body.Rows) == 0 {
		return models.Certificate{}, fmt.Errorf("certificate %s not found", lmkKey)
	}
	return models.NewCertificate(body.Rows[0]), nil
}

// Verify probes the API with a one-record search to confirm the
// credentials work.
func (c *Client) Verify(ctx context.Context) error {
	if !c.creds.Configured() {
		return fmt.Errorf("%w: EPC_API_EMAIL and EPC_API_KEY must be set", ErrAuthenticationFailed)
	}

	params := url.Values{}
	params.Set("postcode", "SW1A 0AA")
	params.Set("size", "1")

	resp, err := c.get(ctx, "domestic/search", params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrAuthenticationFailed
	default:
		return fmt.Errorf("verify: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	return c.httpClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.creds.Configured() {
		req.Header.Set("Authorization", c.creds.Header())
	}
	req.Header.Set("Accept", "application/json")
}

// readBody drains a response body for error reporting, truncated.
func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
