package epcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/landmetric/epc/pkg/backoff"
	"github.com/landmetric/epc/pkg/models"
)

// errRateLimited tags a 429 inside the retry loop so exhaustion can be
// classified as RateLimitError.
var errRateLimited = errors.New("rate limited")

// statusError carries a 5xx status through the retry loop.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

type paginatorState int

const (
	stateStart paginatorState = iota
	stateFetching
	stateDone
	stateFailed
)

// Paginator drives one search-after pagination run. The cursor for page
// N+1 only exists after page N's response, so pages are fetched strictly
// in sequence. A Paginator is not restartable; call Client.Search again
// to re-issue from the first page.
type Paginator struct {
	client   *Client
	endpoint string
	params   url.Values

	state   paginatorState
	cursor  string
	page    int
	records int
	err     error
}

// Next fetches and returns the next page, or (nil, nil) after the final
// page. Once it returns an error the paginator is failed and every
// subsequent call returns the same error.
func (p *Paginator) Next(ctx context.Context) (*models.Page, error) {
	switch p.state {
	case stateDone:
		return nil, nil
	case stateFailed:
		return nil, p.err
	}
	p.state = stateFetching

	params := url.Values{}
	for k, v := range p.params {
		params[k] = v
	}
	params.Set("size", strconv.Itoa(PageSize))
	if p.cursor != "" {
		params.Set("search-after", p.cursor)
	}

	resp, err := p.fetch(ctx, params)
	if err != nil {
		p.state = stateFailed
		p.err = p.classify(err)
		return nil, p.err
	}

	raw := resp.rawRecords()
	if len(raw) == 0 {
		p.state = stateDone
		return nil, nil
	}

	p.page++
	p.records += len(raw)

	certs := make([]models.Certificate, 0, len(raw))
	for _, r := range raw {
		certs = append(certs, models.NewCertificate(r))
	}

	if resp.NextSearchAfter == "" {
		p.state = stateDone
	} else {
		p.cursor = resp.NextSearchAfter
	}

	p.client.log.Debugw("page fetched",
		"endpoint", p.endpoint, "page", p.page, "size", len(raw), "total", p.records)

	return &models.Page{
		Records:        certs,
		Number:         p.page,
		TotalRetrieved: p.records,
	}, nil
}

// Err returns the error that failed the run, or nil.
func (p *Paginator) Err() error { return p.err }

// fetch requests one page, retrying rate limits and transient upstream
// failures under the client's backoff policy. Authentication failures
// are terminal on the first sight.
func (p *Paginator) fetch(ctx context.Context, params url.Values) (*searchResponse, error) {
	var out searchResponse
	err := p.client.policy.Retry(ctx, func(ctx context.Context) error {
		resp, err := p.client.get(ctx, p.endpoint, params)
		if err != nil {
			return backoff.Transient(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			out = searchResponse{}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("decode page: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusNoContent:
			out = searchResponse{}
			return nil
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return ErrAuthenticationFailed
		case resp.StatusCode == http.StatusTooManyRequests:
			p.client.log.Warnw("rate limited, backing off", "endpoint", p.endpoint, "page", p.page+1)
			return backoff.Transient(errRateLimited)
		case resp.StatusCode >= 500:
			return backoff.Transient(&statusError{resp.StatusCode})
		default:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readBody(resp.Body))
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// classify maps a retry-loop failure onto the error taxonomy, attaching
// how far the pagination got.
func (p *Paginator) classify(err error) error {
	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		return err
	case errors.Is(err, errRateLimited):
		return &RateLimitError{Pages: p.page, Records: p.records}
	default:
		var se *statusError
		code := 0
		if errors.As(err, &se) {
			code = se.code
		}
		return &UpstreamError{StatusCode: code, Pages: p.page, Records: p.records, Err: err}
	}
}

// searchResponse accepts both upstream body shapes: a "data" array of
// objects, or the columnar "column-names"/"rows" form.
type searchResponse struct {
	Data            []map[string]any `json:"data"`
	ColumnNames     []string         `json:"column-names"`
	Rows            [][]any          `json:"rows"`
	NextSearchAfter string           `json:"next-search-after"`
}

func (r *searchResponse) rawRecords() []map[string]any {
	if r.Data != nil {
		return r.Data
	}
	if len(r.ColumnNames) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(r.ColumnNames))
		for i, col := range r.ColumnNames {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}
