package models

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// PropertyType selects the upstream search endpoint.
type PropertyType string

const (
	PropertyDomestic    PropertyType = "domestic"
	PropertyNonDomestic PropertyType = "non-domestic"
)

// Query describes one certificate search. It doubles as the request
// payload and, after canonicalization, as the cache key.
type Query struct {
	Postcode       string       `json:"postcode,omitempty"`
	LocalAuthority string       `json:"local_authority,omitempty"`
	UPRN           string       `json:"uprn,omitempty"`
	PropertyType   PropertyType `json:"property_type"`
	Agricultural   bool         `json:"agricultural,omitempty"`
	FromYear       int          `json:"from_year,omitempty"`
	ToYear         int          `json:"to_year,omitempty"`
}

// Canonical returns a normalized copy: postcode upper-cased with collapsed
// spaces, authority lower-cased, defaults applied. Agricultural searches
// only exist in the non-domestic register.
func (q Query) Canonical() Query {
	q.Postcode = strings.ToUpper(strings.Join(strings.Fields(q.Postcode), " "))
	q.LocalAuthority = strings.ToLower(strings.TrimSpace(q.LocalAuthority))
	q.UPRN = strings.TrimSpace(q.UPRN)
	if q.PropertyType == "" {
		q.PropertyType = PropertyDomestic
	}
	if q.Agricultural {
		q.PropertyType = PropertyNonDomestic
	}
	return q
}

// Endpoint returns the search path for this query's register.
func (q Query) Endpoint() string {
	return string(q.Canonical().PropertyType) + "/search"
}

// Params returns the upstream request parameters. Agricultural searches
// pin property-type and built-form the way the open-data guidance
// identifies farm buildings.
func (q Query) Params() url.Values {
	q = q.Canonical()
	params := url.Values{}
	if q.Postcode != "" {
		params.Set("postcode", q.Postcode)
	}
	if q.LocalAuthority != "" {
		params.Set("local-authority", q.LocalAuthority)
	}
	if q.UPRN != "" {
		params.Set("uprn", q.UPRN)
	}
	if q.FromYear > 0 {
		params.Set("from-year", strconv.Itoa(q.FromYear))
	}
	if q.ToYear > 0 {
		params.Set("to-year", strconv.Itoa(q.ToYear))
	}
	if q.Agricultural {
		params.Set("property-type", "Other")
		params.Set("built-form", "Detached")
	}
	return params
}

// Key returns the canonical cache key: a digest over the endpoint and the
// sorted request parameters, so equivalent queries always collide.
func (q Query) Key() string {
	params := q.Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(q.Endpoint()))
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", k, params.Get(k))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Describe returns a short human-readable label for logs and stats.
func (q Query) Describe() string {
	q = q.Canonical()
	var parts []string
	if q.Postcode != "" {
		parts = append(parts, "postcode="+q.Postcode)
	}
	if q.LocalAuthority != "" {
		parts = append(parts, "authority="+q.LocalAuthority)
	}
	if q.UPRN != "" {
		parts = append(parts, "uprn="+q.UPRN)
	}
	if q.Agricultural {
		parts = append(parts, "agricultural")
	}
	parts = append(parts, string(q.PropertyType))
	return strings.Join(parts, " ")
}
