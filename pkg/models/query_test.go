package models

import "testing"

func TestQueryCanonical(t *testing.T) {
	q := Query{Postcode: "  gu5  0aa ", LocalAuthority: "  Waverley "}.Canonical()
	if q.Postcode != "GU5 0AA" {
		t.Errorf("postcode not normalized: %q", q.Postcode)
	}
	if q.LocalAuthority != "waverley" {
		t.Errorf("authority not normalized: %q", q.LocalAuthority)
	}
	if q.PropertyType != PropertyDomestic {
		t.Errorf("expected default property type, got %q", q.PropertyType)
	}
}

func TestQueryKeyStable(t *testing.T) {
	a := Query{Postcode: "gu5 0aa", PropertyType: PropertyDomestic}
	b := Query{Postcode: "GU5  0AA"}
	if a.Key() != b.Key() {
		t.Error("equivalent queries should share a cache key")
	}

	c := Query{Postcode: "GU5 0AA", PropertyType: PropertyNonDomestic}
	if a.Key() == c.Key() {
		t.Error("different registers should not share a cache key")
	}
}

func TestAgriculturalQuery(t *testing.T) {
	q := Query{LocalAuthority: "Surrey", Agricultural: true}
	if q.Canonical().PropertyType != PropertyNonDomestic {
		t.Error("agricultural searches must use the non-domestic register")
	}

	params := q.Params()
	if params.Get("property-type") != "Other" || params.Get("built-form") != "Detached" {
		t.Errorf("agricultural filter params missing: %v", params)
	}
	if q.Endpoint() != "non-domestic/search" {
		t.Errorf("unexpected endpoint: %s", q.Endpoint())
	}
}

func TestQueryYearParams(t *testing.T) {
	params := Query{Postcode: "GU5 0AA", FromYear: 2020, ToYear: 2024}.Params()
	if params.Get("from-year") != "2020" || params.Get("to-year") != "2024" {
		t.Errorf("year params missing: %v", params)
	}
}
