package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Certificate is one normalized EPC entry. Records are immutable once
// fetched; a newer fetch for the same query replaces them wholesale.
type Certificate struct {
	LMKKey                    string  `json:"lmk-key"`
	UPRN                      string  `json:"uprn"`
	Postcode                  string  `json:"postcode"`
	Address1                  string  `json:"address1"`
	Address2                  string  `json:"address2"`
	Address3                  string  `json:"address3"`
	LocalAuthority            string  `json:"local-authority"`
	PropertyType              string  `json:"property-type"`
	BuiltForm                 string  `json:"built-form"`
	MainFuel                  string  `json:"main-fuel"`
	MainHeatingControls       string  `json:"main-heating-controls"`
	CurrentEnergyRating       string  `json:"current-energy-rating"`
	PotentialEnergyRating     string  `json:"potential-energy-rating"`
	CurrentEnergyEfficiency   int     `json:"current-energy-efficiency"`
	PotentialEnergyEfficiency int     `json:"potential-energy-efficiency"`
	TotalFloorArea            float64 `json:"total-floor-area"`
	CO2EmissionsCurrent       float64 `json:"co2-emissions-current"`
	CO2EmissionsPotential     float64 `json:"co2-emissions-potential"`
	LightingCostCurrent       float64 `json:"lighting-cost-current"`
	HeatingCostCurrent        float64 `json:"heating-cost-current"`
	HotWaterCostCurrent       float64 `json:"hot-water-cost-current"`
	InspectionDate            string  `json:"inspection-date"`
	LodgementDate             string  `json:"lodgement-date"`

	// Raw keeps every field the API returned, stringified, so exporters
	// can emit columns the canonical struct does not carry.
	Raw map[string]string `json:"raw,omitempty"`
}

// NewCertificate normalizes one raw API record. The upstream API returns
// every field as a string; numeric fields that fail to parse are left zero.
func NewCertificate(raw map[string]any) Certificate {
	c := Certificate{
		LMKKey:                rawString(raw, "lmk-key"),
		UPRN:                  rawString(raw, "uprn"),
		Postcode:              rawString(raw, "postcode"),
		Address1:              rawString(raw, "address1"),
		Address2:              rawString(raw, "address2"),
		Address3:              rawString(raw, "address3"),
		LocalAuthority:        rawString(raw, "local-authority"),
		PropertyType:          rawString(raw, "property-type"),
		BuiltForm:             rawString(raw, "built-form"),
		MainFuel:              rawString(raw, "main-fuel"),
		MainHeatingControls:   rawString(raw, "main-heating-controls"),
		CurrentEnergyRating:   rawString(raw, "current-energy-rating"),
		PotentialEnergyRating: rawString(raw, "potential-energy-rating"),
		InspectionDate:        rawString(raw, "inspection-date"),
		LodgementDate:         rawString(raw, "lodgement-date"),

		CurrentEnergyEfficiency:   rawInt(raw, "current-energy-efficiency"),
		PotentialEnergyEfficiency: rawInt(raw, "potential-energy-efficiency"),
		TotalFloorArea:            rawFloat(raw, "total-floor-area"),
		CO2EmissionsCurrent:       rawFloat(raw, "co2-emissions-current"),
		CO2EmissionsPotential:     rawFloat(raw, "co2-emissions-potential"),
		LightingCostCurrent:       rawFloat(raw, "lighting-cost-current"),
		HeatingCostCurrent:        rawFloat(raw, "heating-cost-current"),
		HotWaterCostCurrent:       rawFloat(raw, "hot-water-cost-current"),
	}

	c.Raw = make(map[string]string, len(raw))
	for k, v := range raw {
		c.Raw[k] = stringify(v)
	}

	// Some certificates carry no lmk-key; fall back to the building
	// reference so the record still has a stable identifier.
	if c.LMKKey == "" {
		c.LMKKey = rawString(raw, "building-reference-number")
	}

	return c
}

// FullAddress joins the address lines and postcode into one search string.
func (c Certificate) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Address1, c.Address2, c.Address3, c.Postcode} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Field returns a named raw column, falling back to canonical fields for
// records loaded without their raw map.
func (c Certificate) Field(name string) string {
	if v, ok := c.Raw[name]; ok {
		return v
	}
	switch name {
	case "lmk-key":
		return c.LMKKey
	case "uprn":
		return c.UPRN
	case "postcode":
		return c.Postcode
	case "address1":
		return c.Address1
	case "address2":
		return c.Address2
	case "address3":
		return c.Address3
	case "local-authority":
		return c.LocalAuthority
	case "property-type":
		return c.PropertyType
	case "built-form":
		return c.BuiltForm
	case "main-fuel":
		return c.MainFuel
	case "main-heating-controls":
		return c.MainHeatingControls
	case "current-energy-rating":
		return c.CurrentEnergyRating
	case "potential-energy-rating":
		return c.PotentialEnergyRating
	case "inspection-date":
		return c.InspectionDate
	case "lodgement-date":
		return c.LodgementDate
	case "current-energy-efficiency":
		return strconv.Itoa(c.CurrentEnergyEfficiency)
	case "potential-energy-efficiency":
		return strconv.Itoa(c.PotentialEnergyEfficiency)
	case "total-floor-area":
		return formatFloat(c.TotalFloorArea)
	case "co2-emissions-current":
		return formatFloat(c.CO2EmissionsCurrent)
	case "co2-emissions-potential":
		return formatFloat(c.CO2EmissionsPotential)
	case "lighting-cost-current":
		return formatFloat(c.LightingCostCurrent)
	case "heating-cost-current":
		return formatFloat(c.HeatingCostCurrent)
	case "hot-water-cost-current":
		return formatFloat(c.HotWaterCostCurrent)
	}
	return ""
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func rawString(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

func rawFloat(raw map[string]any, key string) float64 {
	s := rawString(raw, key)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func rawInt(raw map[string]any, key string) int {
	return int(rawFloat(raw, key))
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
