// Package taxrate is the reporting-code-keyed tax rate catalog: a fixed set
// of four rate categories per jurisdiction, backed by Postgres and fronted
// by a write-through Redis hash cache.
package taxrate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// categories lists the only four rate buckets a catalog entry may contain.
var categories = []string{"state_rate", "county_rate", "city_rate", "special_rates"}

// RateItem is a single named rate contribution within a category (e.g. a
// specific special district surcharge).
type RateItem struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// Breakdown is the resolved tax rate for one reporting code: each category
// summed and rounded to 5 decimal places, plus the composite of all four.
type Breakdown struct {
	ReportingCode     string
	StateRate         decimal.Decimal
	CountyRate        decimal.Decimal
	CityRate          decimal.Decimal
	SpecialRates      decimal.Decimal
	CompositeTaxRate  decimal.Decimal
	Jurisdictions     map[string][]RateItem
}

// rateDecimals is the rounding precision applied to every individual and
// composite rate value (5 places, e.g. 0.08875).
const rateDecimals = 5

// payload is the raw per-reporting-code JSON shape loaded from the catalog
// source: one array of named rate items per category.
type payload map[string][]RateItem

func (p payload) validate(code string) error {
	missing := make([]string, 0, len(categories))
	for _, cat := range categories {
		if _, ok := p[cat]; !ok {
			missing = append(missing, cat)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("reporting code %s: missing rate categories %v", code, missing)
	}

	known := make(map[string]bool, len(categories))
	for _, cat := range categories {
		known[cat] = true
	}
	var unknown []string
	for cat := range p {
		if !known[cat] {
			unknown = append(unknown, cat)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("reporting code %s: unknown rate categories %v", code, unknown)
	}

	for _, cat := range categories {
		for _, item := range p[cat] {
			if item.Name == "" {
				return fmt.Errorf("reporting code %s: category %s has an item with an empty name", code, cat)
			}
		}
	}
	return nil
}

func (p payload) toBreakdown(code string) Breakdown {
	state := sumRates(p["state_rate"])
	county := sumRates(p["county_rate"])
	city := sumRates(p["city_rate"])
	special := sumRates(p["special_rates"])
	composite := state.Add(county).Add(city).Add(special).Round(rateDecimals)

	jurisdictions := make(map[string][]RateItem, len(categories))
	for _, cat := range categories {
		jurisdictions[cat] = p[cat]
	}

	return Breakdown{
		ReportingCode:    code,
		StateRate:        state,
		CountyRate:       county,
		CityRate:         city,
		SpecialRates:     special,
		CompositeTaxRate: composite,
		Jurisdictions:    jurisdictions,
	}
}

func sumRates(items []RateItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Rate)
	}
	return total.Round(rateDecimals)
}
