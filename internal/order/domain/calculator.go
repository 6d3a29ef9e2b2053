package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qhato/taxorders/internal/geozone"
	"github.com/qhato/taxorders/internal/taxrate"
)

const (
	moneyDecimals = 2
	rateDecimals  = 5
)

// Resolver is the subset of geozone.Resolver the calculator depends on.
type Resolver interface {
	Resolve(c geozone.Coordinate) (code string, ok bool, err error)
}

// Catalog is the subset of taxrate.Catalog the calculator depends on.
type Catalog interface {
	Lookup(reportingCode string) (taxrate.Breakdown, bool)
}

// Calculator computes the tax breakdown and final totals for a single
// delivery point and subtotal. It never touches storage; it is pure
// resolve-then-lookup-then-compute.
type Calculator struct {
	resolver Resolver
	catalog  Catalog
}

func NewCalculator(resolver Resolver, catalog Catalog) *Calculator {
	return &Calculator{resolver: resolver, catalog: catalog}
}

// ComputeInput carries exactly the columns a CSV row or API request
// contributes to a tax computation.
type ComputeInput struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	Subtotal  decimal.Decimal
}

// Compute resolves the reporting code for (Latitude, Longitude), looks up
// its rate breakdown, and returns a fully rounded Order. decimal.Decimal's
// default RoundHalfUp-equivalent (round-half-away-from-zero) is used
// throughout, matching the half-up rounding the catalog and storage schema
// require.
func (c *Calculator) Compute(in ComputeInput) (Order, error) {
	reportingCode, ok, err := c.resolver.Resolve(geozone.Coordinate{Latitude: in.Latitude, Longitude: in.Longitude})
	if err != nil {
		return Order{}, fmt.Errorf("resolve reporting code: %w", err)
	}
	if !ok {
		return Order{}, ErrOutsideCoverage
	}

	breakdown, ok := c.catalog.Lookup(reportingCode)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrRateNotFound, reportingCode)
	}

	subtotal := in.Subtotal.Round(moneyDecimals)
	composite := breakdown.CompositeTaxRate.Round(rateDecimals)
	taxAmount := subtotal.Mul(composite).Round(moneyDecimals)
	totalAmount := subtotal.Add(taxAmount).Round(moneyDecimals)

	jurisdictions := make(map[string][]JurisdictionItem, len(breakdown.Jurisdictions))
	for category, items := range breakdown.Jurisdictions {
		converted := make([]JurisdictionItem, len(items))
		for i, item := range items {
			converted[i] = JurisdictionItem{Name: item.Name, Rate: item.Rate}
		}
		jurisdictions[category] = converted
	}

	return Order{
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		Subtotal:         subtotal,
		Timestamp:        in.Timestamp,
		ReportingCode:    reportingCode,
		Jurisdictions:    jurisdictions,
		CompositeTaxRate: composite,
		TaxAmount:        taxAmount,
		TotalAmount:      totalAmount,
		StateRate:        breakdown.StateRate.Round(rateDecimals),
		CountyRate:       breakdown.CountyRate.Round(rateDecimals),
		CityRate:         breakdown.CityRate.Round(rateDecimals),
		SpecialRates:     breakdown.SpecialRates.Round(rateDecimals),
	}, nil
}
