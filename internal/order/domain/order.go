// Package domain holds the Order record and the tax calculation that
// produces it: a single delivery point, a subtotal, and the resolved New
// York sales-tax breakdown for that point.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is one priced, tax-computed delivery. Every monetary and rate field
// is the output of Calculator.Compute, already rounded to its storage
// precision; nothing downstream re-derives them.
type Order struct {
	ID               uuid.UUID
	AuthorUserID     *uuid.UUID
	Latitude         float64
	Longitude        float64
	Subtotal         decimal.Decimal
	Timestamp        time.Time
	ReportingCode    string
	Jurisdictions    map[string][]JurisdictionItem
	CompositeTaxRate decimal.Decimal
	TaxAmount        decimal.Decimal
	TotalAmount      decimal.Decimal
	StateRate        decimal.Decimal
	CountyRate       decimal.Decimal
	CityRate         decimal.Decimal
	SpecialRates     decimal.Decimal
	CreatedAt        time.Time

	// AuthorLogin is decorated onto the order at read time by joining against
	// the user the order was created by; it is never stored with the row.
	AuthorLogin string
}

// JurisdictionItem is a single named rate contribution, copied from the tax
// rate catalog breakdown at computation time so an order's tax detail is
// self-contained even if the catalog entry later changes.
type JurisdictionItem struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}
