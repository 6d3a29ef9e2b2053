package domain

import "errors"

// ErrOutsideCoverage is returned when a delivery coordinate falls outside
// New York State's resolver coverage (no city or county polygon matched).
var ErrOutsideCoverage = errors.New("delivery point is outside New York State coverage")

// ErrRateNotFound is returned when a coordinate resolves to a reporting
// code that has no entry in the tax rate catalog.
var ErrRateNotFound = errors.New("tax rate not found for reporting code")
