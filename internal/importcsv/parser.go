// Package importcsv parses and validates the CSV rows accepted by the
// import executor: header resolution, per-row field parsing, and the
// minimum-supported-date floor applied to every timestamp.
package importcsv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MinSupportedDate is the earliest timestamp any imported row (or API
// order) may carry.
var MinSupportedDate = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// requiredColumns are the logical fields every row must resolve to a header.
var requiredColumns = []string{"longitude", "latitude", "timestamp", "subtotal"}

// Row is one parsed, not-yet-computed CSV data row.
type Row struct {
	RowNumber int
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	Subtotal  decimal.Decimal
}

// ColumnMap maps a logical field name to its position in a CSV header row.
type ColumnMap map[string]int

// normalizeHeader makes header matching case, underscore, and whitespace
// insensitive ("Sub Total", "sub_total", "SUBTOTAL" all resolve the same).
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return h
}

// ResolveColumns maps the required logical columns onto the positions in a
// raw CSV header row. It returns an error naming every column it could not
// find, not just the first.
func ResolveColumns(header []string) (ColumnMap, error) {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		normalized[normalizeHeader(h)] = i
	}

	cols := make(ColumnMap, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		idx, ok := normalized[normalizeHeader(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv header missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// ParseRow converts one raw CSV record into a validated Row, using cols to
// find each field's position. rowNumber is the caller's number for the row
// (the import executor numbers the first data row 1); it is used in error
// messages and copied into the returned Row.
func ParseRow(record []string, cols ColumnMap, rowNumber int) (Row, error) {
	get := func(field string) (string, error) {
		idx := cols[field]
		if idx >= len(record) {
			return "", fmt.Errorf("row %d: missing value for %s", rowNumber, field)
		}
		return strings.TrimSpace(record[idx]), nil
	}

	latRaw, err := get("latitude")
	if err != nil {
		return Row{}, err
	}
	lonRaw, err := get("longitude")
	if err != nil {
		return Row{}, err
	}
	tsRaw, err := get("timestamp")
	if err != nil {
		return Row{}, err
	}
	subtotalRaw, err := get("subtotal")
	if err != nil {
		return Row{}, err
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return Row{}, fmt.Errorf("row %d: invalid latitude %q", rowNumber, latRaw)
	}
	if lat < -90 || lat > 90 {
		return Row{}, fmt.Errorf("row %d: latitude %v out of range", rowNumber, lat)
	}

	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return Row{}, fmt.Errorf("row %d: invalid longitude %q", rowNumber, lonRaw)
	}
	if lon < -180 || lon > 180 {
		return Row{}, fmt.Errorf("row %d: longitude %v out of range", rowNumber, lon)
	}

	ts, err := ParseTimestamp(tsRaw)
	if err != nil {
		return Row{}, fmt.Errorf("row %d: %w", rowNumber, err)
	}
	if ts.Before(MinSupportedDate) {
		return Row{}, fmt.Errorf("row %d: timestamp cannot be earlier than %s", rowNumber, MinSupportedDate.Format("2006-01-02"))
	}

	subtotal, err := decimal.NewFromString(subtotalRaw)
	if err != nil {
		return Row{}, fmt.Errorf("row %d: invalid subtotal %q", rowNumber, subtotalRaw)
	}
	if subtotal.IsNegative() {
		return Row{}, fmt.Errorf("row %d: subtotal cannot be negative", rowNumber)
	}

	return Row{
		RowNumber: rowNumber,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: ts,
		Subtotal:  subtotal,
	}, nil
}

// ParseTimestamp accepts ISO-8601 timestamps with or without fractional
// seconds and with a 'Z' or numeric UTC-offset suffix, normalizing the
// fractional-second component to exactly 6 digits (padding or truncating)
// before handing off to time.Parse, matching how the source system's
// flexible ISO-8601 reader behaves.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	datePart := raw
	fracPart := ""
	tzPart := ""

	if dot := strings.Index(raw, "."); dot != -1 {
		datePart = raw[:dot]
		rest := raw[dot+1:]

		tzIdx := len(rest)
		for i, r := range rest {
			if r == '+' || r == 'Z' || r == 'z' {
				tzIdx = i
				break
			}
			// a '-' only marks a timezone boundary once we're past the time
			// portion's HH fractional digits; fractional seconds are digits only.
			if r == '-' && i > 0 {
				tzIdx = i
				break
			}
		}
		fracPart = rest[:tzIdx]
		tzPart = rest[tzIdx:]
	} else {
		for i, r := range raw {
			if i > 10 && (r == '+' || r == '-' || r == 'Z' || r == 'z') {
				datePart = raw[:i]
				tzPart = raw[i:]
				break
			}
		}
	}

	if fracPart == "" {
		fracPart = "000000"
	} else if len(fracPart) < 6 {
		fracPart = fracPart + strings.Repeat("0", 6-len(fracPart))
	} else {
		fracPart = fracPart[:6]
	}

	if tzPart == "Z" || tzPart == "z" {
		tzPart = "+00:00"
	}
	if tzPart == "" {
		tzPart = "+00:00"
	}

	normalized := fmt.Sprintf("%s.%s%s", datePart, fracPart, tzPart)
	t, err := time.Parse("2006-01-02T15:04:05.000000-07:00", normalized)
	if err != nil {
		// fall back to RFC3339-style parsing for inputs using a space separator.
		normalized = strings.Replace(normalized, " ", "T", 1)
		t, err = time.Parse("2006-01-02T15:04:05.000000-07:00", normalized)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
		}
	}
	return t, nil
}
