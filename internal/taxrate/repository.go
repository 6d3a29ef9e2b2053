package taxrate

import (
	"context"
	"encoding/json"

	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/errors"
)

// LoadRawPayloads reads every row of the tax_rates table (reporting_code,
// payload jsonb) and returns them keyed by reporting code, ready to hand to
// NewCatalog.
func LoadRawPayloads(ctx context.Context, db *database.DB) (map[string]json.RawMessage, error) {
	rows, err := db.Query(ctx, `SELECT reporting_code, payload FROM tax_rates`)
	if err != nil {
		return nil, errors.InternalWrap(err, "query tax_rates")
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var code string
		var raw []byte
		if err := rows.Scan(&code, &raw); err != nil {
			return nil, errors.InternalWrap(err, "scan tax_rates row")
		}
		out[code] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalWrap(err, "iterate tax_rates")
	}
	return out, nil
}
