// Package bootstrap seeds the tax rate catalog and region polygon tables
// from static JSON source files on first start. Once either table holds
// rows, its source file is ignored on every subsequent start.
package bootstrap

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/errors"
	"github.com/qhato/taxorders/pkg/logger"
)

// Config points at the static seed files. Either path may be empty, in
// which case that seed step is skipped.
type Config struct {
	TaxRatesPath  string
	TaxRegionsPath string
}

// Run seeds tax_rates and tax_regions if they're currently empty.
func Run(ctx context.Context, db *database.DB, cfg Config) error {
	if err := seedTaxRates(ctx, db, cfg.TaxRatesPath); err != nil {
		return err
	}
	if err := seedTaxRegions(ctx, db, cfg.TaxRegionsPath); err != nil {
		return err
	}
	return nil
}

func tableIsEmpty(ctx context.Context, db *database.DB, table string) (bool, error) {
	var count int64
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return false, errors.InternalWrap(err, "count rows in "+table)
	}
	return count == 0, nil
}

type taxRateSeedRow struct {
	ReportingCode string          `json:"reporting_code"`
	Payload       json.RawMessage `json:"payload"`
}

func seedTaxRates(ctx context.Context, db *database.DB, path string) error {
	if path == "" {
		return nil
	}
	empty, err := tableIsEmpty(ctx, db, "tax_rates")
	if err != nil || !empty {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.InternalWrap(err, "read tax rates seed file")
	}
	var rows []taxRateSeedRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return errors.InternalWrap(err, "decode tax rates seed file")
	}

	err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, row := range rows {
			if _, err := tx.Exec(ctx,
				`INSERT INTO tax_rates (reporting_code, payload) VALUES ($1, $2)
				 ON CONFLICT (reporting_code) DO NOTHING`,
				row.ReportingCode, row.Payload,
			); err != nil {
				return errors.InternalWrap(err, "insert seeded tax rate")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.WithField("rows", len(rows)).Info("seeded tax_rates from static catalog")
	return nil
}

type taxRegionSeedRow struct {
	ReportingCode string            `json:"reporting_code"`
	Tier          string            `json:"tier"`
	Parts         [][][2]float64    `json:"parts"`
}

func seedTaxRegions(ctx context.Context, db *database.DB, path string) error {
	if path == "" {
		return nil
	}
	empty, err := tableIsEmpty(ctx, db, "tax_regions")
	if err != nil || !empty {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.InternalWrap(err, "read tax regions seed file")
	}
	var rows []taxRegionSeedRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return errors.InternalWrap(err, "decode tax regions seed file")
	}

	err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, row := range rows {
			parts, err := json.Marshal(row.Parts)
			if err != nil {
				return errors.InternalWrap(err, "re-encode region parts")
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO tax_regions (reporting_code, tier, parts) VALUES ($1, $2, $3)`,
				row.ReportingCode, row.Tier, parts,
			); err != nil {
				return errors.InternalWrap(err, "insert seeded tax region")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.WithField("rows", len(rows)).Info("seeded tax_regions from static boundary data")
	return nil
}
