package geozone

import (
	"context"
	"encoding/json"
	"math"

	"github.com/qhato/taxorders/pkg/database"
	"github.com/qhato/taxorders/pkg/errors"
)

// RegionRepository loads the raw region rows (city and county tiers) that
// back a Resolver. Rows are stored with geographic (lon/lat, EPSG:4326)
// ring coordinates; projection into the planar reference system happens
// once, at load time, in LoadResolver.
type RegionRepository struct {
	db *database.DB
}

func NewRegionRepository(db *database.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

// rawRegion mirrors the tax_regions table: parts is a JSON array of rings,
// each ring a JSON array of [lon, lat] pairs.
type rawRegion struct {
	ReportingCode string
	Tier          string
	Parts         [][][2]float64
}

func (repo *RegionRepository) loadTier(ctx context.Context, tier Tier) ([]rawRegion, error) {
	rows, err := repo.db.Query(ctx,
		`SELECT reporting_code, tier, parts FROM tax_regions WHERE tier = $1 ORDER BY id`,
		string(tier),
	)
	if err != nil {
		return nil, errors.InternalWrap(err, "query tax_regions")
	}
	defer rows.Close()

	var out []rawRegion
	for rows.Next() {
		var r rawRegion
		var partsRaw []byte
		if err := rows.Scan(&r.ReportingCode, &r.Tier, &partsRaw); err != nil {
			return nil, errors.InternalWrap(err, "scan tax_regions row")
		}
		if err := json.Unmarshal(partsRaw, &r.Parts); err != nil {
			return nil, errors.InternalWrap(err, "decode tax_regions.parts")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalWrap(err, "iterate tax_regions")
	}
	return out, nil
}

// LoadResolver reads the city and county region tables in full and builds a
// ready-to-query Resolver. This is meant to run once at process startup;
// the resulting Resolver holds everything in memory.
func (repo *RegionRepository) LoadResolver(ctx context.Context) (*Resolver, error) {
	cityRows, err := repo.loadTier(ctx, TierCity)
	if err != nil {
		return nil, err
	}
	countyRows, err := repo.loadTier(ctx, TierCounty)
	if err != nil {
		return nil, err
	}

	cityDataset := BuildDataset(toProjectedRegions(cityRows, TierCity))
	countyDataset := BuildDataset(toProjectedRegions(countyRows, TierCounty))

	return NewResolver(cityDataset, countyDataset), nil
}

func toProjectedRegions(rows []rawRegion, tier Tier) []Region {
	regions := make([]Region, 0, len(rows))
	for _, r := range rows {
		code, err := NormalizeReportingCode(r.ReportingCode)
		if err != nil {
			continue
		}
		parts := make([][]Point, len(r.Parts))
		bbox := [4]float64{math.MaxFloat64, math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
		for i, ring := range r.Parts {
			pts := make([]Point, len(ring))
			for j, lonLat := range ring {
				p := projectToUTM18N(lonLat[0], lonLat[1])
				pts[j] = p
				if p.X < bbox[0] {
					bbox[0] = p.X
				}
				if p.Y < bbox[1] {
					bbox[1] = p.Y
				}
				if p.X > bbox[2] {
					bbox[2] = p.X
				}
				if p.Y > bbox[3] {
					bbox[3] = p.Y
				}
			}
			parts[i] = pts
		}
		regions = append(regions, Region{
			ReportingCode: code,
			Tier:          tier,
			BBox:          bbox,
			Parts:         parts,
		})
	}
	return regions
}
