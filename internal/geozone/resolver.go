package geozone

// Resolver answers reporting-code lookups by coordinate against an in-memory
// two-tier index: city polygons are checked first, county polygons second,
// and the first match wins within each tier.
type Resolver struct {
	city   *Dataset
	county *Dataset
}

// NewResolver builds a Resolver from already-flattened city and county
// datasets. Loading and flattening the underlying region rows is the
// responsibility of the repository layer.
func NewResolver(city, county *Dataset) *Resolver {
	return &Resolver{city: city, county: county}
}

// Resolve returns the reporting code covering the given coordinate, or ok=false
// if the coordinate falls outside both the city and county layers.
func (r *Resolver) Resolve(c Coordinate) (code string, ok bool, err error) {
	if err := c.Validate(); err != nil {
		return "", false, err
	}
	p := projectToUTM18N(c.Longitude, c.Latitude)

	if code, ok := r.city.find(p); ok {
		return code, true, nil
	}
	if code, ok := r.county.find(p); ok {
		return code, true, nil
	}
	return "", false, nil
}

// ResolveBatch resolves many coordinates at once. It mirrors Resolve's
// tiering: every coordinate is checked against the city layer first, then
// only the coordinates still unresolved are checked against the county
// layer, avoiding redundant county scans for points already matched.
func (r *Resolver) ResolveBatch(coords []Coordinate) ([]string, []error) {
	codes := make([]string, len(coords))
	errs := make([]error, len(coords))
	unresolved := make([]int, 0, len(coords))

	for i, c := range coords {
		if err := c.Validate(); err != nil {
			errs[i] = err
			continue
		}
		p := projectToUTM18N(c.Longitude, c.Latitude)
		if code, ok := r.city.find(p); ok {
			codes[i] = code
			continue
		}
		unresolved = append(unresolved, i)
	}

	for _, i := range unresolved {
		p := projectToUTM18N(coords[i].Longitude, coords[i].Latitude)
		if code, ok := r.county.find(p); ok {
			codes[i] = code
		}
	}

	return codes, errs
}
