package geozone

// Dataset is a columnar (struct-of-arrays) layout for a set of regions in a
// single tier, built once at load time so that repeated point resolution
// never allocates per-shape slices.
type Dataset struct {
	codes []string
	bbox  [][4]float64

	// partStarts[i]/partCounts[i] index into the flat parts arrays for region i.
	partStarts []int
	partCounts []int

	// For each part (ring), pointStarts/pointCounts index into pointsFlat.
	pointStarts []int
	pointCounts []int

	pointsFlat []Point
}

// BuildDataset flattens a slice of Regions into a Dataset. Region order is
// preserved; resolution walks regions in this order and returns the first
// match, so callers control tie-break priority via input order.
func BuildDataset(regions []Region) *Dataset {
	ds := &Dataset{
		codes: make([]string, len(regions)),
		bbox:  make([][4]float64, len(regions)),
	}
	for i, r := range regions {
		ds.codes[i] = r.ReportingCode
		ds.bbox[i] = r.BBox

		ds.partStarts = append(ds.partStarts, len(ds.pointStarts))
		ds.partCounts = append(ds.partCounts, len(r.Parts))

		for _, ring := range r.Parts {
			ds.pointStarts = append(ds.pointStarts, len(ds.pointsFlat))
			ds.pointCounts = append(ds.pointCounts, len(ring))
			ds.pointsFlat = append(ds.pointsFlat, ring...)
		}
	}
	return ds
}

// Len returns the number of regions held in the dataset.
func (ds *Dataset) Len() int {
	return len(ds.codes)
}

func (ds *Dataset) ring(partIdx int) []Point {
	start := ds.pointStarts[partIdx]
	count := ds.pointCounts[partIdx]
	return ds.pointsFlat[start : start+count]
}

// find walks the dataset in stored order and returns the reporting code of
// the first region containing p, or "" if none match.
func (ds *Dataset) find(p Point) (string, bool) {
	for i := 0; i < ds.Len(); i++ {
		bb := ds.bbox[i]
		if p.X < bb[0] || p.X > bb[2] || p.Y < bb[1] || p.Y > bb[3] {
			continue
		}
		partStart := ds.partStarts[i]
		partCount := ds.partCounts[i]
		inside := false
		for j := 0; j < partCount; j++ {
			ring := ds.ring(partStart + j)
			onEdge, parity := pointInRing(p, ring)
			if onEdge {
				return ds.codes[i], true
			}
			if parity {
				inside = !inside
			}
		}
		if inside {
			return ds.codes[i], true
		}
	}
	return "", false
}

const onSegmentEps = 1e-12

// pointInRing applies even-odd ray casting against a single ring. It returns
// (true, _) immediately if the point lies on the ring boundary (boundary
// points always count as inside their shape); otherwise it returns
// (false, parity) where parity is whether the ray crossed the ring an odd
// number of times.
func pointInRing(p Point, ring []Point) (onEdge bool, parity bool) {
	if len(ring) < 3 {
		return false, false
	}
	inside := false
	prev := ring[len(ring)-1]
	for _, curr := range ring {
		if pointOnSegment(p, prev, curr) {
			return true, false
		}
		if (curr.Y > p.Y) != (prev.Y > p.Y) {
			xIntersection := ((prev.X-curr.X)*(p.Y-curr.Y))/(prev.Y-curr.Y) + curr.X
			if p.X < xIntersection {
				inside = !inside
			}
		}
		prev = curr
	}
	return false, inside
}

func pointOnSegment(p, a, b Point) bool {
	cross := (p.Y-a.Y)*(b.X-a.X) - (p.X-a.X)*(b.Y-a.Y)
	if cross < 0 {
		cross = -cross
	}
	if cross > onSegmentEps {
		return false
	}
	minX, maxX := a.X, b.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a.Y, b.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return (minX-onSegmentEps) <= p.X && p.X <= (maxX+onSegmentEps) &&
		(minY-onSegmentEps) <= p.Y && p.Y <= (maxY+onSegmentEps)
}
