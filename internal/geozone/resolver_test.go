package geozone

import "testing"

func square(minLon, minLat, maxLon, maxLat float64, code string, tier Tier) Region {
	ring := []Point{
		projectToUTM18N(minLon, minLat),
		projectToUTM18N(maxLon, minLat),
		projectToUTM18N(maxLon, maxLat),
		projectToUTM18N(minLon, maxLat),
	}
	bbox := [4]float64{math_Inf, math_Inf, -math_Inf, -math_Inf}
	for _, p := range ring {
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
	return Region{ReportingCode: code, Tier: tier, BBox: bbox, Parts: [][]Point{ring}}
}

const math_Inf = 1e308

func TestResolve_CityWinsOverCounty(t *testing.T) {
	city := BuildDataset([]Region{square(-74.01, 40.70, -73.99, 40.72, "NYC", TierCity)})
	county := BuildDataset([]Region{square(-74.5, 40.5, -73.5, 41.0, "COUNTY", TierCounty)})
	r := NewResolver(city, county)

	code, ok, err := r.Resolve(Coordinate{Latitude: 40.71, Longitude: -74.00})
	if err != nil || !ok || code != "NYC" {
		t.Fatalf("expected NYC match, got code=%q ok=%v err=%v", code, ok, err)
	}
}

func TestResolve_FallsBackToCounty(t *testing.T) {
	city := BuildDataset([]Region{square(-74.01, 40.70, -73.99, 40.72, "NYC", TierCity)})
	county := BuildDataset([]Region{square(-74.5, 40.5, -73.5, 41.0, "COUNTY", TierCounty)})
	r := NewResolver(city, county)

	code, ok, err := r.Resolve(Coordinate{Latitude: 40.90, Longitude: -74.20})
	if err != nil || !ok || code != "COUNTY" {
		t.Fatalf("expected COUNTY match, got code=%q ok=%v err=%v", code, ok, err)
	}
}

func TestResolve_OutsideCoverage(t *testing.T) {
	city := BuildDataset([]Region{square(-74.01, 40.70, -73.99, 40.72, "NYC", TierCity)})
	county := BuildDataset(nil)
	r := NewResolver(city, county)

	_, ok, err := r.Resolve(Coordinate{Latitude: 10, Longitude: 10})
	if err != nil || ok {
		t.Fatalf("expected no match, got ok=%v err=%v", ok, err)
	}
}

func TestResolve_InvalidCoordinate(t *testing.T) {
	r := NewResolver(BuildDataset(nil), BuildDataset(nil))
	if _, _, err := r.Resolve(Coordinate{Latitude: 120, Longitude: 0}); err == nil {
		t.Fatal("expected validation error for out-of-range latitude")
	}
}

func TestNormalizeReportingCode(t *testing.T) {
	cases := map[string]string{
		"36061": "36061",
		"61":    "0061",
		" 61 ":  "0061",
		"NYC01": "NYC01",
	}
	for in, want := range cases {
		got, err := NormalizeReportingCode(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Errorf("NormalizeReportingCode(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := NormalizeReportingCode("   "); err == nil {
		t.Fatal("expected error for blank code")
	}
}
