package geozone

import "math"

// Projecting from geographic coordinates (EPSG:4326) to NAD83 / UTM zone 18N
// (EPSG:26918), the projected reference system the region polygons and their
// bounding boxes are stored in. New York City and most of New York State's
// counties fall within zone 18N, which is what the source shapefiles were
// authored against.
const (
	utmZone18NCentralMeridian = -75.0 // degrees
	utmFalseEasting           = 500000.0
	utmScaleFactor            = 0.9996

	// GRS80 ellipsoid parameters, the reference ellipsoid underlying NAD83.
	grs80SemiMajorAxis  = 6378137.0
	grs80Flattening     = 1.0 / 298.257222101
)

// projectToUTM18N converts a geographic coordinate (lon/lat, degrees) into
// planar UTM zone 18N coordinates (metres), using the standard transverse
// Mercator series expansion.
func projectToUTM18N(lon, lat float64) Point {
	a := grs80SemiMajorAxis
	f := grs80Flattening
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	lon0Rad := utmZone18NCentralMeridian * math.Pi / 180

	n := a / math.Sqrt(1-e2*math.Sin(latRad)*math.Sin(latRad))
	t := math.Tan(latRad) * math.Tan(latRad)
	c := ep2 * math.Cos(latRad) * math.Cos(latRad)
	aCoef := (lonRad - lon0Rad) * math.Cos(latRad)

	m := a * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*latRad -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*latRad) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*latRad) -
		(35*e2*e2*e2/3072)*math.Sin(6*latRad))

	easting := utmFalseEasting + utmScaleFactor*n*(aCoef+
		(1-t+c)*math.Pow(aCoef, 3)/6+
		(5-18*t+t*t+72*c-58*ep2)*math.Pow(aCoef, 5)/120)

	northing := utmScaleFactor * (m + n*math.Tan(latRad)*(aCoef*aCoef/2+
		(5-t+9*c+4*c*c)*math.Pow(aCoef, 4)/24+
		(61-58*t+t*t+600*c-330*ep2)*math.Pow(aCoef, 6)/720))

	return Point{X: easting, Y: northing}
}
