package domain

import "math"

// EarthRadiusKM is the mean earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Point is a longitude/latitude pair in degrees.
type Point struct {
	Lon float64 `msgpack:"lon" json:"lon"`
	Lat float64 `msgpack:"lat" json:"lat"`
}

// Add returns p translated by (dLon, dLat) degrees.
func (p Point) Add(dLon, dLat float64) Point {
	return Point{Lon: p.Lon + dLon, Lat: p.Lat + dLat}
}

// GreatCircleDistance returns the haversine distance between a and b in kilometres.
func GreatCircleDistance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}
