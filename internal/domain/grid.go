package domain

// Grid is a structured set of sample locations. Points are flattened with
// longitude varying fastest, matching the order of velocity and pressure values.
type Grid interface {
	Points() []Point
	Len() int
}

// RectilinearGrid is the product of two explicit coordinate axes.
type RectilinearGrid struct {
	Lon []float64 `msgpack:"lon"`
	Lat []float64 `msgpack:"lat"`
}

// Len returns the number of grid points.
func (g RectilinearGrid) Len() int { return len(g.Lon) * len(g.Lat) }

// Points returns every (lon, lat) combination, longitude fastest.
func (g RectilinearGrid) Points() []Point {
	pts := make([]Point, 0, g.Len())
	for _, lat := range g.Lat {
		for _, lon := range g.Lon {
			pts = append(pts, Point{Lon: lon, Lat: lat})
		}
	}
	return pts
}

// At returns the point at row j (latitude index) and column i (longitude index).
func (g RectilinearGrid) At(i, j int) Point {
	return Point{Lon: g.Lon[i], Lat: g.Lat[j]}
}

// RegularGrid describes an evenly spaced grid by origin, step and count.
// Coordinates are regenerated as origin + index*step on every call so no
// rounding accumulates along an axis.
type RegularGrid struct {
	Origin  Point   `msgpack:"origin"` // south-west corner
	StepLon float64 `msgpack:"step_lon"`
	StepLat float64 `msgpack:"step_lat"`
	NLon    int     `msgpack:"n_lon"`
	NLat    int     `msgpack:"n_lat"`
}

// Len returns the number of grid points.
func (g RegularGrid) Len() int { return g.NLon * g.NLat }

// Points returns the grid points, longitude fastest.
func (g RegularGrid) Points() []Point {
	pts := make([]Point, 0, g.Len())
	for j := 0; j < g.NLat; j++ {
		lat := g.Origin.Lat + float64(j)*g.StepLat
		for i := 0; i < g.NLon; i++ {
			pts = append(pts, Point{Lon: g.Origin.Lon + float64(i)*g.StepLon, Lat: lat})
		}
	}
	return pts
}

// Index returns the flattened position of column i and row j.
func (g RegularGrid) Index(i, j int) int { return j*g.NLon + i }
