// Package interp performs linear scattered-data interpolation over a Delaunay
// triangulation of the source points. Targets outside the convex hull get the
// caller's fill value exactly; nothing is extrapolated.
package interp

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/fogleman/delaunay"
)

// Fill values for points outside a source hull.
const (
	FillVelocity = 0.0
	FillPressure = 1013.0 // mb
)

// edgeTolerance admits targets that sit on a triangle edge up to rounding.
const edgeTolerance = 1e-10

// Mesh is an immutable triangulation of source points, safe for concurrent use.
type Mesh struct {
	n     int
	tris  []*triangle
	index *rtree.Rtree
}

// triangle embeds its outline so the R-tree can index it by bounds.
type triangle struct {
	geom.Polygon
	v   [3]int
	pts [3]domain.Point
	det float64
}

// Triangulate builds the Delaunay triangulation of src. Duplicate points are
// dropped from the triangulation; their values must agree with the kept copy.
func Triangulate(src []domain.Point) (*Mesh, error) {
	if len(src) < 3 {
		return nil, fmt.Errorf("triangulate: need at least 3 points, got %d", len(src))
	}

	pts := make([]delaunay.Point, len(src))
	for i, p := range src {
		pts[i] = delaunay.Point{X: p.Lon, Y: p.Lat}
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("triangulate %d points: %w", len(src), err)
	}
	if len(tri.Triangles) == 0 {
		return nil, errors.New("triangulate: source points are collinear")
	}

	m := &Mesh{n: len(src), index: rtree.NewTree(25, 50)}
	for k := 0; k+2 < len(tri.Triangles); k += 3 {
		t := newTriangle(src, tri.Triangles[k], tri.Triangles[k+1], tri.Triangles[k+2])
		if t.det == 0 {
			continue
		}
		m.tris = append(m.tris, t)
		m.index.Insert(t)
	}
	return m, nil
}

func newTriangle(src []domain.Point, a, b, c int) *triangle {
	t := &triangle{v: [3]int{a, b, c}, pts: [3]domain.Point{src[a], src[b], src[c]}}
	p := t.pts
	t.det = (p[1].Lat-p[2].Lat)*(p[0].Lon-p[2].Lon) + (p[2].Lon-p[1].Lon)*(p[0].Lat-p[2].Lat)
	t.Polygon = geom.Polygon{{
		{X: p[0].Lon, Y: p[0].Lat},
		{X: p[1].Lon, Y: p[1].Lat},
		{X: p[2].Lon, Y: p[2].Lat},
	}}
	return t
}

// barycentric returns the weights of q relative to the triangle's vertices.
func (t *triangle) barycentric(q domain.Point) [3]float64 {
	p := t.pts
	l0 := ((p[1].Lat-p[2].Lat)*(q.Lon-p[2].Lon) + (p[2].Lon-p[1].Lon)*(q.Lat-p[2].Lat)) / t.det
	l1 := ((p[2].Lat-p[0].Lat)*(q.Lon-p[2].Lon) + (p[0].Lon-p[2].Lon)*(q.Lat-p[2].Lat)) / t.det
	return [3]float64{l0, l1, 1 - l0 - l1}
}

// Len returns the number of source points the mesh was built from.
func (m *Mesh) Len() int { return m.n }

// Triangles returns the number of non-degenerate triangles.
func (m *Mesh) Triangles() int { return len(m.tris) }

// Weights is the interpolation stencil of one target point.
type Weights struct {
	Vertex [3]int
	Weight [3]float64
	Inside bool
}

// Stencil holds the weights of every target for one mesh. It is reused across
// channels so point location runs once per snapshot and query.
type Stencil []Weights

// Locate finds the enclosing triangle of every target after shifting the
// source by offset. Shifting the source by +offset is evaluated as sampling at
// target-offset, so a cached mesh serves any translation.
func (m *Mesh) Locate(targets []domain.Point, offset domain.Point) Stencil {
	st := make(Stencil, len(targets))
	for i, tp := range targets {
		q := tp.Add(-offset.Lon, -offset.Lat)
		st[i] = m.locate(q)
	}
	return st
}

func (m *Mesh) locate(q domain.Point) Weights {
	for _, g := range m.index.SearchIntersect(geom.NewBoundsPoint(geom.Point{X: q.Lon, Y: q.Lat})) {
		t := g.(*triangle)
		w := t.barycentric(q)
		if w[0] >= -edgeTolerance && w[1] >= -edgeTolerance && w[2] >= -edgeTolerance {
			return Weights{Vertex: t.v, Weight: w, Inside: true}
		}
	}
	return Weights{}
}

// Apply evaluates values (aligned with the mesh's source points) at every
// stencil target. Targets outside the hull receive fill.
func (s Stencil) Apply(values []float64, fill float64) []float64 {
	out := make([]float64, len(s))
	for i, w := range s {
		if !w.Inside {
			out[i] = fill
			continue
		}
		out[i] = w.Weight[0]*values[w.Vertex[0]] + w.Weight[1]*values[w.Vertex[1]] + w.Weight[2]*values[w.Vertex[2]]
	}
	return out
}

// Outside counts the targets that fall outside the hull.
func (s Stencil) Outside() int {
	n := 0
	for _, w := range s {
		if !w.Inside {
			n++
		}
	}
	return n
}

// Interpolate samples values at targets with the source shifted by offset.
func (m *Mesh) Interpolate(values []float64, targets []domain.Point, offset domain.Point, fill float64) ([]float64, error) {
	if len(values) != m.n {
		return nil, fmt.Errorf("interpolate: %d values for %d source points", len(values), m.n)
	}
	return m.Locate(targets, offset).Apply(values, fill), nil
}

// Interpolate triangulates src and samples values at targets in one call.
func Interpolate(src []domain.Point, values []float64, targets []domain.Point, fill float64) ([]float64, error) {
	if len(src) != len(values) {
		return nil, fmt.Errorf("interpolate: %d values for %d source points", len(values), len(src))
	}
	m, err := Triangulate(src)
	if err != nil {
		return nil, err
	}
	return m.Interpolate(values, targets, domain.Point{}, fill)
}
