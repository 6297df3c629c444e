package main

import (
	"math"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/mesh"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser/hwind"
)

const (
	kmPerDegree   = 111.195
	gridSpacingKM = 10.0
	gridHalfWidth = 30 // points either side of the eye
	ambientMB     = 1013.0
	meshStepDeg   = 0.25
)

// fix is the storm state at one archive time.
type fix struct {
	Time            time.Time
	Eye             domain.Point
	MaxWind         float64 // m/s
	RadiusKM        float64
	CentralPressure float64 // mb
	Ramp            float64
}

// newTrack moves a strengthening vortex north-west across the Gulf. The first
// snapshot is ramped to half strength.
func newTrack(start time.Time, n int, interval time.Duration) []fix {
	track := make([]fix, n)
	for i := range track {
		vmax := 35 + 3*float64(i)
		track[i] = fix{
			Time:            start.Add(time.Duration(i) * interval),
			Eye:             domain.Point{Lon: -86 - 0.4*float64(i), Lat: 25 + 0.5*float64(i)},
			MaxWind:         vmax,
			RadiusKM:        40,
			CentralPressure: ambientMB - 0.9*vmax,
			Ramp:            1,
		}
	}
	track[0].Ramp = 0.5
	return track
}

// wind evaluates a Rankine vortex turning anticlockwise about the eye, with
// (dx, dy) the eastward and northward offsets in km.
func (f fix) wind(dx, dy float64) (u, v float64) {
	r := math.Hypot(dx, dy)
	if r == 0 {
		return 0, 0
	}
	speed := f.MaxWind * math.Sqrt(f.RadiusKM/r)
	if r < f.RadiusKM {
		speed = f.MaxWind * r / f.RadiusKM
	}
	return -speed * dy / r, speed * dx / r
}

func (f fix) pressure(r float64) float64 {
	if r == 0 {
		return f.CentralPressure
	}
	return f.CentralPressure + (ambientMB-f.CentralPressure)*math.Exp(-f.RadiusKM/r)
}

// offsetKM returns the local east/north offset of p from the eye.
func (f fix) offsetKM(p domain.Point) (dx, dy float64) {
	return (p.Lon - f.Eye.Lon) * kmPerDegree * math.Cos(f.Eye.Lat*math.Pi/180),
		(p.Lat - f.Eye.Lat) * kmPerDegree
}

func (f fix) hwindGrid() *hwind.GridFile {
	n := 2*gridHalfWidth + 1
	g := &hwind.GridFile{
		Title:     "SYNTHETIC RANKINE VORTEX " + f.Time.Format(time.RFC3339),
		SpacingKM: gridSpacingKM,
		Eye:       f.Eye,
		X:         make([]float64, n),
		Y:         make([]float64, n),
		Lon:       make([]float64, n),
		Lat:       make([]float64, n),
		VX:        make([]float64, 0, n*n),
		VY:        make([]float64, 0, n*n),
	}
	cosLat := math.Cos(f.Eye.Lat * math.Pi / 180)
	for i := range n {
		km := float64(i-gridHalfWidth) * gridSpacingKM
		g.X[i], g.Y[i] = km, km
		g.Lon[i] = f.Eye.Lon + km/(kmPerDegree*cosLat)
		g.Lat[i] = f.Eye.Lat + km/kmPerDegree
	}
	for _, y := range g.Y {
		for _, x := range g.X {
			u, v := f.wind(x, y)
			g.VX = append(g.VX, u)
			g.VY = append(g.VY, v)
		}
	}
	return g
}

func (f fix) gridded(basin domain.RegularGrid) *domain.GriddedSnapshot {
	pts := basin.Points()
	s := &domain.GriddedSnapshot{
		Time:     f.Time,
		Coords:   basin,
		VX:       make([]float64, len(pts)),
		VY:       make([]float64, len(pts)),
		Pressure: make([]float64, len(pts)),
	}
	for k, p := range pts {
		dx, dy := f.offsetKM(p)
		s.VX[k], s.VY[k] = f.wind(dx, dy)
		s.Pressure[k] = f.pressure(domain.GreatCircleDistance(f.Eye, p))
	}
	return s
}

// bounds returns the box swept by the track, padded by pad degrees.
func bounds(track []fix, pad float64) (sw, ne domain.Point) {
	sw, ne = track[0].Eye, track[0].Eye
	for _, f := range track[1:] {
		sw.Lon, sw.Lat = math.Min(sw.Lon, f.Eye.Lon), math.Min(sw.Lat, f.Eye.Lat)
		ne.Lon, ne.Lat = math.Max(ne.Lon, f.Eye.Lon), math.Max(ne.Lat, f.Eye.Lat)
	}
	return sw.Add(-pad, -pad), ne.Add(pad, pad)
}

func basinGrid(track []fix) domain.RegularGrid {
	sw, ne := bounds(track, 4)
	return domain.RegularGrid{
		Origin:  sw,
		StepLon: meshStepDeg,
		StepLat: meshStepDeg,
		NLon:    int(math.Round((ne.Lon-sw.Lon)/meshStepDeg)) + 1,
		NLat:    int(math.Round((ne.Lat-sw.Lat)/meshStepDeg)) + 1,
	}
}

// trackMesh triangulates a regular lattice under the track, two triangles per
// cell, with depth deepening to the south.
func trackMesh(track []fix) *mesh.Mesh {
	sw, ne := bounds(track, 1)
	nLon := int(math.Round((ne.Lon-sw.Lon)/meshStepDeg)) + 1
	nLat := int(math.Round((ne.Lat-sw.Lat)/meshStepDeg)) + 1

	m := &mesh.Mesh{Name: "synthetic track lattice"}
	id := func(i, j int) int { return j*nLon + i + 1 }
	for j := range nLat {
		for i := range nLon {
			m.Nodes = append(m.Nodes, mesh.Node{
				ID:    id(i, j),
				Point: sw.Add(float64(i)*meshStepDeg, float64(j)*meshStepDeg),
				Depth: 3000 - 100*float64(j),
			})
		}
	}
	for j := 0; j < nLat-1; j++ {
		for i := 0; i < nLon-1; i++ {
			m.Elements = append(m.Elements,
				mesh.Element{ID: len(m.Elements) + 1, Nodes: [3]int{id(i, j), id(i+1, j), id(i+1, j+1)}},
				mesh.Element{ID: len(m.Elements) + 2, Nodes: [3]int{id(i, j), id(i+1, j+1), id(i, j+1)}},
			)
		}
	}
	return m
}
