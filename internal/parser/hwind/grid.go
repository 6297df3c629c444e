package hwind

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

var (
	// spacingRe matches "DX=DY= 6.02280 KILOMETERS."
	spacingRe = regexp.MustCompile(`DX=DY=\s*([-+0-9.eE]+)`)

	// centerRe matches "STORM CENTER LOCALE IS -88.3300 EAST LONGITUDE and 28.7100 NORTH LATITUDE ..."
	centerRe = regexp.MustCompile(`STORM CENTER LOCALE IS\s+([-+0-9.eE]+)\s+EAST LONGITUDE and\s+([-+0-9.eE]+)\s+NORTH LATITUDE`)

	pairCleaner = strings.NewReplacer("(", " ", ")", " ", ",", " ")
)

// GridFile is the content of one HWIND analysis file.
type GridFile struct {
	Title     string
	SpacingKM float64
	Eye       domain.Point
	X, Y      []float64 // km from the eye
	Lon, Lat  []float64
	VX, VY    []float64 // flattened, longitude fastest
}

// ParseGridFile reads the HWIND analysis at path.
func ParseGridFile(path string) (*GridFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hwind grid: %w", err)
	}
	defer f.Close()
	return ParseGrid(f, path)
}

// ParseGrid reads one HWIND analysis. source names the file in diagnostics.
func ParseGrid(r io.Reader, source string) (*GridFile, error) {
	s := parser.NewScanner(r, source)
	g := &GridFile{}

	title, err := s.Next("title line")
	if err != nil {
		return nil, err
	}
	g.Title = strings.TrimSpace(title)

	line, err := s.Next("DX=DY= header")
	if err != nil {
		return nil, err
	}
	m := spacingRe.FindStringSubmatch(line)
	if m == nil {
		return nil, s.Errorf("missing DX=DY= header")
	}
	if g.SpacingKM, err = strconv.ParseFloat(m[1], 64); err != nil {
		return nil, s.Errorf("bad grid spacing %q", m[1])
	}

	if line, err = s.Next("storm center locale"); err != nil {
		return nil, err
	}
	m = centerRe.FindStringSubmatch(line)
	if m == nil {
		return nil, s.Errorf("missing STORM CENTER LOCALE header")
	}
	lon, errLon := strconv.ParseFloat(m[1], 64)
	lat, errLat := strconv.ParseFloat(m[2], 64)
	if errLon != nil || errLat != nil {
		return nil, s.Errorf("bad storm center %q, %q", m[1], m[2])
	}
	g.Eye = domain.Point{Lon: lon, Lat: lat}

	axes := []struct {
		name string
		dst  *[]float64
	}{
		{"x coordinate", &g.X},
		{"y coordinate", &g.Y},
		{"longitude", &g.Lon},
		{"latitude", &g.Lat},
	}
	for _, ax := range axes {
		if *ax.dst, err = countedBlock(s, ax.name); err != nil {
			return nil, err
		}
	}
	if len(g.X) != len(g.Lon) || len(g.Y) != len(g.Lat) {
		return nil, s.Errorf("x/y axes (%d, %d) do not match lon/lat axes (%d, %d)",
			len(g.X), len(g.Y), len(g.Lon), len(g.Lat))
	}

	if err := s.Skip("velocity label"); err != nil {
		return nil, err
	}
	if line, err = s.Next("velocity grid dimensions"); err != nil {
		return nil, err
	}
	dims := strings.Fields(line)
	if len(dims) < 2 {
		return nil, s.Errorf("expected \"<nx> <ny>\", got %q", line)
	}
	nx, errX := strconv.Atoi(dims[0])
	ny, errY := strconv.Atoi(dims[1])
	if errX != nil || errY != nil {
		return nil, s.Errorf("expected \"<nx> <ny>\", got %q", line)
	}
	if nx != len(g.Lon) || ny != len(g.Lat) {
		return nil, s.Errorf("velocity grid %dx%d does not match %d longitudes by %d latitudes",
			nx, ny, len(g.Lon), len(g.Lat))
	}

	g.VX = make([]float64, 0, nx*ny)
	g.VY = make([]float64, 0, nx*ny)
	for j := 0; j < ny; j++ {
		row, err := s.Floats(2*nx, fmt.Sprintf("velocity row %d", j+1), pairCleaner.Replace)
		if err != nil {
			return nil, err
		}
		for i := 0; i < nx; i++ {
			g.VX = append(g.VX, row[2*i])
			g.VY = append(g.VY, row[2*i+1])
		}
	}
	return g, nil
}

// countedBlock reads "<label>", "<count>", then count values.
func countedBlock(s *parser.Scanner, name string) ([]float64, error) {
	if err := s.Skip(name + " label"); err != nil {
		return nil, err
	}
	n, err := s.Int(name + " count")
	if err != nil {
		return nil, err
	}
	return s.Floats(n, name, nil)
}

// Snapshot converts the grid into a storm snapshot, deriving the maximum wind
// and its radius from the eye.
func (g *GridFile) Snapshot(e Entry) *domain.StormSnapshot {
	coords := domain.RectilinearGrid{Lon: g.Lon, Lat: g.Lat}
	snap := &domain.StormSnapshot{
		Time:            e.Time,
		Coords:          coords,
		VX:              g.VX,
		VY:              g.VY,
		Eye:             g.Eye,
		CentralPressure: e.CentralPressure,
		Ramp:            e.Ramp,
		GridSpacingKM:   g.SpacingKM,
		Source:          e.File,
	}
	if vmax, idx := domain.MaxWind(g.VX, g.VY); idx >= 0 {
		snap.MaxWindSpeed = vmax
		snap.MaxWindRadius = domain.GreatCircleDistance(g.Eye, coords.At(idx%len(g.Lon), idx/len(g.Lon)))
	}
	return snap
}
