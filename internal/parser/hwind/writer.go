package hwind

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

const valuesPerLine = 8

// WriteGrid renders g in the layout ParseGrid reads.
func WriteGrid(w io.Writer, g *GridFile) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, g.Title)
	fmt.Fprintf(bw, "DX=DY= %s KILOMETERS.\n", parser.FormatFloat(g.SpacingKM))
	fmt.Fprintf(bw, "STORM CENTER LOCALE IS %s EAST LONGITUDE and %s NORTH LATITUDE ... STORM CENTER IS AT (X,Y)=(0,0)\n",
		parser.FormatFloat(g.Eye.Lon), parser.FormatFloat(g.Eye.Lat))

	blocks := []struct {
		label  string
		values []float64
	}{
		{"X COORDINATES (KM)", g.X},
		{"Y COORDINATES (KM)", g.Y},
		{"LONGITUDE COORDINATES (DEG)", g.Lon},
		{"LATITUDE COORDINATES (DEG)", g.Lat},
	}
	for _, blk := range blocks {
		fmt.Fprintln(bw, blk.label)
		fmt.Fprintf(bw, "%d\n", len(blk.values))
		if err := parser.WriteValues(bw, blk.values, valuesPerLine, parser.FormatFloat); err != nil {
			return err
		}
	}

	nx, ny := len(g.Lon), len(g.Lat)
	fmt.Fprintln(bw, "SURFACE WIND COMPONENTS (U,V) IN METERS PER SECOND")
	fmt.Fprintf(bw, "%d %d\n", nx, ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			k := j*nx + i
			fmt.Fprintf(bw, " (%s, %s)", parser.FormatFloat(g.VX[k]), parser.FormatFloat(g.VY[k]))
			if (i+1)%4 == 0 || i == nx-1 {
				fmt.Fprintln(bw)
			}
		}
	}
	return bw.Flush()
}

// WriteManifest renders m with five-column rows. Entry files are written as given.
func WriteManifest(w io.Writer, m *Manifest, times []string) error {
	if len(times) != len(m.Entries) {
		return fmt.Errorf("write manifest: %d times for %d entries", len(times), len(m.Entries))
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, m.Title)
	fmt.Fprintln(bw, parser.FormatFloat(m.Multiplier))
	fmt.Fprintln(bw, m.Relationship)
	for i, e := range m.Entries {
		pc := "-"
		if !math.IsNaN(e.CentralPressure) {
			pc = parser.FormatFloat(e.CentralPressure)
		}
		fmt.Fprintf(bw, "%d %s %s %s %s\n", e.Index, times[i], pc, parser.FormatFloat(e.Ramp), e.File)
	}
	return bw.Flush()
}
