// Package owi reads Oceanweather (OWI) basin archives: a control file plus a
// pressure file and a wind file that must agree snapshot by snapshot.
package owi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

var (
	// fileHeaderRe matches the start/end stamps that close the first line of each file.
	fileHeaderRe = regexp.MustCompile(`(\d{10})\s+(\d{10})`)

	// snapHeaderRe matches e.g.
	// "iLat= 100iLong= 120DX=0.2500DY=0.2500SWLat=10.00000SWLon=-98.0000DT=200809010000"
	snapHeaderRe = regexp.MustCompile(`iLat=\s*(\d+)\s*iLong=\s*(\d+)\s*DX=\s*([-+0-9.Ee]+)\s*DY=\s*([-+0-9.Ee]+)\s*` +
		`SWLat=\s*([-+0-9.Ee]+)\s*SWLon=\s*([-+0-9.Ee]+)\s*DT=\s*(\d{12})`)
)

// Header is the start/end span declared on the first line of a file.
type Header struct {
	Start time.Time
	End   time.Time
}

// blockHeader is one parsed snapshot header.
type blockHeader struct {
	Grid domain.RegularGrid
	Time time.Time
}

// Parse reads a pressure file and its paired wind file. Sources name the files
// in diagnostics.
func Parse(pressure, wind io.Reader, pressureSource, windSource string) ([]*domain.GriddedSnapshot, Header, error) {
	ps := parser.NewScanner(pressure, pressureSource)
	hdr, err := readFileHeader(ps)
	if err != nil {
		return nil, Header{}, err
	}

	var snaps []*domain.GriddedSnapshot
	for {
		more, err := ps.Peek()
		if err != nil {
			return nil, Header{}, fmt.Errorf("read %s: %w", pressureSource, err)
		}
		if !more {
			break
		}
		bh, err := readBlockHeader(ps)
		if err != nil {
			return nil, Header{}, err
		}
		p, err := ps.Floats(bh.Grid.Len(), "pressure", nil)
		if err != nil {
			return nil, Header{}, err
		}
		snaps = append(snaps, &domain.GriddedSnapshot{Time: bh.Time, Coords: bh.Grid, Pressure: p})
	}

	ws := parser.NewScanner(wind, windSource)
	whdr, err := readFileHeader(ws)
	if err != nil {
		return nil, Header{}, err
	}
	if !whdr.Start.Equal(hdr.Start) || !whdr.End.Equal(hdr.End) {
		return nil, Header{}, &domain.InconsistentPairedFileError{
			Time:     hdr.Start,
			Field:    "start/end",
			Pressure: fmt.Sprintf("%s-%s", hdr.Start.Format(parser.HourLayout), hdr.End.Format(parser.HourLayout)),
			Wind:     fmt.Sprintf("%s-%s", whdr.Start.Format(parser.HourLayout), whdr.End.Format(parser.HourLayout)),
		}
	}

	for i, snap := range snaps {
		more, err := ws.Peek()
		if err != nil {
			return nil, Header{}, fmt.Errorf("read %s: %w", windSource, err)
		}
		if !more {
			return nil, Header{}, &domain.InconsistentPairedFileError{
				Time: snap.Time, Field: "snapshot count",
				Pressure: strconv.Itoa(len(snaps)), Wind: strconv.Itoa(i),
			}
		}
		bh, err := readBlockHeader(ws)
		if err != nil {
			return nil, Header{}, err
		}
		if err := compareHeaders(snap, bh); err != nil {
			return nil, Header{}, err
		}
		if snap.VX, err = ws.Floats(bh.Grid.Len(), "u wind", nil); err != nil {
			return nil, Header{}, err
		}
		if snap.VY, err = ws.Floats(bh.Grid.Len(), "v wind", nil); err != nil {
			return nil, Header{}, err
		}
	}

	more, err := ws.Peek()
	if err != nil {
		return nil, Header{}, fmt.Errorf("read %s: %w", windSource, err)
	}
	if more {
		extra := hdr.End
		if bh, err := readBlockHeader(ws); err == nil {
			extra = bh.Time
		}
		return nil, Header{}, &domain.InconsistentPairedFileError{
			Time: extra, Field: "snapshot count",
			Pressure: strconv.Itoa(len(snaps)), Wind: fmt.Sprintf("more than %d", len(snaps)),
		}
	}
	return snaps, hdr, nil
}

func compareHeaders(p *domain.GriddedSnapshot, w blockHeader) error {
	pg, wg := p.Coords, w.Grid
	mismatch := func(field string, pv, wv any) error {
		return &domain.InconsistentPairedFileError{Time: p.Time, Field: field, Pressure: fmt.Sprint(pv), Wind: fmt.Sprint(wv)}
	}
	switch {
	case !p.Time.Equal(w.Time):
		return mismatch("DT", p.Time.Format(parser.MinuteLayout), w.Time.Format(parser.MinuteLayout))
	case pg.NLat != wg.NLat:
		return mismatch("iLat", pg.NLat, wg.NLat)
	case pg.NLon != wg.NLon:
		return mismatch("iLong", pg.NLon, wg.NLon)
	case pg.StepLon != wg.StepLon:
		return mismatch("DX", pg.StepLon, wg.StepLon)
	case pg.StepLat != wg.StepLat:
		return mismatch("DY", pg.StepLat, wg.StepLat)
	case pg.Origin.Lat != wg.Origin.Lat:
		return mismatch("SWLat", pg.Origin.Lat, wg.Origin.Lat)
	case pg.Origin.Lon != wg.Origin.Lon:
		return mismatch("SWLon", pg.Origin.Lon, wg.Origin.Lon)
	}
	return nil
}

func readFileHeader(s *parser.Scanner) (Header, error) {
	line, err := s.Next("file header")
	if err != nil {
		return Header{}, err
	}
	m := fileHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return Header{}, s.Errorf("missing start/end header")
	}
	start, errS := parser.ParseHour(m[1])
	end, errE := parser.ParseHour(m[2])
	if errS != nil || errE != nil {
		return Header{}, s.Errorf("bad start/end stamps %q %q", m[1], m[2])
	}
	return Header{Start: start, End: end}, nil
}

func readBlockHeader(s *parser.Scanner) (blockHeader, error) {
	line, err := s.Next("snapshot header")
	if err != nil {
		return blockHeader{}, err
	}
	m := snapHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return blockHeader{}, s.Errorf("missing iLat=/iLong=/DX=/DY=/SWLat=/SWLon=/DT= header")
	}

	var bh blockHeader
	nLat, err1 := strconv.Atoi(m[1])
	nLon, err2 := strconv.Atoi(m[2])
	dx, err3 := strconv.ParseFloat(m[3], 64)
	dy, err4 := strconv.ParseFloat(m[4], 64)
	swLat, err5 := strconv.ParseFloat(m[5], 64)
	swLon, err6 := strconv.ParseFloat(m[6], 64)
	ts, err7 := parser.ParseMinute(m[7])
	if err := errors.Join(err1, err2, err3, err4, err5, err6, err7); err != nil {
		return blockHeader{}, s.Errorf("bad snapshot header: %v", err)
	}
	if nLat < 1 || nLon < 1 || dx <= 0 || dy <= 0 {
		return blockHeader{}, s.Errorf("degenerate grid iLat=%d iLong=%d DX=%g DY=%g", nLat, nLon, dx, dy)
	}

	bh.Time = ts
	bh.Grid = domain.RegularGrid{
		Origin:  domain.Point{Lon: swLon, Lat: swLat},
		StepLon: dx,
		StepLat: dy,
		NLon:    nLon,
		NLat:    nLat,
	}
	return bh, nil
}

// Load reads the control file at path and its basin pressure/wind pair.
func Load(path string, logger *slog.Logger) ([]*domain.GriddedSnapshot, *Control, error) {
	ctl, err := LoadControl(path)
	if err != nil {
		return nil, nil, err
	}
	if ctl.Fields == 2 {
		logger.Warn("regional OWI grids are not supported, using the basin pair only",
			"control", path, "regional_pressure", path+"3", "regional_wind", path+"4")
	}

	pf, err := os.Open(ctl.PressureFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open owi pressure file: %w", err)
	}
	defer pf.Close()

	wf, err := os.Open(ctl.WindFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open owi wind file: %w", err)
	}
	defer wf.Close()

	snaps, hdr, err := Parse(pf, wf, ctl.PressureFile, ctl.WindFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("owi basin parsed",
		"pressure", ctl.PressureFile,
		"wind", ctl.WindFile,
		"start", hdr.Start,
		"end", hdr.End,
		"snapshots", len(snaps),
	)
	return snaps, ctl, nil
}
