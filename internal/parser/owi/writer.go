package owi

import (
	"bufio"
	"fmt"
	"io"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

const valuesPerLine = 8

// Write renders snaps as a pressure file and a wind file in the layout Parse reads.
func Write(pressure, wind io.Writer, hdr Header, snaps []*domain.GriddedSnapshot) error {
	pw := bufio.NewWriter(pressure)
	ww := bufio.NewWriter(wind)

	first := fmt.Sprintf("Oceanweather WIN/PRE Format                            %s     %s\n",
		hdr.Start.Format(parser.HourLayout), hdr.End.Format(parser.HourLayout))
	fmt.Fprint(pw, first)
	fmt.Fprint(ww, first)

	for _, s := range snaps {
		h := blockHeaderLine(s)
		fmt.Fprintln(pw, h)
		if err := parser.WriteValues(pw, s.Pressure, valuesPerLine, formatValue); err != nil {
			return err
		}
		fmt.Fprintln(ww, h)
		if err := parser.WriteValues(ww, s.VX, valuesPerLine, formatValue); err != nil {
			return err
		}
		if err := parser.WriteValues(ww, s.VY, valuesPerLine, formatValue); err != nil {
			return err
		}
	}

	if err := pw.Flush(); err != nil {
		return fmt.Errorf("write owi pressure: %w", err)
	}
	if err := ww.Flush(); err != nil {
		return fmt.Errorf("write owi wind: %w", err)
	}
	return nil
}

func blockHeaderLine(s *domain.GriddedSnapshot) string {
	g := s.Coords
	return fmt.Sprintf("iLat=%4diLong=%4dDX=%sDY=%sSWLat=%sSWLon=%sDT=%s",
		g.NLat, g.NLon,
		parser.FormatFloat(g.StepLon), parser.FormatFloat(g.StepLat),
		parser.FormatFloat(g.Origin.Lat), parser.FormatFloat(g.Origin.Lon),
		s.Time.UTC().Format(parser.MinuteLayout))
}

func formatValue(v float64) string {
	return fmt.Sprintf("%9.4f", v)
}

// WriteControl renders a single-basin control file.
func WriteControl(w io.Writer, ctl *Control) error {
	_, err := fmt.Fprintf(w, "%d    number of field pairs\n%d    skip\n%s    wind multiplier\n",
		ctl.Fields, ctl.Skip, parser.FormatFloat(ctl.Multiplier))
	return err
}
