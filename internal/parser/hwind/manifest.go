// Package hwind reads storm-centred HWIND archives: a manifest naming one
// analysis grid per time plus the grids themselves.
package hwind

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

// stampRe finds the 12-digit YYYYMMDDhhmm token embedded in grid file names.
var stampRe = regexp.MustCompile(`\d{12}`)

// Manifest lists the analyses of one storm.
type Manifest struct {
	Title        string
	Multiplier   float64
	Relationship domain.Relationship
	Entries      []Entry
}

// Entry is one manifest row.
type Entry struct {
	Index int
	Time  time.Time
	// CentralPressure is NaN when the row gives "-".
	CentralPressure float64
	Ramp            float64
	File            string // resolved against the manifest directory
}

// LoadManifest reads the manifest at path. Hour-offset times are resolved
// against reference.
func LoadManifest(path string, reference time.Time) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hwind manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f, path, filepath.Dir(path), reference)
}

// ParseManifest reads a manifest from r. Grid file names are joined to dir
// unless absolute.
func ParseManifest(r io.Reader, source, dir string, reference time.Time) (*Manifest, error) {
	s := parser.NewScanner(r, source)
	m := &Manifest{}

	title, err := s.Next("title line")
	if err != nil {
		return nil, err
	}
	m.Title = strings.TrimSpace(title)

	line, err := s.Next("wind multiplier")
	if err != nil {
		return nil, err
	}
	if m.Multiplier, err = strconv.ParseFloat(firstField(line), 64); err != nil {
		return nil, s.Errorf("bad wind multiplier %q", strings.TrimSpace(line))
	}

	if line, err = s.Next("pressure-wind relationship"); err != nil {
		return nil, err
	}
	if m.Relationship, err = domain.ParseRelationship(line); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", source, s.LineNo(), err)
	}

	for {
		more, err := s.Peek()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		if !more {
			break
		}
		line, err := s.Next("manifest row")
		if err != nil {
			return nil, err
		}
		e, err := parseEntry(s, line, dir, reference)
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

// parseEntry reads "<index> <time> <pc> [<ramp>] <file>". Rows without a ramp
// column use a ramp of 1.
func parseEntry(s *parser.Scanner, line, dir string, reference time.Time) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 && len(fields) != 5 {
		return Entry{}, s.Errorf("expected 4 or 5 columns, got %d", len(fields))
	}

	var e Entry
	var err error
	if e.Index, err = strconv.Atoi(fields[0]); err != nil {
		return Entry{}, s.Errorf("bad index %q", fields[0])
	}

	file := fields[len(fields)-1]
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	e.File = file

	if e.Time, err = entryTime(fields[1], filepath.Base(file), reference); err != nil {
		return Entry{}, s.Errorf("%v", err)
	}

	e.CentralPressure = math.NaN()
	if fields[2] != "-" {
		if e.CentralPressure, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return Entry{}, s.Errorf("bad central pressure %q", fields[2])
		}
	}

	e.Ramp = 1
	if len(fields) == 5 {
		if e.Ramp, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return Entry{}, s.Errorf("bad ramp %q", fields[3])
		}
		if e.Ramp < 0 || e.Ramp > 1 {
			return Entry{}, s.Errorf("ramp %g outside [0, 1]", e.Ramp)
		}
	}
	return e, nil
}

// entryTime resolves a time column: a 12-digit absolute stamp, "-" for the
// stamp embedded in the file name, or an hour offset from reference.
func entryTime(token, base string, reference time.Time) (time.Time, error) {
	switch {
	case token == "-":
		stamp := stampRe.FindString(base)
		if stamp == "" {
			return time.Time{}, fmt.Errorf("no YYYYMMDDhhmm stamp in file name %q", base)
		}
		return parser.ParseMinute(stamp)
	case len(token) == 12 && stampRe.MatchString(token):
		t, err := parser.ParseMinute(token)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad time stamp %q", token)
		}
		return t, nil
	default:
		hours, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
			return time.Time{}, fmt.Errorf("bad time %q", token)
		}
		return reference.Add(time.Duration(math.Round(hours * float64(time.Hour)))), nil
	}
}

func firstField(line string) string {
	if f := strings.Fields(line); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Load reads the manifest at path and every grid it lists, in manifest order.
func Load(path string, reference time.Time, logger *slog.Logger) ([]*domain.StormSnapshot, *Manifest, error) {
	m, err := LoadManifest(path, reference)
	if err != nil {
		return nil, nil, err
	}

	snaps := make([]*domain.StormSnapshot, 0, len(m.Entries))
	for _, e := range m.Entries {
		g, err := ParseGridFile(e.File)
		if err != nil {
			return nil, nil, err
		}
		snap := g.Snapshot(e)
		logger.Debug("hwind grid parsed",
			"file", e.File,
			"time", snap.Time,
			"points", snap.Coords.Len(),
			"vmax", snap.MaxWindSpeed,
			"rmax_km", snap.MaxWindRadius,
		)
		snaps = append(snaps, snap)
	}
	return snaps, m, nil
}
