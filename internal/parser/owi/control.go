package owi

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

// Control is the OWI control file: how many field pairs exist and the wind
// multiplier declared for the archive.
type Control struct {
	Fields     int // 1 basin only, 2 basin plus regional
	Skip       int
	Multiplier float64

	PressureFile string
	WindFile     string
}

// LoadControl reads the control file at path. The basin pair lives next to it
// as <path>1 (pressure) and <path>2 (wind).
func LoadControl(path string) (*Control, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open owi control file: %w", err)
	}
	defer f.Close()

	ctl, err := ParseControl(f, path)
	if err != nil {
		return nil, err
	}
	ctl.PressureFile = path + "1"
	ctl.WindFile = path + "2"
	return ctl, nil
}

// ParseControl reads the three control lines, taking the first token of each.
func ParseControl(r io.Reader, source string) (*Control, error) {
	s := parser.NewScanner(r, source)
	ctl := &Control{}

	var err error
	if ctl.Fields, err = s.Int("number of field pairs"); err != nil {
		return nil, err
	}
	if ctl.Fields != 1 && ctl.Fields != 2 {
		return nil, s.Errorf("number of field pairs must be 1 or 2, got %d", ctl.Fields)
	}
	if ctl.Skip, err = s.Int("skip count"); err != nil {
		return nil, err
	}

	line, err := s.Next("wind multiplier")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, s.Errorf("expected wind multiplier, got blank line")
	}
	if ctl.Multiplier, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return nil, s.Errorf("bad wind multiplier %q", fields[0])
	}
	return ctl, nil
}
