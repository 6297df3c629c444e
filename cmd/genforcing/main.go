// Command genforcing writes a self-contained synthetic run: a moving vortex
// archived as HWIND or OWI, an ADCIRC mesh under its track and a run file
// tying them together. The output feeds the forcing command and its
// integration tests.
//
// Usage:
//
//	go run ./cmd/genforcing -out data/synthetic -format hwind
//	RUN_FILE=data/synthetic/forcing.yaml go run ./cmd/forcing
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/mesh"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser/hwind"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser/owi"
	"github.com/couchcryptid/storm-wind-forcing/internal/runfile"
)

var baseTime = time.Date(2008, time.September, 1, 0, 0, 0, 0, time.UTC)

const (
	runFileName  = "forcing.yaml"
	meshFileName = "fort.14"
	owiControl   = "fort.22"
	hwindDir     = "hwind"
	manifestName = "manifest.txt"
	outputPrefix = "output/fort.22"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "directory to write the synthetic run into")
	format := flag.String("format", "hwind", "archive format: hwind or owi")
	snapshots := flag.Int("snapshots", 5, "number of archived snapshots")
	interval := flag.Duration("interval", 6*time.Hour, "time between snapshots")
	frequency := flag.Duration("frequency", time.Hour, "forcing step frequency")
	relationship := flag.String("relationship", "dvorak", "HWIND pressure-wind relationship")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *snapshots < 2 {
		return fmt.Errorf("-snapshots must be at least 2, got %d", *snapshots)
	}
	if *interval <= 0 || *frequency <= 0 {
		return fmt.Errorf("-interval and -frequency must be positive")
	}
	rel, err := domain.ParseRelationship(*relationship)
	if err != nil {
		return err
	}

	track := newTrack(baseTime, *snapshots, *interval)

	var rawInput, meteo string
	switch strings.ToLower(*format) {
	case "hwind":
		meteo = "HWIND"
		rawInput = filepath.Join(hwindDir, manifestName)
		if err := writeHWIND(*out, track, rel); err != nil {
			return err
		}
	case "owi":
		meteo = "OWI"
		rawInput = owiControl
		if err := writeOWI(*out, track); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown -format %q, want hwind or owi", *format)
	}
	log.Printf("%s archive: %d snapshots every %s", meteo, len(track), *interval)

	m := trackMesh(track)
	if err := writeFile(filepath.Join(*out, meshFileName), func(w io.Writer) error {
		return mesh.WriteADCIRC(w, m)
	}); err != nil {
		return err
	}
	log.Printf("mesh: %d nodes, %d elements", len(m.Nodes), len(m.Elements))

	doc := &runfile.Document{
		Timestepping: runfile.Timestepping{
			DT:        (*frequency / 6).Seconds(),
			EndTime:   track[len(track)-1].Time.Sub(track[0].Time).Seconds(),
			StartTime: baseTime,
		},
		Gravity:      9.81,
		DensityAir:   1.15,
		DensityWater: 1000,
		Mesh:         runfile.MeshSection{Format: "Adcirc", FileName: meshFileName},
		Problem: runfile.Problem{MeteoForcing: runfile.MeteoForcing{
			Type:         meteo,
			RawInputFile: rawInput,
			InputFile:    outputPrefix,
			Frequency:    frequency.Seconds(),
		}},
	}
	if err := writeFile(filepath.Join(*out, runFileName), func(w io.Writer) error {
		return runfile.Write(w, doc)
	}); err != nil {
		return err
	}
	log.Printf("wrote %s", filepath.Join(*out, runFileName))
	return nil
}

func writeHWIND(dir string, track []fix, rel domain.Relationship) error {
	m := &hwind.Manifest{
		Title:        "synthetic vortex",
		Multiplier:   1,
		Relationship: rel,
	}
	times := make([]string, 0, len(track))
	for i, f := range track {
		name := fmt.Sprintf("syn_%s.dat", f.Time.Format("200601021504"))
		if err := writeFile(filepath.Join(dir, hwindDir, name), func(w io.Writer) error {
			return hwind.WriteGrid(w, f.hwindGrid())
		}); err != nil {
			return err
		}
		m.Entries = append(m.Entries, hwind.Entry{
			Index:           i + 1,
			CentralPressure: f.CentralPressure,
			Ramp:            f.Ramp,
			File:            name,
		})
		times = append(times, "-")
	}
	return writeFile(filepath.Join(dir, hwindDir, manifestName), func(w io.Writer) error {
		return hwind.WriteManifest(w, m, times)
	})
}

func writeOWI(dir string, track []fix) error {
	basin := basinGrid(track)
	snaps := make([]*domain.GriddedSnapshot, len(track))
	for i, f := range track {
		snaps[i] = f.gridded(basin)
	}
	hdr := owi.Header{Start: track[0].Time, End: track[len(track)-1].Time}

	ctlPath := filepath.Join(dir, owiControl)
	if err := writeFile(ctlPath, func(w io.Writer) error {
		return owi.WriteControl(w, &owi.Control{Fields: 1, Skip: 0, Multiplier: 1})
	}); err != nil {
		return err
	}

	pf, err := create(ctlPath + "1")
	if err != nil {
		return err
	}
	defer pf.Close()
	wf, err := create(ctlPath + "2")
	if err != nil {
		return err
	}
	defer wf.Close()

	if err := owi.Write(pf, wf, hdr, snaps); err != nil {
		return err
	}
	if err := pf.Close(); err != nil {
		return err
	}
	return wf.Close()
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := render(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
