// Command validate checks the step files of a finished forcing run against
// the run file that produced them: every scheduled file exists, each has one
// row per mesh node, and the values are physically plausible.
//
// Usage:
//
//	go run ./cmd/validate -run data/synthetic/forcing.yaml
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/adapter/stepfile"
	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/mesh"
	"github.com/couchcryptid/storm-wind-forcing/internal/pipeline"
	"github.com/couchcryptid/storm-wind-forcing/internal/runfile"
	"github.com/couchcryptid/storm-wind-forcing/internal/series"
)

// limits bounds what counts as a plausible surface value.
type limits struct {
	minPressurePa float64
	maxPressurePa float64
	maxStress     float64 // N/m^2
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// stepResult is one scheduled step and what was read from its file.
type stepResult struct {
	step    pipeline.Step
	forcing []domain.Forcing
	err     error
}

func main() {
	runPath := flag.String("run", "", "path to the YAML run file")
	minP := flag.Float64("min-pressure", 85000, "lowest plausible pressure in Pa")
	maxP := flag.Float64("max-pressure", 105000, "highest plausible pressure in Pa")
	maxStress := flag.Float64("max-stress", 15, "highest plausible stress magnitude in N/m^2")
	flag.Parse()

	if *runPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*runPath, limits{minPressurePa: *minP, maxPressurePa: *maxP, maxStress: *maxStress}); code != 0 {
		os.Exit(code)
	}
}

func run(runPath string, lim limits) int {
	fmt.Println("=== Wind Forcing Output Validation ===")
	fmt.Println()

	rf, err := runfile.Load(runPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load run file: %v\n", err)
		return 1
	}
	m, err := mesh.Load(rf.MeshFile, rf.MeshFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load mesh: %v\n", err)
		return 1
	}
	s, err := series.Load(rf.Source(), slog.New(slog.DiscardHandler))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load archive: %v\n", err)
		return 1
	}

	start := rf.StartTime
	if start.IsZero() {
		start = s.First()
	}
	steps, err := pipeline.Schedule{
		Start:     start,
		End:       rf.EndTime,
		Frequency: rf.Frequency,
		DT:        rf.DT,
		Prefix:    rf.OutputPrefix,
	}.Steps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: schedule: %v\n", err)
		return 1
	}

	results := readSteps(steps)

	phases := []*phase{
		validateArchiveCoverage(steps, s),
		validateFiles(results, rf.OutputPrefix),
		validateRowCounts(results, len(m.Nodes)),
		validateValues(results, lim),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Run: %d steps, %d mesh nodes, %d %s snapshots from %s to %s\n",
		len(steps), len(m.Nodes), s.Len(), s.Form(),
		s.First().Format(time.RFC3339), s.Last().Format(time.RFC3339))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func readSteps(steps []pipeline.Step) []stepResult {
	results := make([]stepResult, len(steps))
	for i, st := range steps {
		f, err := stepfile.Read(st.File)
		results[i] = stepResult{step: st, forcing: f, err: err}
	}
	return results
}

// ── Validation phases ──

func validateArchiveCoverage(steps []pipeline.Step, s *series.Series) *phase {
	p := &phase{name: "Archive covers schedule"}
	for _, st := range steps {
		if st.Time.Before(s.First()) || st.Time.After(s.Last()) {
			p.errorf("step %d at %s outside archive %s to %s", st.Index,
				st.Time.Format(time.RFC3339), s.First().Format(time.RFC3339), s.Last().Format(time.RFC3339))
		}
	}
	return p
}

func validateFiles(results []stepResult, prefix string) *phase {
	p := &phase{name: "Step files present"}
	expected := make(map[string]bool, len(results))
	for _, r := range results {
		expected[filepath.Clean(r.step.File)] = true
		if errors.Is(r.err, os.ErrNotExist) {
			p.errorf("step %d: missing %s", r.step.Index, r.step.File)
		}
	}

	// A step file the schedule does not name points at a stale or mismatched run.
	found, err := filepath.Glob(prefix + "_*")
	if err != nil {
		p.errorf("list %s_*: %v", prefix, err)
		return p
	}
	for _, f := range found {
		if !expected[filepath.Clean(f)] {
			p.errorf("unexpected step file %s", f)
		}
	}
	return p
}

func validateRowCounts(results []stepResult, nodes int) *phase {
	p := &phase{name: "Rows match mesh nodes"}
	for _, r := range results {
		switch {
		case errors.Is(r.err, os.ErrNotExist):
			// reported by validateFiles
		case r.err != nil:
			p.errorf("step %d: %v", r.step.Index, r.err)
		case len(r.forcing) != nodes:
			p.errorf("step %d: %d rows, mesh has %d nodes", r.step.Index, len(r.forcing), nodes)
		}
	}
	return p
}

func validateValues(results []stepResult, lim limits) *phase {
	p := &phase{name: "Values physically plausible"}
	for _, r := range results {
		if r.err != nil {
			continue
		}
		for i, f := range r.forcing {
			if f.PressurePa < lim.minPressurePa || f.PressurePa > lim.maxPressurePa {
				p.errorf("step %d node %d: pressure %.1f Pa outside [%.0f, %.0f]",
					r.step.Index, i, f.PressurePa, lim.minPressurePa, lim.maxPressurePa)
			}
			if mag := math.Hypot(f.StressX, f.StressY); mag > lim.maxStress {
				p.errorf("step %d node %d: stress %.3f N/m^2 above %.1f", r.step.Index, i, mag, lim.maxStress)
			}
		}
	}
	return p
}
