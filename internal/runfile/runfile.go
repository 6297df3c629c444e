// Package runfile loads the YAML document describing one forcing run.
package runfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/series"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Document mirrors the YAML layout.
type Document struct {
	Timestepping Timestepping `yaml:"timestepping"`
	Gravity      float64      `yaml:"gravity" validate:"gt=0"`
	DensityAir   float64      `yaml:"density_air" validate:"gt=0"`
	DensityWater float64      `yaml:"density_water" validate:"gt=0"`
	Mesh         MeshSection  `yaml:"mesh"`
	Problem      Problem      `yaml:"problem"`
}

type Timestepping struct {
	DT      float64 `yaml:"dt" validate:"gt=0"`       // seconds
	EndTime float64 `yaml:"end_time" validate:"gte=0"` // seconds after start
	// StartTime anchors hour-offset archive times and the first step.
	StartTime time.Time `yaml:"start_time,omitempty"`
}

type MeshSection struct {
	Format   string `yaml:"format" validate:"required"`
	FileName string `yaml:"file_name" validate:"required"`
}

type Problem struct {
	MeteoForcing MeteoForcing `yaml:"meteo_forcing"`
}

type MeteoForcing struct {
	Type         string  `yaml:"type" validate:"required"`
	RawInputFile string  `yaml:"raw_input_file" validate:"required"`
	InputFile    string  `yaml:"input_file" validate:"required"`
	Frequency    float64 `yaml:"frequency" validate:"gt=0"` // seconds
	// PressureWindRelationship overrides the HWIND manifest's mode when set.
	PressureWindRelationship string `yaml:"pressure_wind_relationship,omitempty"`
}

// Run is a validated run file with every enumeration resolved and every path
// absolute or relative to the working directory.
type Run struct {
	DT        time.Duration
	EndTime   time.Duration
	Frequency time.Duration
	StartTime time.Time // zero when the file does not set one

	Gravity      float64
	AirDensity   float64
	WaterDensity float64

	MeshFormat domain.MeshFormat
	MeshFile   string

	Meteo        domain.MeteoType
	RawInput     string
	OutputPrefix string
	Relationship domain.Relationship // zero keeps the archive's mode
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and resolves the run file at path. Relative paths inside it are
// resolved against its directory.
func Load(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run file: %w", err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	run, err := doc.Resolve(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return run, nil
}

// Decode parses and validates a run document. Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty run file", domain.ErrConfig)
		}
		return nil, fmt.Errorf("%w: decode run file: %v", domain.ErrConfig, err)
	}
	if err := validate.Struct(&doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfig, describe(verrs))
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	return &doc, nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Document.")
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s must satisfy %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
		} else {
			msgs[i] = fmt.Sprintf("%s is %s", field, fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

// Resolve parses the enumerations once and anchors relative paths at dir.
func (d *Document) Resolve(dir string) (*Run, error) {
	mf := d.Problem.MeteoForcing
	run := &Run{
		DT:           seconds(d.Timestepping.DT),
		EndTime:      seconds(d.Timestepping.EndTime),
		Frequency:    seconds(mf.Frequency),
		StartTime:    d.Timestepping.StartTime.UTC(),
		Gravity:      d.Gravity,
		AirDensity:   d.DensityAir,
		WaterDensity: d.DensityWater,
		MeshFile:     anchor(dir, d.Mesh.FileName),
		RawInput:     anchor(dir, mf.RawInputFile),
		OutputPrefix: anchor(dir, mf.InputFile),
	}
	if run.DT <= 0 || run.Frequency <= 0 {
		return nil, fmt.Errorf("%w: dt and frequency must be positive durations", domain.ErrConfig)
	}

	var err error
	if run.MeshFormat, err = domain.ParseMeshFormat(d.Mesh.Format); err != nil {
		return nil, err
	}
	if run.Meteo, err = domain.ParseMeteoType(mf.Type); err != nil {
		return nil, err
	}
	if mf.PressureWindRelationship != "" {
		if run.Relationship, err = domain.ParseRelationship(mf.PressureWindRelationship); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// Reference is the instant hour-offset archive times count from.
func (r *Run) Reference() time.Time {
	if r.StartTime.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return r.StartTime
}

// Source selects the archive loader for the configured meteo type.
func (r *Run) Source() series.Source {
	if r.Meteo == domain.MeteoOWI {
		return series.OWI{Control: r.RawInput}
	}
	return series.HWIND{Manifest: r.RawInput, Reference: r.Reference()}
}

// Write renders doc as YAML.
func Write(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode run file: %w", err)
	}
	return enc.Close()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func anchor(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
