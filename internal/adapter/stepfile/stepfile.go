// Package stepfile writes and reads the per-step forcing files consumed by the
// ocean model: one row per mesh node, "<index> <stress_x> <stress_y> <pressure_pa>".
package stepfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/parser"
)

// Writer writes step files atomically.
// It implements pipeline.StepWriter.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a step file writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteStep writes forcing to path through a temporary file in the same
// directory, so a reader never observes a partial step.
func (w *Writer) WriteStep(ctx context.Context, path string, forcing []domain.Forcing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create step file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := Encode(tmp, forcing); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.logger.Debug("step file written", "file", path, "rows", len(forcing))
	return nil
}

// Encode writes one row per point, indices from zero.
func Encode(w io.Writer, forcing []domain.Forcing) error {
	bw := bufio.NewWriter(w)
	for i, f := range forcing {
		bw.WriteString(strconv.Itoa(i))
		for _, v := range [3]float64{f.StressX, f.StressY, f.PressurePa} {
			bw.WriteByte(' ')
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Decode reads a step file. Rows must be numbered 0, 1, 2, ... and carry
// three finite values.
func Decode(r io.Reader, source string) ([]domain.Forcing, error) {
	s := parser.NewScanner(r, source)
	var out []domain.Forcing
	for {
		more, err := s.Peek()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		if !more {
			return out, nil
		}
		line, err := s.Next("step row")
		if err != nil {
			return nil, err
		}
		f := strings.Fields(line)
		if len(f) != 4 {
			return nil, s.Errorf("expected 4 columns, got %d", len(f))
		}
		idx, err := strconv.Atoi(f[0])
		if err != nil || idx != len(out) {
			return nil, s.Errorf("expected point index %d, got %q", len(out), f[0])
		}
		var v [3]float64
		for i := range v {
			v[i], err = strconv.ParseFloat(f[i+1], 64)
			if err != nil || math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
				return nil, s.Errorf("point %d: bad value %q", idx, f[i+1])
			}
		}
		out = append(out, domain.Forcing{StressX: v[0], StressY: v[1], PressurePa: v[2]})
	}
}

// Read opens and decodes the step file at path.
func Read(path string) ([]domain.Forcing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open step file: %w", err)
	}
	defer f.Close()
	return Decode(f, path)
}
