package domain

import "math"

// Forcing is the per-point result of a query: surface stress and pressure in Pa.
type Forcing struct {
	StressX    float64
	StressY    float64
	PressurePa float64
}

// WindField is the engine's velocity and pressure before stress derivation,
// aligned with the query targets.
type WindField struct {
	VX         []float64
	VY         []float64
	PressurePa []float64
}

// Len returns the number of target points in the field.
func (w WindField) Len() int { return len(w.VX) }

// Summary holds aggregate statistics over one step's forcing.
type Summary struct {
	Points        int     `json:"points"`
	MaxStress     float64 `json:"max_stress"`
	MinPressurePa float64 `json:"min_pressure_pa"`
}

// Summarize computes the stress magnitude peak and pressure minimum of f.
func Summarize(f []Forcing) Summary {
	s := Summary{Points: len(f)}
	if len(f) == 0 {
		return s
	}
	s.MinPressurePa = math.Inf(1)
	for _, p := range f {
		s.MaxStress = math.Max(s.MaxStress, math.Hypot(p.StressX, p.StressY))
		s.MinPressurePa = math.Min(s.MinPressurePa, p.PressurePa)
	}
	return s
}
