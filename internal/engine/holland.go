package engine

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
)

const (
	// AmbientPressureMB is the far-field pressure of the parametric profile.
	AmbientPressureMB = 1013.0
	// MinEyeDistanceKM floors the radial distance so the profile is defined at the eye.
	MinEyeDistanceKM = 0.001

	minHollandB = 1.0
	maxHollandB = 2.5
)

// StormParams are the storm-scale values feeding the pressure profile at one
// query time.
type StormParams struct {
	Eye             domain.Point
	MaxWindSpeed    float64 // m/s, before ramp and multiplier
	MaxWindRadius   float64 // km
	CentralPressure float64 // mb; NaN when unknown
	Ramp            float64
}

// CentralPressure resolves the central pressure for mode. Dvorak and
// KnaffZehr derive it from vmax; SpecifiedPC returns observed, which must be
// set; Background returns the ambient pressure.
func CentralPressure(mode domain.Relationship, vmax, observed float64) (float64, error) {
	switch mode {
	case domain.RelationshipDvorak:
		return 1015.0 - math.Pow(vmax/3.92, 1/0.644), nil
	case domain.RelationshipKnaffZehr:
		return 1010.0 - math.Pow(vmax/2.3, 1/0.76), nil
	case domain.RelationshipSpecifiedPC:
		if math.IsNaN(observed) {
			return 0, fmt.Errorf("%w: relationship %s needs a central pressure on every snapshot", domain.ErrConfig, mode)
		}
		return observed, nil
	case domain.RelationshipBackground:
		return AmbientPressureMB, nil
	default:
		return 0, fmt.Errorf("%w: pressure-wind relationship not set", domain.ErrConfig)
	}
}

// HollandB returns the profile shape parameter clamped to [1, 2.5]. A
// non-positive pressure deficit gives the lower bound.
func HollandB(vmax, pc, rho float64) float64 {
	deficit := (AmbientPressureMB - pc) * 100.0
	if !(deficit > 0) {
		return minHollandB
	}
	b := vmax * vmax * rho * math.E / deficit
	switch {
	case math.IsNaN(b), b < minHollandB:
		return minHollandB
	case b > maxHollandB:
		return maxHollandB
	}
	return b
}

// PressureProfile evaluates the ramped Holland pressure in millibars at every
// target. p.CentralPressure must already be resolved for mode.
func PressureProfile(p StormParams, mode domain.Relationship, rho float64, targets []domain.Point) []float64 {
	out := make([]float64, len(targets))
	if mode == domain.RelationshipBackground {
		for i := range out {
			out[i] = AmbientPressureMB
		}
		return out
	}

	pc := p.CentralPressure
	b := HollandB(p.MaxWindSpeed, pc, rho)
	for i, t := range targets {
		r := math.Max(domain.GreatCircleDistance(t, p.Eye), MinEyeDistanceKM)
		pr := pc + (AmbientPressureMB-pc)*math.Exp(-math.Pow(p.MaxWindRadius/r, b))
		out[i] = AmbientPressureMB - (AmbientPressureMB-pr)*p.Ramp
	}
	return out
}
