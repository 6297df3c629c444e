package engine

import "github.com/couchcryptid/storm-wind-forcing/internal/domain"

// Registration places two bracketing storm snapshots on a common eye.
type Registration struct {
	// Eye is the storm centre interpolated linearly in degrees.
	Eye domain.Point
	// OffsetA moves the earlier grid from its own eye toward Eye.
	OffsetA domain.Point
	// OffsetB moves the later grid from its own eye back to Eye.
	OffsetB domain.Point
}

// CoRegister computes the interpolated eye at weight w between a (earlier) and
// b (later) and the translation each grid needs to sit on it.
func CoRegister(a, b *domain.StormSnapshot, w float64) Registration {
	dLon := b.Eye.Lon - a.Eye.Lon
	dLat := b.Eye.Lat - a.Eye.Lat
	eye := domain.Point{Lon: a.Eye.Lon + w*dLon, Lat: a.Eye.Lat + w*dLat}
	return Registration{
		Eye:     eye,
		OffsetA: domain.Point{Lon: w * dLon, Lat: w * dLat},
		OffsetB: domain.Point{Lon: eye.Lon - b.Eye.Lon, Lat: eye.Lat - b.Eye.Lat},
	}
}

// Blend returns (1-w)*lower + w*upper elementwise. Both slices must have the
// same length.
func Blend(lower, upper []float64, w float64) []float64 {
	out := make([]float64, len(lower))
	for i := range lower {
		out[i] = blend(lower[i], upper[i], w)
	}
	return out
}

func blend(lower, upper, w float64) float64 {
	return (1-w)*lower + w*upper
}
