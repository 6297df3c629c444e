package engine

import "math"

// DragCoefficient is Garratt's linear drag law for a 10 m wind speed in m/s.
func DragCoefficient(speed float64) float64 {
	return 0.001 * (0.75 + 0.067*speed)
}

// WindStress converts a surface wind vector into stress in N/m² for air
// density rho.
func WindStress(rho, vx, vy float64) (sx, sy float64) {
	speed := math.Hypot(vx, vy)
	k := rho * DragCoefficient(speed) * speed
	return k * vx, k * vy
}

// StressField applies WindStress elementwise.
func StressField(rho float64, vx, vy []float64) (sx, sy []float64) {
	sx = make([]float64, len(vx))
	sy = make([]float64, len(vx))
	for i := range vx {
		sx[i], sy[i] = WindStress(rho, vx[i], vy[i])
	}
	return sx, sy
}
