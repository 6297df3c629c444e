package domain

import (
	"math"
	"time"
)

// Form identifies which archive family a snapshot came from.
type Form int

const (
	FormStormCentered Form = iota + 1
	FormGridded
)

func (f Form) String() string {
	switch f {
	case FormStormCentered:
		return "storm-centered"
	case FormGridded:
		return "gridded"
	default:
		return "unknown"
	}
}

// Snapshot is one time-stamped wind field. The set of implementations is closed:
// callers switch on the concrete type (*StormSnapshot or *GriddedSnapshot).
type Snapshot interface {
	ValidTime() time.Time
	Form() Form
	Grid() Grid
	Velocity() (vx, vy []float64)
	snapshot()
}

// StormSnapshot is a storm-centred wind field with its eye and derived storm metadata.
type StormSnapshot struct {
	Time   time.Time       `msgpack:"time"`
	Coords RectilinearGrid `msgpack:"coords"`
	VX     []float64       `msgpack:"vx"`
	VY     []float64       `msgpack:"vy"`

	Eye           Point   `msgpack:"eye"`
	MaxWindSpeed  float64 `msgpack:"vmax"`
	MaxWindRadius float64 `msgpack:"rmax"` // km
	// CentralPressure is in millibars; NaN when the archive did not report one.
	CentralPressure float64 `msgpack:"pc"`
	Ramp            float64 `msgpack:"ramp"`
	GridSpacingKM   float64 `msgpack:"dx_km"`
	Source          string  `msgpack:"source"`
}

func (s *StormSnapshot) ValidTime() time.Time         { return s.Time }
func (s *StormSnapshot) Form() Form                   { return FormStormCentered }
func (s *StormSnapshot) Grid() Grid                   { return s.Coords }
func (s *StormSnapshot) Velocity() (vx, vy []float64) { return s.VX, s.VY }
func (s *StormSnapshot) snapshot()                    {}

// HasCentralPressure reports whether the archive supplied an observed central pressure.
func (s *StormSnapshot) HasCentralPressure() bool { return !math.IsNaN(s.CentralPressure) }

// GriddedSnapshot is an earth-relative basin field with its own pressure channel.
type GriddedSnapshot struct {
	Time     time.Time   `msgpack:"time"`
	Coords   RegularGrid `msgpack:"coords"`
	VX       []float64   `msgpack:"vx"`
	VY       []float64   `msgpack:"vy"`
	Pressure []float64   `msgpack:"pressure"` // mb
}

func (s *GriddedSnapshot) ValidTime() time.Time         { return s.Time }
func (s *GriddedSnapshot) Form() Form                   { return FormGridded }
func (s *GriddedSnapshot) Grid() Grid                   { return s.Coords }
func (s *GriddedSnapshot) Velocity() (vx, vy []float64) { return s.VX, s.VY }
func (s *GriddedSnapshot) snapshot()                    {}

// MaxWind returns the largest wind speed in vx/vy and the index of its first occurrence.
func MaxWind(vx, vy []float64) (speed float64, index int) {
	index = -1
	for i := range vx {
		if s := math.Hypot(vx[i], vy[i]); index < 0 || s > speed {
			speed, index = s, i
		}
	}
	return speed, index
}
