// Package engine answers forcing queries against a loaded series: it picks the
// snapshots around a query time, interpolates them onto the targets, and
// derives surface stress and pressure.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/interp"
	"github.com/couchcryptid/storm-wind-forcing/internal/observability"
	"github.com/couchcryptid/storm-wind-forcing/internal/series"
)

// Config holds the physical constants and mode of a run.
type Config struct {
	AirDensity float64 // kg/m³
	// Relationship overrides the mode declared by the archive when non-zero.
	Relationship domain.Relationship
}

// Engine serves queries against one immutable series. It is safe for
// concurrent use.
type Engine struct {
	series  *series.Series
	rho     float64
	mode    domain.Relationship
	cache   *interp.Cache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New validates cfg against s and returns a ready engine.
func New(s *series.Series, cfg Config, cache *interp.Cache, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	if !(cfg.AirDensity > 0) {
		return nil, fmt.Errorf("%w: air density must be positive, got %g", domain.ErrConfig, cfg.AirDensity)
	}

	e := &Engine{
		series:  s,
		rho:     cfg.AirDensity,
		mode:    cfg.Relationship,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
	if e.mode == 0 {
		e.mode = s.Meta().Relationship
	}

	if s.Form() == domain.FormStormCentered {
		if e.mode == 0 {
			return nil, fmt.Errorf("%w: storm-centred series without a pressure-wind relationship", domain.ErrConfig)
		}
		if e.mode == domain.RelationshipSpecifiedPC {
			for i := 0; i < s.Len(); i++ {
				if snap := s.At(i).(*domain.StormSnapshot); !snap.HasCentralPressure() {
					return nil, fmt.Errorf("%w: relationship %s but snapshot %s has no central pressure",
						domain.ErrConfig, e.mode, snap.Time.UTC().Format(time.RFC3339))
				}
			}
		}
	}
	return e, nil
}

// Mode returns the pressure-wind relationship in effect.
func (e *Engine) Mode() domain.Relationship { return e.mode }

// Query returns stress and pressure at every target for time t.
func (e *Engine) Query(ctx context.Context, t time.Time, targets []domain.Point) ([]domain.Forcing, error) {
	wf, err := e.Wind(ctx, t, targets)
	if err != nil {
		return nil, err
	}
	sx, sy := StressField(e.rho, wf.VX, wf.VY)
	out := make([]domain.Forcing, len(targets))
	for i := range out {
		out[i] = domain.Forcing{StressX: sx[i], StressY: sy[i], PressurePa: wf.PressurePa[i]}
	}
	return out, nil
}

// Wind returns velocity and pressure at every target for time t. Times the
// series does not cover fail with a *domain.TimeRangeError.
func (e *Engine) Wind(ctx context.Context, t time.Time, targets []domain.Point) (domain.WindField, error) {
	loc := e.series.Locate(t)
	if loc.Kind == series.OutOfRange {
		return domain.WindField{}, &domain.TimeRangeError{Query: t, First: e.series.First(), Last: e.series.Last()}
	}
	w := e.series.Weight(loc, t)

	e.logger.Debug("query located",
		"time", t,
		"kind", loc.Kind.String(),
		"lower", loc.Lower,
		"upper", loc.Upper,
		"weight", w,
	)

	switch e.series.Form() {
	case domain.FormStormCentered:
		return e.stormWind(ctx, loc, w, targets)
	default:
		return e.griddedWind(ctx, loc, w, targets)
	}
}

func (e *Engine) stormWind(ctx context.Context, loc series.Location, w float64, targets []domain.Point) (domain.WindField, error) {
	var (
		vx, vy []float64
		params StormParams
	)

	if loc.Kind == series.ExactMatch {
		snap := e.series.At(loc.Lower).(*domain.StormSnapshot)
		st, err := e.stencil(snap, targets, domain.Point{})
		if err != nil {
			return domain.WindField{}, err
		}
		vx = e.apply(st, "vx", snap.VX, interp.FillVelocity)
		vy = e.apply(st, "vy", snap.VY, interp.FillVelocity)
		params = StormParams{
			Eye:             snap.Eye,
			MaxWindSpeed:    snap.MaxWindSpeed,
			MaxWindRadius:   snap.MaxWindRadius,
			CentralPressure: snap.CentralPressure,
			Ramp:            snap.Ramp,
		}
	} else {
		a := e.series.At(loc.Lower).(*domain.StormSnapshot)
		b := e.series.At(loc.Upper).(*domain.StormSnapshot)
		reg := CoRegister(a, b, w)

		stA, err := e.stencil(a, targets, reg.OffsetA)
		if err != nil {
			return domain.WindField{}, err
		}
		if err := ctx.Err(); err != nil {
			return domain.WindField{}, err
		}
		stB, err := e.stencil(b, targets, reg.OffsetB)
		if err != nil {
			return domain.WindField{}, err
		}
		vx = Blend(e.apply(stA, "vx", a.VX, interp.FillVelocity), e.apply(stB, "vx", b.VX, interp.FillVelocity), w)
		vy = Blend(e.apply(stA, "vy", a.VY, interp.FillVelocity), e.apply(stB, "vy", b.VY, interp.FillVelocity), w)
		params = StormParams{
			Eye:             reg.Eye,
			MaxWindSpeed:    blend(a.MaxWindSpeed, b.MaxWindSpeed, w),
			MaxWindRadius:   blend(a.MaxWindRadius, b.MaxWindRadius, w),
			CentralPressure: blend(a.CentralPressure, b.CentralPressure, w),
			Ramp:            blend(a.Ramp, b.Ramp, w),
		}
	}

	scale := params.Ramp * e.series.Meta().Multiplier
	for i := range vx {
		vx[i] *= scale
		vy[i] *= scale
	}

	pc, err := CentralPressure(e.mode, params.MaxWindSpeed, params.CentralPressure)
	if err != nil {
		return domain.WindField{}, err
	}
	params.CentralPressure = pc

	p := PressureProfile(params, e.mode, e.rho, targets)
	for i := range p {
		p[i] *= 100.0
	}
	return domain.WindField{VX: vx, VY: vy, PressurePa: p}, nil
}

func (e *Engine) griddedWind(ctx context.Context, loc series.Location, w float64, targets []domain.Point) (domain.WindField, error) {
	lower := e.series.At(loc.Lower).(*domain.GriddedSnapshot)
	st, err := e.stencil(lower, targets, domain.Point{})
	if err != nil {
		return domain.WindField{}, err
	}
	vx := e.apply(st, "vx", lower.VX, interp.FillVelocity)
	vy := e.apply(st, "vy", lower.VY, interp.FillVelocity)
	p := e.apply(st, "pressure", lower.Pressure, interp.FillPressure)

	if loc.Kind == series.Bracket {
		if err := ctx.Err(); err != nil {
			return domain.WindField{}, err
		}
		upper := e.series.At(loc.Upper).(*domain.GriddedSnapshot)
		stU, err := e.stencil(upper, targets, domain.Point{})
		if err != nil {
			return domain.WindField{}, err
		}
		vx = Blend(vx, e.apply(stU, "vx", upper.VX, interp.FillVelocity), w)
		vy = Blend(vy, e.apply(stU, "vy", upper.VY, interp.FillVelocity), w)
		p = Blend(p, e.apply(stU, "pressure", upper.Pressure, interp.FillPressure), w)
	}

	for i := range p {
		p[i] *= 100.0
	}
	return domain.WindField{VX: vx, VY: vy, PressurePa: p}, nil
}

func (e *Engine) stencil(snap domain.Snapshot, targets []domain.Point, offset domain.Point) (interp.Stencil, error) {
	m, err := e.cache.Mesh(snap)
	if err != nil {
		return nil, err
	}
	return m.Locate(targets, offset), nil
}

func (e *Engine) apply(st interp.Stencil, channel string, values []float64, fill float64) []float64 {
	if n := st.Outside(); n > 0 {
		e.metrics.PointsFilled.WithLabelValues(channel).Add(float64(n))
	}
	return st.Apply(values, fill)
}
