package engine

import (
	"math"
	"testing"

	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentralPressure(t *testing.T) {
	pc, err := CentralPressure(domain.RelationshipDvorak, 50, math.NaN())
	require.NoError(t, err)
	assert.InDelta(t, 962.892466, pc, 1e-6)

	pc, err = CentralPressure(domain.RelationshipKnaffZehr, 50, math.NaN())
	require.NoError(t, err)
	assert.InDelta(t, 952.518358, pc, 1e-6)

	pc, err = CentralPressure(domain.RelationshipSpecifiedPC, 50, 944)
	require.NoError(t, err)
	assert.Equal(t, 944.0, pc)

	_, err = CentralPressure(domain.RelationshipSpecifiedPC, 50, math.NaN())
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = CentralPressure(0, 50, 944)
	assert.ErrorIs(t, err, domain.ErrConfig)

	pc, err = CentralPressure(domain.RelationshipBackground, 50, 944)
	require.NoError(t, err)
	assert.Equal(t, AmbientPressureMB, pc)
}

func TestHollandB(t *testing.T) {
	pc := 1015.0 - math.Pow(50/3.92, 1/0.644)
	assert.InDelta(t, 1.6274689196967722, HollandB(50, pc, 1.2), 1e-12)

	vmaxes := []float64{0, 1e-9, 5, 40, 90, 500, 1e6, math.Inf(1)}
	pcs := []float64{-1e6, 0, 850, 950, 1012.999, 1013, 1050, math.Inf(-1)}
	for _, v := range vmaxes {
		for _, p := range pcs {
			b := HollandB(v, p, 1.2)
			assert.GreaterOrEqual(t, b, 1.0, "vmax=%g pc=%g", v, p)
			assert.LessOrEqual(t, b, 2.5, "vmax=%g pc=%g", v, p)
		}
	}
	assert.Equal(t, 1.0, HollandB(50, 1013, 1.2), "zero deficit")
	assert.Equal(t, 1.0, HollandB(50, 1020, 1.2), "negative deficit")
	assert.Equal(t, 2.5, HollandB(1e6, 1000, 1.2))
}

func TestPressureProfile(t *testing.T) {
	eye := domain.Point{Lon: -90, Lat: 25}
	params := StormParams{Eye: eye, MaxWindSpeed: 50, MaxWindRadius: 40, CentralPressure: 950, Ramp: 1}
	far := eye.Add(20, 0)
	targets := []domain.Point{eye, eye.Add(0.5, 0), far}

	p := PressureProfile(params, domain.RelationshipSpecifiedPC, 1.2, targets)
	require.Len(t, p, 3)
	assert.False(t, math.IsNaN(p[0]), "defined at the eye")
	assert.InDelta(t, 950.0, p[0], 1e-9)
	assert.Greater(t, p[1], p[0])
	assert.Greater(t, p[2], p[1])
	assert.InDelta(t, AmbientPressureMB, p[2], 0.5)

	// At r = rmax the profile is pc + deficit/e.
	atRmax := PressureProfile(StormParams{Eye: eye, MaxWindSpeed: 50, MaxWindRadius: 40, CentralPressure: 950, Ramp: 1},
		domain.RelationshipSpecifiedPC, 1.2, []domain.Point{{Lon: eye.Lon, Lat: eye.Lat + 40/domain.EarthRadiusKM*180/math.Pi}})
	assert.InDelta(t, 950+63/math.E, atRmax[0], 1e-6)

	params.Ramp = 0.5
	half := PressureProfile(params, domain.RelationshipSpecifiedPC, 1.2, targets)
	for i := range p {
		assert.InDelta(t, AmbientPressureMB-(AmbientPressureMB-p[i])*0.5, half[i], 1e-9)
	}
}

func TestPressureProfile_BackgroundIsUniform(t *testing.T) {
	eyes := []domain.Point{{Lon: -90, Lat: 25}, {Lon: 140, Lat: -12}, {}}
	for _, eye := range eyes {
		for _, ramp := range []float64{0, 0.3, 1} {
			params := StormParams{Eye: eye, MaxWindSpeed: 80, MaxWindRadius: 15, CentralPressure: 900, Ramp: ramp}
			p := PressureProfile(params, domain.RelationshipBackground, 1.2, []domain.Point{eye, eye.Add(1, 1), {}})
			assert.Equal(t, []float64{1013, 1013, 1013}, p)
		}
	}
}

func TestCoRegister(t *testing.T) {
	a := &domain.StormSnapshot{Eye: domain.Point{Lon: -90, Lat: 25}}
	b := &domain.StormSnapshot{Eye: domain.Point{Lon: -88, Lat: 26}}

	reg := CoRegister(a, b, 0.25)
	want := Registration{
		Eye:     domain.Point{Lon: -89.5, Lat: 25.25},
		OffsetA: domain.Point{Lon: 0.5, Lat: 0.25},
		OffsetB: domain.Point{Lon: -1.5, Lat: -0.75},
	}
	if diff := cmp.Diff(want, reg); diff != "" {
		t.Errorf("CoRegister mismatch (-want +got):\n%s", diff)
	}

	same := CoRegister(a, a, 0.7)
	assert.Equal(t, domain.Point{}, same.OffsetA)
	assert.Equal(t, domain.Point{}, same.OffsetB)
}

func TestBlend(t *testing.T) {
	lower := []float64{1.1, -3.7, 1e-300, 12345.678}
	upper := []float64{0.3, 9.9, 2.2, -0.001}

	assert.Equal(t, lower, Blend(lower, upper, 0))
	assert.Equal(t, upper, Blend(lower, upper, 1))

	mid := Blend(lower, upper, 0.5)
	for i := range mid {
		assert.InDelta(t, (lower[i]+upper[i])/2, mid[i], 1e-9)
	}
}

func TestWindStress(t *testing.T) {
	sx, sy := WindStress(1.2, 10, 0)
	assert.InDelta(t, 0.1704, sx, 1e-12)
	assert.Equal(t, 0.0, sy)

	sx, sy = WindStress(1.2, 0, 0)
	assert.Equal(t, 0.0, sx)
	assert.Equal(t, 0.0, sy)

	// Stress points along the wind.
	sx, sy = WindStress(1.15, -3, 4)
	speed := 5.0
	k := 1.15 * 0.001 * (0.75 + 0.067*speed) * speed
	assert.InDelta(t, -3*k, sx, 1e-12)
	assert.InDelta(t, 4*k, sy, 1e-12)

	xs, ys := StressField(1.2, []float64{10, 0}, []float64{0, 10})
	assert.InDelta(t, 0.1704, xs[0], 1e-12)
	assert.InDelta(t, 0.1704, ys[1], 1e-12)
}
