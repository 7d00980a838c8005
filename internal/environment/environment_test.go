package environment

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaContains(t *testing.T) {
	center := mgl32.Vec3{0, 10, 0}
	cases := []struct {
		shape Shape
		point mgl32.Vec3
		want  bool
	}{
		{ShapeSphere, mgl32.Vec3{3, 10, 4}, true},
		{ShapeSphere, mgl32.Vec3{4, 10, 4}, false},
		{ShapeCylinder, mgl32.Vec3{3, 100, 4}, true},
		{ShapeCylinder, mgl32.Vec3{4, 0, 4}, false},
		{ShapeBox, mgl32.Vec3{5, 15, -5}, true},
		{ShapeBox, mgl32.Vec3{5.5, 10, 0}, false},
		{ShapeCone, mgl32.Vec3{2, 7, 0}, true},
		{ShapeCone, mgl32.Vec3{4, 7, 0}, false},
		{ShapeCone, mgl32.Vec3{0, 11, 0}, false},
	}
	for _, tc := range cases {
		area := Area{Center: center, Radius: 5, Shape: tc.shape}
		assert.Equal(t, tc.want, area.Contains(tc.point), "%s contains %v", tc.shape, tc.point)
	}
}

func TestTrackerStepExpiresEffects(t *testing.T) {
	tracker := NewTracker(Config{Seed: 1})
	tracker.Add(Effect{Type: EffectFire, Intensity: 2, Area: Area{Radius: 3}, Duration: 1})
	tracker.Add(Effect{Type: EffectErosion, Intensity: 1, Area: Area{Radius: 3}})

	require.Equal(t, 2, tracker.Step(0.5))
	active := tracker.Active()
	require.Len(t, active, 2)
	assert.InDelta(t, 0.5, active[0].Remaining, 1e-6)
	assert.Equal(t, ShapeSphere, active[0].Area.Shape)

	require.Equal(t, 1, tracker.Step(0.6))
	active = tracker.Active()
	require.Len(t, active, 1)
	assert.Equal(t, EffectErosion, active[0].Type)
	assert.InDelta(t, 1.1, tracker.Elapsed(), 1e-6)
}

func TestTrackerIntensityAt(t *testing.T) {
	tracker := NewTracker(Config{Seed: 1})
	tracker.Add(Effect{Type: EffectFire, Intensity: 2, Area: Area{Radius: 3}})
	tracker.Add(Effect{Type: EffectFire, Intensity: 1.5, Area: Area{Center: mgl32.Vec3{2, 0, 0}, Radius: 3}})
	tracker.Add(Effect{Type: EffectFlood, Intensity: 9, Area: Area{Radius: 3}})

	assert.InDelta(t, 3.5, tracker.IntensityAt(EffectFire, mgl32.Vec3{1, 0, 0}), 1e-6)
	assert.InDelta(t, 1.5, tracker.IntensityAt(EffectFire, mgl32.Vec3{4, 0, 0}), 1e-6)
	assert.Zero(t, tracker.IntensityAt(EffectWind, mgl32.Vec3{}))
}

func TestTrackerVarianceIsSeeded(t *testing.T) {
	sample := func() []float32 {
		tracker := NewTracker(Config{Variance: 0.25, Seed: 42})
		tracker.Add(Effect{Type: EffectWind, Intensity: 4, Area: Area{Radius: 10}})
		var out []float32
		for i := 0; i < 5; i++ {
			tracker.Step(0.1)
			v := tracker.IntensityAt(EffectWind, mgl32.Vec3{})
			assert.GreaterOrEqual(t, v, float32(3))
			assert.LessOrEqual(t, v, float32(5))
			out = append(out, v)
		}
		return out
	}
	assert.Equal(t, sample(), sample())
}

func TestModifiersAt(t *testing.T) {
	tracker := NewTracker(Config{Seed: 1})
	assert.Equal(t, NeutralModifiers(), tracker.ModifiersAt(mgl32.Vec3{}))

	tracker.Add(Effect{Type: EffectWind, Intensity: 1, Area: Area{Radius: 5}})
	tracker.Add(Effect{Type: EffectFlood, Intensity: 0.5, Area: Area{Radius: 5}})
	mods := tracker.ModifiersAt(mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 2.0, mods.DragScale, 1e-6)
	assert.InDelta(t, 0.85, mods.GravityScale, 1e-6)
	assert.InDelta(t, 1.0, mods.Drift.X(), 1e-6)

	assert.Equal(t, NeutralModifiers(), tracker.ModifiersAt(mgl32.Vec3{50, 0, 0}))
}

func TestParseHelpers(t *testing.T) {
	kind, err := ParseEffectType(" Earthquake ")
	require.NoError(t, err)
	assert.Equal(t, EffectEarthquake, kind)
	_, err = ParseEffectType("meteor")
	assert.Error(t, err)

	shape, err := ParseShape("")
	require.NoError(t, err)
	assert.Equal(t, ShapeSphere, shape)
	shape, err = ParseShape("CONE")
	require.NoError(t, err)
	assert.Equal(t, ShapeCone, shape)
	_, err = ParseShape("torus")
	assert.Error(t, err)
}
