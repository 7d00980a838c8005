package destruction

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/environment"
	"voxeldestruct/internal/voxel"
)

func TestDebrisPhysicsIntegrates(t *testing.T) {
	physics := NewDebrisPhysics(config.PhysicsConfig{
		Gravity: 10, AirResistance: 0.1, AngularDamping: 0.5, MaxDebrisParticles: 4,
	})
	require.True(t, physics.Add(DebrisParticle{
		Velocity:        mgl32.Vec3{1, 0, 0},
		AngularVelocity: mgl32.Vec3{2, 0, 0},
		Material:        voxel.Stone,
		Lifetime:        1,
	}))

	physics.Update(0.5, nil)
	p := physics.Particles()[0]
	// vy = -5, then everything scales by 1-0.1*0.5.
	assert.InDelta(t, 0.95, p.Velocity.X(), 1e-5)
	assert.InDelta(t, -4.75, p.Velocity.Y(), 1e-5)
	assert.InDelta(t, 0.475, p.Position.X(), 1e-5)
	assert.InDelta(t, -2.375, p.Position.Y(), 1e-5)
	assert.InDelta(t, 1.5, p.AngularVelocity.X(), 1e-5)
	assert.InDelta(t, 0.5, p.Lifetime, 1e-6)

	physics.Update(0.5, nil)
	assert.Zero(t, physics.Len())
}

func TestDebrisPhysicsCapacity(t *testing.T) {
	physics := NewDebrisPhysics(config.PhysicsConfig{MaxDebrisParticles: 2})
	assert.True(t, physics.Add(DebrisParticle{Lifetime: 1}))
	assert.True(t, physics.Add(DebrisParticle{Lifetime: 2}))
	assert.False(t, physics.Add(DebrisParticle{Lifetime: 3}))
	assert.Equal(t, 2, physics.Len())
	assert.InDelta(t, 1, physics.Particles()[0].Lifetime, 1e-6)
}

func TestDebrisPhysicsFollowsEnvironment(t *testing.T) {
	tracker := environment.NewTracker(environment.Config{Seed: 3})
	tracker.Add(environment.Effect{
		Type:      environment.EffectWind,
		Intensity: 1,
		Area:      environment.Area{Radius: 100},
	})
	cfg := config.PhysicsConfig{Gravity: 10, MaxDebrisParticles: 4}

	calm := NewDebrisPhysics(cfg)
	windy := NewDebrisPhysics(cfg)
	for _, pool := range []*DebrisPhysics{calm, windy} {
		pool.Add(DebrisParticle{Lifetime: 5})
	}
	calm.Update(0.1, nil)
	windy.Update(0.1, tracker)

	assert.Zero(t, calm.Particles()[0].Velocity.X())
	assert.InDelta(t, 0.1, windy.Particles()[0].Velocity.X(), 1e-6)
	assert.InDelta(t, calm.Particles()[0].Velocity.Y(), windy.Particles()[0].Velocity.Y(), 1e-6)
}

func TestSettleStep(t *testing.T) {
	p := DebrisParticle{Velocity: mgl32.Vec3{0, 1, 0}, AngularVelocity: mgl32.Vec3{1, 1, 1}, Lifetime: 1}
	settleStep(&p, 0.1)
	assert.InDelta(t, 0.9, p.Lifetime, 1e-6)
	assert.InDelta(t, 0.0019, p.Position.Y(), 1e-5)
	assert.InDelta(t, 0.01862, p.Velocity.Y(), 1e-5)
	assert.InDelta(t, 0.95, p.AngularVelocity.Z(), 1e-6)

	dying := DebrisParticle{Velocity: mgl32.Vec3{0, 1, 0}, Lifetime: 0.05}
	settleStep(&dying, 0.1)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, dying.Velocity)
	assert.Empty(t, retainLive([]DebrisParticle{dying}))
}

func TestParticlesAgeAndCap(t *testing.T) {
	particles := NewParticles(config.ParticleConfig{MaxParticleEffects: 2, DefaultParticleLifetime: 1})
	assert.True(t, particles.Emit(ParticleFire, mgl32.Vec3{}, 3))
	assert.True(t, particles.Emit(ParticleSmoke, mgl32.Vec3{}, 1))
	assert.False(t, particles.Emit(ParticleDust, mgl32.Vec3{}, 1))

	effects := particles.Effects()
	require.Len(t, effects, 2)
	assert.Equal(t, particleColors[ParticleFire], effects[0].Color)
	assert.Equal(t, "smoke", effects[1].Type.String())

	particles.Update(0.6)
	assert.Equal(t, 2, particles.Len())
	particles.Update(0.6)
	assert.Zero(t, particles.Len())
	assert.True(t, particles.Emit(ParticleDust, mgl32.Vec3{}, 1))
}
