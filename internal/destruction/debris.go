package destruction

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/environment"
)

// ModifierField supplies environmental physics modifiers at a point.
type ModifierField interface {
	ModifiersAt(p mgl32.Vec3) environment.PhysicsModifiers
}

// DebrisPhysics integrates the shared pool of free debris.
type DebrisPhysics struct {
	cfg       config.PhysicsConfig
	particles []DebrisParticle
}

func NewDebrisPhysics(cfg config.PhysicsConfig) *DebrisPhysics {
	return &DebrisPhysics{cfg: cfg}
}

// Add inserts p unless the pool is full. Existing particles are never
// evicted.
func (d *DebrisPhysics) Add(p DebrisParticle) bool {
	if len(d.particles) >= d.cfg.MaxDebrisParticles {
		return false
	}
	d.particles = append(d.particles, p)
	return true
}

// Update advances every particle by dt and drops the expired ones. A nil
// field applies no environmental modifiers.
func (d *DebrisPhysics) Update(dt float32, field ModifierField) {
	for i := range d.particles {
		mods := environment.NeutralModifiers()
		if field != nil {
			mods = field.ModifiersAt(d.particles[i].Position)
		}
		d.integrate(&d.particles[i], dt, mods)
	}
	d.particles = retainLive(d.particles)
}

func (d *DebrisPhysics) integrate(p *DebrisParticle, dt float32, mods environment.PhysicsModifiers) {
	p.Velocity[1] -= d.cfg.Gravity * mods.GravityScale * dt
	p.Velocity = p.Velocity.Add(mods.Drift.Mul(dt))
	p.Velocity = p.Velocity.Mul(1 - d.cfg.AirResistance*mods.DragScale*dt)
	p.AngularVelocity = p.AngularVelocity.Mul(1 - d.cfg.AngularDamping*dt)
	p.Position = p.Position.Add(p.Velocity.Mul(dt))
	p.Lifetime -= dt
}

func (d *DebrisPhysics) Len() int {
	return len(d.particles)
}

func (d *DebrisPhysics) Particles() []DebrisParticle {
	return append([]DebrisParticle(nil), d.particles...)
}

// Settling integration constants for debris still owned by an event.
const (
	settleGravity        = 9.81
	settleDamping        = 0.98
	settleAngularDamping = 0.95
)

// settleStep advances one fixed step of event-local debris motion.
func settleStep(p *DebrisParticle, step float32) {
	p.Lifetime -= step
	if p.Lifetime <= 0 {
		return
	}
	p.Velocity[1] -= settleGravity * step
	p.Position = p.Position.Add(p.Velocity.Mul(step))
	p.Velocity = p.Velocity.Mul(settleDamping)
	p.AngularVelocity = p.AngularVelocity.Mul(settleAngularDamping)
}

func retainLive(ps []DebrisParticle) []DebrisParticle {
	kept := ps[:0]
	for _, p := range ps {
		if p.Lifetime > 0 {
			kept = append(kept, p)
		}
	}
	return kept
}
