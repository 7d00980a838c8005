package destruction

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/config"
)

type ParticleType int

const (
	ParticleDust ParticleType = iota
	ParticleSmoke
	ParticleFire
	ParticleSparks
	ParticleDebris
)

func (t ParticleType) String() string {
	switch t {
	case ParticleDust:
		return "dust"
	case ParticleSmoke:
		return "smoke"
	case ParticleFire:
		return "fire"
	case ParticleSparks:
		return "sparks"
	case ParticleDebris:
		return "debris"
	}
	return fmt.Sprintf("particle(%d)", int(t))
}

var particleColors = map[ParticleType]color.NRGBA{
	ParticleDust:   {R: 0xc2, G: 0xb2, B: 0x80, A: 0xff},
	ParticleSmoke:  {R: 0x60, G: 0x60, B: 0x60, A: 0xc0},
	ParticleFire:   {R: 0xff, G: 0x7a, B: 0x1a, A: 0xff},
	ParticleSparks: {R: 0xff, G: 0xe0, B: 0x66, A: 0xff},
	ParticleDebris: {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
}

// ParticleEffect is a visual effect with no physics of its own.
type ParticleEffect struct {
	Type      ParticleType
	Position  mgl32.Vec3
	Intensity float32
	Lifetime  float32
	Color     color.NRGBA
}

// Particles is a capacity-limited pool of effects that only age.
type Particles struct {
	cfg     config.ParticleConfig
	effects []ParticleEffect
}

func NewParticles(cfg config.ParticleConfig) *Particles {
	return &Particles{cfg: cfg}
}

// Emit adds an effect with the default lifetime. It reports false once the
// pool is full.
func (p *Particles) Emit(kind ParticleType, pos mgl32.Vec3, intensity float32) bool {
	if len(p.effects) >= p.cfg.MaxParticleEffects {
		return false
	}
	p.effects = append(p.effects, ParticleEffect{
		Type:      kind,
		Position:  pos,
		Intensity: intensity,
		Lifetime:  p.cfg.DefaultParticleLifetime,
		Color:     particleColors[kind],
	})
	return true
}

func (p *Particles) Update(dt float32) {
	kept := p.effects[:0]
	for _, e := range p.effects {
		e.Lifetime -= dt
		if e.Lifetime > 0 {
			kept = append(kept, e)
		}
	}
	p.effects = kept
}

func (p *Particles) Len() int {
	return len(p.effects)
}

func (p *Particles) Effects() []ParticleEffect {
	return append([]ParticleEffect(nil), p.effects...)
}
