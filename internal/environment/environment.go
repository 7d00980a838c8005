package environment

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// EffectType enumerates the environmental effects a structure can carry.
type EffectType string

const (
	EffectWind       EffectType = "wind"
	EffectEarthquake EffectType = "earthquake"
	EffectErosion    EffectType = "erosion"
	EffectFire       EffectType = "fire"
	EffectFlood      EffectType = "flood"
	EffectFreeze     EffectType = "freeze"
)

func ParseEffectType(s string) (EffectType, error) {
	switch t := EffectType(strings.ToLower(strings.TrimSpace(s))); t {
	case EffectWind, EffectEarthquake, EffectErosion, EffectFire, EffectFlood, EffectFreeze:
		return t, nil
	}
	return "", fmt.Errorf("unknown effect type %q", s)
}

// Shape selects how an Area's radius is interpreted.
type Shape string

const (
	ShapeSphere   Shape = "sphere"
	ShapeCylinder Shape = "cylinder"
	ShapeBox      Shape = "box"
	ShapeCone     Shape = "cone"
)

func ParseShape(s string) (Shape, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return ShapeSphere, nil
	}
	switch shape := Shape(trimmed); shape {
	case ShapeSphere, ShapeCylinder, ShapeBox, ShapeCone:
		return shape, nil
	}
	return "", fmt.Errorf("unknown area shape %q", s)
}

type Area struct {
	Center mgl32.Vec3
	Radius float32
	Shape  Shape
}

// Contains reports whether p lies inside the area. Cylinders are vertical and
// unbounded in height; cones open downward from Center with the radius
// growing one unit per unit of depth up to Radius.
func (a Area) Contains(p mgl32.Vec3) bool {
	d := p.Sub(a.Center)
	switch a.Shape {
	case ShapeCylinder:
		return d.X()*d.X()+d.Z()*d.Z() <= a.Radius*a.Radius
	case ShapeBox:
		return abs32(d.X()) <= a.Radius && abs32(d.Y()) <= a.Radius && abs32(d.Z()) <= a.Radius
	case ShapeCone:
		depth := -d.Y()
		if depth < 0 || depth > a.Radius {
			return false
		}
		return d.X()*d.X()+d.Z()*d.Z() <= depth*depth
	default:
		return d.Len() <= a.Radius
	}
}

// Effect is an environmental influence on an area. A non-positive Duration
// never expires.
type Effect struct {
	Type      EffectType
	Intensity float32
	Area      Area
	Duration  float32
	Remaining float32
}

func (e Effect) persistent() bool {
	return e.Duration <= 0
}

// PhysicsModifiers scale debris integration at a point.
type PhysicsModifiers struct {
	GravityScale float32
	DragScale    float32
	Drift        mgl32.Vec3
}

func NeutralModifiers() PhysicsModifiers {
	return PhysicsModifiers{GravityScale: 1, DragScale: 1}
}

type Config struct {
	// Variance jitters wind and earthquake intensity on every Step.
	Variance float32
	Seed     int64
}

type tracked struct {
	effect  Effect
	current float32
}

// Tracker keeps the set of active effects and advances their timers.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	rng     *rand.Rand
	effects []tracked
	elapsed float32
}

func NewTracker(cfg Config) *Tracker {
	if cfg.Variance < 0 {
		cfg.Variance = 0
	}
	return &Tracker{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (t *Tracker) Add(effect Effect) {
	if effect.Area.Shape == "" {
		effect.Area.Shape = ShapeSphere
	}
	effect.Remaining = effect.Duration
	t.mu.Lock()
	t.effects = append(t.effects, tracked{effect: effect, current: effect.Intensity})
	t.mu.Unlock()
}

// Step advances effect timers by dt seconds and drops expired effects. It
// returns the number of effects still active.
func (t *Tracker) Step(dt float32) int {
	if dt < 0 {
		dt = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.elapsed += dt
	kept := t.effects[:0]
	for _, tr := range t.effects {
		if !tr.effect.persistent() {
			tr.effect.Remaining -= dt
			if tr.effect.Remaining <= 0 {
				continue
			}
		}
		tr.current = t.jitter(tr.effect)
		kept = append(kept, tr)
	}
	for i := len(kept); i < len(t.effects); i++ {
		t.effects[i] = tracked{}
	}
	t.effects = kept
	return len(t.effects)
}

func (t *Tracker) jitter(effect Effect) float32 {
	switch effect.Type {
	case EffectWind, EffectEarthquake:
		if t.cfg.Variance == 0 {
			return effect.Intensity
		}
		swing := (t.rng.Float32()*2 - 1) * t.cfg.Variance
		return effect.Intensity * (1 + swing)
	default:
		return effect.Intensity
	}
}

// Active returns a copy of the current effects.
func (t *Tracker) Active() []Effect {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Effect, len(t.effects))
	for i, tr := range t.effects {
		out[i] = tr.effect
	}
	return out
}

// Elapsed is the total simulated time stepped so far, in seconds.
func (t *Tracker) Elapsed() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// IntensityAt sums the current intensity of every effect of the given type
// whose area contains p.
func (t *Tracker) IntensityAt(kind EffectType, p mgl32.Vec3) float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total float32
	for _, tr := range t.effects {
		if tr.effect.Type == kind && tr.effect.Area.Contains(p) {
			total += tr.current
		}
	}
	return total
}

// ModifiersAt folds the effects covering p into debris physics modifiers.
// Wind pushes along +X, floods add drag, earthquakes shake vertically.
func (t *Tracker) ModifiersAt(p mgl32.Vec3) PhysicsModifiers {
	mods := NeutralModifiers()
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.effects {
		if !tr.effect.Area.Contains(p) {
			continue
		}
		intensity := clamp01(tr.current)
		switch tr.effect.Type {
		case EffectWind:
			mods.DragScale += 0.5 * intensity
			mods.Drift = mods.Drift.Add(mgl32.Vec3{tr.current, 0, 0})
		case EffectFlood:
			mods.DragScale += intensity
			mods.GravityScale *= 1 - 0.3*intensity
		case EffectEarthquake:
			mods.GravityScale *= 1 + 0.06*intensity
		}
	}
	return mods
}

func clamp01(v float32) float32 {
	return float32(math.Max(0, math.Min(1, float64(v))))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
