package destruction

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/voxel"
)

// Debris parameters per phase.
const (
	initialScanReach   = 2
	initialLifetime    = 5.0
	initialSpin        = 10.0
	propagateLifetime  = 8.0
	propagateSpin      = 5.0
	propagateFallSpeed = 2.0
)

// processInitial clears destructible voxels in the 5x5x5 window around the
// epicenter that lie within the event radius.
func (s *System) processInitial(world voxel.World, e *Event, summary *ChangeSummary) ([]voxel.Pos, error) {
	center := voxel.FromVec3(e.Position)
	var newly []voxel.Pos
	sawMetal := false

	for dx := int32(-initialScanReach); dx <= initialScanReach; dx++ {
		for dy := int32(-initialScanReach); dy <= initialScanReach; dy++ {
			for dz := int32(-initialScanReach); dz <= initialScanReach; dz++ {
				dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
				if dist > e.Radius {
					continue
				}
				pos := center.Offset(dx, dy, dz)
				m, live := isLive(world, pos)
				if !live || !CanDestroyVoxel(m, e.Type, e.Force) {
					continue
				}
				if err := world.SetVoxel(pos, voxel.Air); err != nil {
					return newly, err
				}
				e.markAffected(pos)
				e.Debris = append(e.Debris, DebrisParticle{
					Position:        pos.Vec3(),
					Velocity:        blastVelocity(pos.Vec3(), e.Position, e.Force),
					AngularVelocity: s.spin(initialSpin),
					Material:        m,
					Lifetime:        initialLifetime,
				})
				summary.Add(VoxelChange{Pos: pos, Before: m, After: voxel.Air, Reason: ReasonDestroy})
				newly = append(newly, pos)
				sawMetal = sawMetal || m == voxel.Metal
			}
		}
	}

	if len(newly) > 0 {
		intensity := float32(len(newly))
		s.particles.Emit(ParticleDust, e.Position, intensity)
		if e.Type == Explosion || e.Type == Melting {
			s.particles.Emit(ParticleFire, e.Position, intensity)
		}
		if sawMetal {
			s.particles.Emit(ParticleSparks, e.Position, intensity)
		}
	}
	return newly, nil
}

// blastVelocity pushes debris radially away from center, falling off with
// the square root of distance. Distances under one voxel count as one.
func blastVelocity(pos, center mgl32.Vec3, force float32) mgl32.Vec3 {
	dir := pos.Sub(center)
	dist := max(dir.Len(), 1)
	magnitude := force / float32(math.Sqrt(float64(dist)))
	return dir.Mul(1 / dist).Mul(magnitude)
}

// processPropagation destroys live neighbours of affected voxels that have
// lost support. Candidates are judged against the affected set as it stood
// when the call began.
func (s *System) processPropagation(world voxel.World, e *Event, summary *ChangeSummary) ([]voxel.Pos, error) {
	checked := make(map[voxel.Pos]struct{})
	var candidates []voxel.Pos
	for _, pos := range e.affectedSorted() {
		for _, n := range pos.Neighbors() {
			if _, ok := e.Affected[n]; ok {
				continue
			}
			if _, ok := checked[n]; ok {
				continue
			}
			checked[n] = struct{}{}
			if _, live := isLive(world, n); !live {
				continue
			}
			if ShouldCollapse(world, n, e.Affected) {
				candidates = append(candidates, n)
			}
		}
	}

	var newly []voxel.Pos
	for _, pos := range candidates {
		m, live := isLive(world, pos)
		if !live {
			continue
		}
		if err := world.SetVoxel(pos, voxel.Air); err != nil {
			return newly, err
		}
		e.markAffected(pos)
		e.Debris = append(e.Debris, DebrisParticle{
			Position:        pos.Vec3(),
			Velocity:        mgl32.Vec3{0, -propagateFallSpeed, 0},
			AngularVelocity: s.spin(propagateSpin),
			Material:        m,
			Lifetime:        propagateLifetime,
		})
		summary.Add(VoxelChange{Pos: pos, Before: m, After: voxel.Air, Reason: ReasonPropagate})
		newly = append(newly, pos)
	}

	if len(newly) > 0 {
		s.particles.Emit(ParticleDebris, centroid(newly), float32(len(newly)))
	}
	return newly, nil
}

// processSettling integrates event-local debris in whole fixed steps drawn
// from the accumulator Update fills. The remainder carries to the next call.
func (s *System) processSettling(e *Event) {
	step := s.cfg.FixedStep
	if step <= 0 {
		return
	}
	steps := int((e.settleAccumulator + 1e-6) / step)
	capped := false
	if limit := s.cfg.MaxSettleSteps; limit > 0 && steps > limit {
		steps = limit
		capped = true
	}
	e.settleAccumulator = max(e.settleAccumulator-float32(steps)*step, 0)
	if capped {
		// Backlog beyond the cap is dropped so it cannot grow without bound.
		e.settleAccumulator = min(e.settleAccumulator, step)
	}

	for i := 0; i < steps; i++ {
		for j := range e.Debris {
			settleStep(&e.Debris[j], step)
		}
	}
	e.Debris = retainLive(e.Debris)
}

func centroid(ps []voxel.Pos) mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, p := range ps {
		sum = sum.Add(p.Vec3())
	}
	return sum.Mul(1 / float32(len(ps)))
}
