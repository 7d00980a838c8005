package destruction

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/voxel"
)

const (
	collapseLifetime  = 10.0
	collapseSpin      = 8.0
	collapseScatter   = 3.0
	collapseFallSpeed = 5.0
)

// collapseState is the resumable flood fill behind the Collapsing phase.
// Seeds are the affected voxels when the pass began; regions grow through
// 26-connected collapse-eligible positions.
type collapseState struct {
	seeds    []voxel.Pos
	next     int
	visited  map[voxel.Pos]struct{}
	frontier []voxel.Pos
	region   []voxel.Pos
	open     bool
}

func newCollapseState(seeds []voxel.Pos) *collapseState {
	return &collapseState{
		seeds:   seeds,
		visited: make(map[voxel.Pos]struct{}),
	}
}

func (c *collapseState) nextSeed() (voxel.Pos, bool) {
	for c.next < len(c.seeds) {
		seed := c.seeds[c.next]
		c.next++
		if _, seen := c.visited[seed]; !seen {
			return seed, true
		}
	}
	return voxel.Pos{}, false
}

// processCollapse pops at most the collapse budget of frontier entries.
// Regions are committed as soon as they close; a pass that runs out of
// seeds is discarded so the next call starts over from the current
// affected set.
func (s *System) processCollapse(world voxel.World, e *Event, summary *ChangeSummary) ([]voxel.Pos, error) {
	if e.collapse == nil {
		e.collapse = newCollapseState(e.affectedSorted())
	}
	st := e.collapse
	budget := s.cfg.EffectiveCollapseBudget()
	var newly []voxel.Pos

	for {
		if len(st.frontier) == 0 {
			if st.open {
				committed, err := s.commitRegion(world, e, st.region, summary)
				newly = append(newly, committed...)
				if err != nil {
					return newly, err
				}
				st.region = nil
				st.open = false
			}
			if budget == 0 {
				break
			}
			seed, ok := st.nextSeed()
			if !ok {
				e.collapse = nil
				break
			}
			st.frontier = append(st.frontier, seed)
			st.open = true
		}
		if budget == 0 {
			break
		}

		pos := st.frontier[0]
		st.frontier = st.frontier[1:]
		budget--
		if _, seen := st.visited[pos]; seen {
			continue
		}
		st.visited[pos] = struct{}{}
		if !collapseEligible(world, e, pos) {
			continue
		}
		st.region = append(st.region, pos)
		for _, n := range pos.Neighbors() {
			if _, seen := st.visited[n]; !seen {
				st.frontier = append(st.frontier, n)
			}
		}
	}

	if len(newly) > 0 {
		center := centroid(newly)
		s.particles.Emit(ParticleDebris, center, float32(len(newly)))
		s.particles.Emit(ParticleSmoke, center, float32(len(newly)))
	}
	return newly, nil
}

// collapseEligible admits already-affected positions and live voxels that
// have lost support.
func collapseEligible(world voxel.World, e *Event, pos voxel.Pos) bool {
	if _, affected := e.Affected[pos]; !affected {
		if _, live := isLive(world, pos); !live {
			return false
		}
	}
	return ShouldCollapse(world, pos, e.Affected)
}

// commitRegion destroys the live members of a closed region when it is
// larger than the configured minimum.
func (s *System) commitRegion(world voxel.World, e *Event, region []voxel.Pos, summary *ChangeSummary) ([]voxel.Pos, error) {
	if len(region) <= s.cfg.CollapseMinRegion {
		return nil, nil
	}
	ordered := append([]voxel.Pos(nil), region...)
	sortPositions(ordered)

	var newly []voxel.Pos
	for _, pos := range ordered {
		m, live := isLive(world, pos)
		if !live {
			e.markAffected(pos)
			continue
		}
		if err := world.SetVoxel(pos, voxel.Air); err != nil {
			return newly, err
		}
		e.markAffected(pos)
		e.Debris = append(e.Debris, DebrisParticle{
			Position: pos.Vec3(),
			Velocity: mgl32.Vec3{
				(s.rng.Float32() - 0.5) * collapseScatter,
				-collapseFallSpeed - s.rng.Float32()*collapseScatter,
				(s.rng.Float32() - 0.5) * collapseScatter,
			},
			AngularVelocity: s.spin(collapseSpin),
			Material:        m,
			Lifetime:        collapseLifetime,
		})
		summary.Add(VoxelChange{Pos: pos, Before: m, After: voxel.Air, Reason: ReasonCollapse})
		newly = append(newly, pos)
	}
	return newly, nil
}
