package destruction

import (
	"math"

	"voxeldestruct/internal/voxel"
)

// forceMultiplier scales raw force when testing a voxel's resistance.
func forceMultiplier(t DestructionType) float32 {
	switch t {
	case Explosion:
		return 1.5
	case Impact:
		return 1.0
	case Erosion:
		return 0.3
	case Cutting:
		return 2.0
	case Melting:
		return 0.8
	case Freezing:
		return 0.6
	}
	return 1.0
}

// radiusMultiplier shapes the reach of each destruction type.
func radiusMultiplier(t DestructionType) float32 {
	switch t {
	case Explosion:
		return 1.5
	case Impact:
		return 0.8
	case Erosion:
		return 2.0
	case Cutting:
		return 0.3
	case Melting:
		return 1.2
	case Freezing:
		return 1.0
	}
	return 1.0
}

// CanDestroyVoxel is the damage model: a voxel breaks when the scaled force
// strictly exceeds its material resistance.
func CanDestroyVoxel(m voxel.Material, t DestructionType, force float32) bool {
	return force*forceMultiplier(t) > m.Properties().DestructionResistance
}

// DestructionRadius returns sqrt(force) * 2 scaled by the type multiplier.
// Negative force has no reach.
func DestructionRadius(force float32, t DestructionType) float32 {
	if force <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(force))) * 2 * radiusMultiplier(t)
}

// supportThreshold is the fraction of live neighbours below which a voxel
// falls.
const supportThreshold = 0.4

// ShouldCollapse reports whether pos has lost critical support: fewer than
// 40% of its 26 neighbours are live and not in destroyed.
func ShouldCollapse(world voxel.World, pos voxel.Pos, destroyed map[voxel.Pos]struct{}) bool {
	live := 0
	for _, n := range pos.Neighbors() {
		if _, gone := destroyed[n]; gone {
			continue
		}
		if m, ok := world.Voxel(n); ok && m != voxel.Air {
			live++
		}
	}
	return float32(live)/26 < supportThreshold
}

func isLive(world voxel.World, pos voxel.Pos) (voxel.Material, bool) {
	m, ok := world.Voxel(pos)
	if !ok || m == voxel.Air {
		return voxel.Air, false
	}
	return m, true
}
