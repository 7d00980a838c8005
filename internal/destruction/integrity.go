package destruction

import (
	"voxeldestruct/internal/config"
	"voxeldestruct/internal/voxel"
)

// supportBonus is added to voxels that carry a structural role.
const supportBonus = 20

// IntegrityAnalyzer scores every voxel of a structure from its material,
// support role and the mean support contribution of its neighbours.
type IntegrityAnalyzer struct {
	cfg config.IntegrityConfig
}

func NewIntegrityAnalyzer(cfg config.IntegrityConfig) *IntegrityAnalyzer {
	return &IntegrityAnalyzer{cfg: cfg}
}

// Analyze replaces env.Integrity wholesale. With structural analysis
// disabled only the material base is used.
func (a *IntegrityAnalyzer) Analyze(env *DestructibleEnvironment) {
	scores := make(map[voxel.Pos]float32, len(env.Voxels))
	for pos, m := range env.Voxels {
		scores[pos] = a.VoxelIntegrity(env, pos, m)
	}
	env.Integrity = scores
}

func (a *IntegrityAnalyzer) VoxelIntegrity(env *DestructibleEnvironment, pos voxel.Pos, m voxel.Material) float32 {
	score := m.Properties().StructuralIntegrity
	if !a.cfg.EnableStructuralAnalysis {
		return score
	}
	if _, ok := env.Supports[pos]; ok {
		score += supportBonus
	}
	return score + neighborSupport(env, pos)
}

func neighborSupport(env *DestructibleEnvironment, pos voxel.Pos) float32 {
	var total float32
	count := 0
	for _, n := range pos.Neighbors() {
		m, ok := env.Voxels[n]
		if !ok || m == voxel.Air {
			continue
		}
		total += m.Properties().SupportContribution
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float32(count)
}
