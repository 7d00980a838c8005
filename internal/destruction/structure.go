package destruction

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/environment"
	"voxeldestruct/internal/voxel"
)

// MaterialDistribution drives custom structure generation.
type MaterialDistribution struct {
	Primary    voxel.Material
	Secondary  []WeightedMaterial
	Structural []voxel.Material
}

type WeightedMaterial struct {
	Material    voxel.Material
	Probability float32
}

// Params describes a structure to generate. Dimensions are width (X),
// height (Y) and depth (Z) in whole voxels; Origin offsets the layout in
// world space.
type Params struct {
	EnvironmentID string
	Origin        voxel.Pos
	Dimensions    mgl32.Vec3
	StructureType StructureType
	Distribution  MaterialDistribution
	Triggers      []Trigger
	Effects       []environment.Effect
}

// DestructibleEnvironment is a generated structure: its voxels, their
// integrity scores and support roles, plus the triggers and effects that
// travel with it. All positions are in world space.
type DestructibleEnvironment struct {
	ID         string
	Origin     voxel.Pos
	Dimensions voxel.Dimensions
	Type       StructureType
	Voxels     map[voxel.Pos]voxel.Material
	Integrity  map[voxel.Pos]float32
	Supports   map[voxel.Pos]SupportType
	Triggers   []Trigger
	Effects    []environment.Effect

	fired map[int]bool
}

func newEnvironment(params Params, dim voxel.Dimensions) *DestructibleEnvironment {
	return &DestructibleEnvironment{
		ID:         params.EnvironmentID,
		Origin:     params.Origin,
		Dimensions: dim,
		Type:       params.StructureType,
		Voxels:     make(map[voxel.Pos]voxel.Material),
		Integrity:  make(map[voxel.Pos]float32),
		Supports:   make(map[voxel.Pos]SupportType),
		fired:      make(map[int]bool),
	}
}

// place writes a voxel at layout-local coordinates.
func (e *DestructibleEnvironment) place(x, y, z int, m voxel.Material, integrity float32) voxel.Pos {
	pos := e.Origin.Offset(int32(x), int32(y), int32(z))
	e.Voxels[pos] = m
	e.Integrity[pos] = integrity
	return pos
}

func (e *DestructibleEnvironment) support(pos voxel.Pos, role SupportType) {
	e.Supports[pos] = role
}

// Positions returns the structure's voxel positions in a stable order.
func (e *DestructibleEnvironment) Positions() []voxel.Pos {
	out := make([]voxel.Pos, 0, len(e.Voxels))
	for pos := range e.Voxels {
		out = append(out, pos)
	}
	sortPositions(out)
	return out
}

// Bounds covers the structure's generation box.
func (e *DestructibleEnvironment) Bounds() voxel.Bounds {
	return voxel.Bounds{
		Min: e.Origin,
		Max: e.Origin.Offset(int32(e.Dimensions.Width-1), int32(e.Dimensions.Height-1), int32(e.Dimensions.Depth-1)),
	}
}

// Stamp writes every non-Air voxel of the structure into world.
func (e *DestructibleEnvironment) Stamp(world voxel.World) error {
	for _, pos := range e.Positions() {
		m := e.Voxels[pos]
		if m == voxel.Air {
			continue
		}
		if err := world.SetVoxel(pos, m); err != nil {
			return fmt.Errorf("stamp %s: %w", e.ID, err)
		}
	}
	return nil
}

// CountMaterial reports how many voxels of the structure hold m.
func (e *DestructibleEnvironment) CountMaterial(m voxel.Material) int {
	n := 0
	for _, v := range e.Voxels {
		if v == m {
			n++
		}
	}
	return n
}

// SupportsByRole groups support positions by role, sorted.
func (e *DestructibleEnvironment) SupportsByRole() map[SupportType][]voxel.Pos {
	out := make(map[SupportType][]voxel.Pos)
	for pos, role := range e.Supports {
		out[role] = append(out[role], pos)
	}
	for _, ps := range out {
		sortPositions(ps)
	}
	return out
}
