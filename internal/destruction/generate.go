package destruction

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/voxel"
)

// dimensionsOf validates that every axis is a whole number of at least one
// voxel.
func dimensionsOf(v mgl32.Vec3) (voxel.Dimensions, error) {
	var out [3]int
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
			return voxel.Dimensions{}, fmt.Errorf("%w: %v", ErrInvalidDimensions, v)
		}
		out[i] = int(f)
	}
	return voxel.Dimensions{Width: out[0], Height: out[1], Depth: out[2]}, nil
}

func generateLayout(env *DestructibleEnvironment, params Params, rng *rand.Rand) error {
	dim := env.Dimensions
	switch params.StructureType {
	case Building:
		generateBuilding(env, dim)
	case Bridge:
		generateBridge(env, dim)
	case Tower:
		generateTower(env, dim)
	case Wall:
		generateWall(env, dim)
	case Terrain:
		generateTerrain(env, dim)
	case CustomStructure:
		generateCustom(env, dim, params.Distribution, rng)
	default:
		return fmt.Errorf("%w: %v", ErrUnknownStructure, params.StructureType)
	}
	return nil
}

func edges(n int) []int {
	if n == 1 {
		return []int{0}
	}
	return []int{0, n - 1}
}

// generateBuilding lays a concrete foundation, brick exterior walls with
// metal columns, interior wood floors every four levels and glass windows
// on the front face.
func generateBuilding(env *DestructibleEnvironment, dim voxel.Dimensions) {
	w, h, d := dim.Width, dim.Height, dim.Depth

	for x := 0; x < w; x++ {
		for z := 0; z < d; z++ {
			env.place(x, 0, z, voxel.Concrete, 100)
		}
	}

	for y := 1; y < h; y++ {
		for x := 0; x < w; x++ {
			for _, z := range edges(d) {
				if x%4 == 0 && y%3 == 1 {
					env.support(env.place(x, y, z, voxel.Metal, 150), Column)
				} else {
					env.place(x, y, z, voxel.Brick, 60)
				}
			}
		}
		for z := 0; z < d; z++ {
			for _, x := range edges(w) {
				if z%4 == 0 && y%3 == 1 {
					env.support(env.place(x, y, z, voxel.Metal, 150), Column)
				} else {
					env.place(x, y, z, voxel.Brick, 60)
				}
			}
		}
	}

	for floor := 3; floor < h; floor += 4 {
		for x := 1; x < w-1; x++ {
			for z := 1; z < d-1; z++ {
				env.place(x, floor, z, voxel.Wood, 30)
			}
		}
	}

	for y := 2; y < h; y += 4 {
		for x := 2; x < w-2; x += 3 {
			env.place(x, y, 0, voxel.Glass, 5)
		}
	}
}

// generateBridge raises concrete pillars along the centre line, a wood deck
// at 80% of the height and metal cables above it.
func generateBridge(env *DestructibleEnvironment, dim voxel.Dimensions) {
	w, h, d := dim.Width, dim.Height, dim.Depth
	centerZ := min(int(math.Round(float64(d)/2)), d-1)

	step := max(w/4, 1)
	for px := 0; px < w; px += step {
		for y := 0; y < h; y++ {
			env.support(env.place(px, y, centerZ, voxel.Concrete, 120), Pillar)
		}
	}

	deck := float64(h) * 0.8
	deckY := min(int(math.Round(deck)), h-1)
	for x := 0; x < w; x++ {
		for z := d / 3; z < 2*d/3; z++ {
			env.place(x, deckY, z, voxel.Wood, 40)
		}
	}

	for x := 0; x < w; x += 2 {
		for y := int(deck); y < h; y += 2 {
			env.support(env.place(x, y, centerZ, voxel.Metal, 80), Cable)
		}
	}
}

// generateTower builds a tapering two-voxel ring shell of stone with metal
// reinforcement every ten levels.
func generateTower(env *DestructibleEnvironment, dim voxel.Dimensions) {
	w, h, d := dim.Width, dim.Height, dim.Depth
	centerX := float64(w) / 2
	centerZ := float64(d) / 2

	for y := 0; y < h; y++ {
		radius := (float64(w) / 2) * (1 - float64(y)/float64(h)*0.3)
		for x := 0; x < w; x++ {
			for z := 0; z < d; z++ {
				dist := math.Hypot(float64(x)-centerX, float64(z)-centerZ)
				if dist > radius || dist < radius-2 {
					continue
				}
				if y%10 == 0 {
					env.support(env.place(x, y, z, voxel.Metal, 100), Ring)
				} else {
					env.place(x, y, z, voxel.Stone, 70)
				}
			}
		}
	}
}

// generateWall builds a wall at most two voxels thick on a concrete footing
// with a metal column every eight voxels.
func generateWall(env *DestructibleEnvironment, dim voxel.Dimensions) {
	w, h, d := dim.Width, dim.Height, dim.Depth
	thickness := min(2, d)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for z := 0; z < thickness; z++ {
				switch {
				case y == 0:
					env.place(x, y, z, voxel.Concrete, 120)
				case x%8 == 0:
					env.support(env.place(x, y, z, voxel.Metal, 100), Column)
				default:
					env.place(x, y, z, voxel.Brick, 60)
				}
			}
		}
	}
}

// generateTerrain fills rolling columns layered stone, dirt and grass.
func generateTerrain(env *DestructibleEnvironment, dim voxel.Dimensions) {
	w, h, d := dim.Width, dim.Height, dim.Depth
	dirt := voxel.Custom(voxel.CustomDirtID)
	grass := voxel.Custom(voxel.CustomGrassID)

	for x := 0; x < w; x++ {
		for z := 0; z < d; z++ {
			variation := (math.Sin(float64(x)*0.1) + math.Cos(float64(z)*0.1)) * 5
			columnHeight := max(int(float64(h)*0.6+variation), 0)
			for y := 0; y < min(columnHeight, h); y++ {
				m := grass
				switch {
				case y < columnHeight/4:
					m = voxel.Stone
				case y < columnHeight*2/3:
					m = dirt
				}
				env.place(x, y, z, m, 50)
			}
		}
	}
}

// generateCustom fills the whole box from a material distribution. The
// bottom layer is foundation, the vertical edges take structural materials
// and everything else draws from the weighted secondaries before falling
// back to the primary material.
func generateCustom(env *DestructibleEnvironment, dim voxel.Dimensions, dist MaterialDistribution, rng *rand.Rand) {
	w, h, d := dim.Width, dim.Height, dim.Depth

	for y := 0; y < h; y++ {
		for z := 0; z < d; z++ {
			for x := 0; x < w; x++ {
				edge := (x == 0 || x == w-1) && (z == 0 || z == d-1)
				var m voxel.Material
				role, hasRole := SupportType(0), false
				switch {
				case y == 0:
					m = dist.Primary
					if len(dist.Structural) > 0 {
						m = dist.Structural[0]
					}
					role, hasRole = Foundation, true
				case edge && len(dist.Structural) > 0:
					m = dist.Structural[y%len(dist.Structural)]
					role, hasRole = Column, true
				default:
					m = dist.pick(rng)
				}
				if m == voxel.Air {
					continue
				}
				pos := env.place(x, y, z, m, m.Properties().StructuralIntegrity)
				if hasRole {
					env.support(pos, role)
				}
			}
		}
	}
}

func (d MaterialDistribution) pick(rng *rand.Rand) voxel.Material {
	if len(d.Secondary) == 0 {
		return d.Primary
	}
	roll := rng.Float32()
	var acc float32
	for _, wm := range d.Secondary {
		acc += wm.Probability
		if roll < acc {
			return wm.Material
		}
	}
	return d.Primary
}
