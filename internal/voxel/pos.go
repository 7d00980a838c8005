package voxel

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Pos addresses a voxel in world space. Y is the vertical axis.
type Pos struct {
	X int32
	Y int32
	Z int32
}

// FromVec3 rounds a float position to the voxel containing it. Halves round
// away from zero.
func FromVec3(v mgl32.Vec3) Pos {
	return Pos{
		X: roundCoord(v.X()),
		Y: roundCoord(v.Y()),
		Z: roundCoord(v.Z()),
	}
}

func roundCoord(f float32) int32 {
	return int32(math.Round(float64(f)))
}

// Vec3 returns the voxel position as a float vector.
func (p Pos) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}
}

func (p Pos) Add(o Pos) Pos {
	return Pos{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Pos) Sub(o Pos) Pos {
	return Pos{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Offset returns the position shifted by the given deltas.
func (p Pos) Offset(dx, dy, dz int32) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Less orders positions by Y, then Z, then X.
func (p Pos) Less(o Pos) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	if p.Z != o.Z {
		return p.Z < o.Z
	}
	return p.X < o.X
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

var neighborOffsets = buildNeighborOffsets()

func buildNeighborOffsets() [26]Pos {
	var out [26]Pos
	i := 0
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out[i] = Pos{X: dx, Y: dy, Z: dz}
				i++
			}
		}
	}
	return out
}

// NeighborOffsets returns the 26 offsets of the surrounding cube.
func NeighborOffsets() [26]Pos {
	return neighborOffsets
}

// Neighbors returns the 26-neighborhood of p in a fixed order.
func (p Pos) Neighbors() [26]Pos {
	var out [26]Pos
	for i, off := range neighborOffsets {
		out[i] = p.Add(off)
	}
	return out
}
