package voxel

import (
	"fmt"

	"voxeldestruct/internal/config"
)

// ChunkCoord identifies a chunk on the horizontal X/Z grid.
type ChunkCoord struct {
	X int32
	Z int32
}

// Dimensions defines the size of a chunk in voxels.
type Dimensions struct {
	Width  int
	Depth  int
	Height int
}

// Bounds is an axis-aligned box with inclusive min/max corners.
type Bounds struct {
	Min Pos
	Max Pos
}

func (b Bounds) Contains(p Pos) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Region delineates the grid of chunks backing a Store. Columns span the
// full chunk height starting at y=0.
type Region struct {
	Origin         ChunkCoord
	ChunksPerAxis  int
	ChunkDimension Dimensions
}

func NewRegion(cfg config.StorageConfig) Region {
	return Region{
		Origin: ChunkCoord{
			X: int32(cfg.Origin.X),
			Z: int32(cfg.Origin.Z),
		},
		ChunksPerAxis: cfg.ChunksPerAxis,
		ChunkDimension: Dimensions{
			Width:  cfg.ChunkWidth,
			Depth:  cfg.ChunkDepth,
			Height: cfg.ChunkHeight,
		},
	}
}

func (r Region) ContainsChunk(coord ChunkCoord) bool {
	n := int32(r.ChunksPerAxis)
	return coord.X >= r.Origin.X &&
		coord.Z >= r.Origin.Z &&
		coord.X < r.Origin.X+n &&
		coord.Z < r.Origin.Z+n
}

func (r Region) ChunkBounds(coord ChunkCoord) (Bounds, error) {
	if !r.ContainsChunk(coord) {
		return Bounds{}, fmt.Errorf("chunk %v outside region", coord)
	}
	min := Pos{
		X: coord.X * int32(r.ChunkDimension.Width),
		Y: 0,
		Z: coord.Z * int32(r.ChunkDimension.Depth),
	}
	max := Pos{
		X: min.X + int32(r.ChunkDimension.Width) - 1,
		Y: int32(r.ChunkDimension.Height) - 1,
		Z: min.Z + int32(r.ChunkDimension.Depth) - 1,
	}
	return Bounds{Min: min, Max: max}, nil
}

// Bounds covers every voxel the region can hold.
func (r Region) Bounds() Bounds {
	n := int32(r.ChunksPerAxis)
	return Bounds{
		Min: Pos{
			X: r.Origin.X * int32(r.ChunkDimension.Width),
			Y: 0,
			Z: r.Origin.Z * int32(r.ChunkDimension.Depth),
		},
		Max: Pos{
			X: (r.Origin.X+n)*int32(r.ChunkDimension.Width) - 1,
			Y: int32(r.ChunkDimension.Height) - 1,
			Z: (r.Origin.Z+n)*int32(r.ChunkDimension.Depth) - 1,
		},
	}
}

// Locate returns the chunk owning p and whether it lies inside the region.
func (r Region) Locate(p Pos) (ChunkCoord, bool) {
	if p.Y < 0 || int(p.Y) >= r.ChunkDimension.Height {
		return ChunkCoord{}, false
	}
	chunk := ChunkCoord{
		X: floorDiv(p.X, int32(r.ChunkDimension.Width)),
		Z: floorDiv(p.Z, int32(r.ChunkDimension.Depth)),
	}
	return chunk, r.ContainsChunk(chunk)
}

func floorDiv(value, size int32) int32 {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}
