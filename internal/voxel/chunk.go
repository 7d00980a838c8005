package voxel

import (
	"fmt"
	"sync"
)

// Chunk owns the vertical columns of one X/Z cell of the region.
type Chunk struct {
	Key       ChunkCoord
	Bounds    Bounds
	mu        sync.Mutex
	store     ColumnStorage
	dimension Dimensions
}

func newChunk(key ChunkCoord, bounds Bounds, dim Dimensions, store ColumnStorage) *Chunk {
	return &Chunk{
		Key:       key,
		Bounds:    bounds,
		store:     store,
		dimension: dim,
	}
}

func (c *Chunk) columnIndex(localX, localZ int) int {
	return localZ*c.dimension.Width + localX
}

func trimColumn(column []Material) []Material {
	end := len(column)
	for end > 0 && column[end-1] == Air {
		end--
	}
	return column[:end]
}

func (c *Chunk) globalToLocal(p Pos) (int, int, int, bool) {
	if !c.Bounds.Contains(p) {
		return 0, 0, 0, false
	}
	return int(p.X - c.Bounds.Min.X),
		int(p.Y - c.Bounds.Min.Y),
		int(p.Z - c.Bounds.Min.Z), true
}

// Voxel returns the material at p. Positions outside the chunk and
// stored Air both report false.
func (c *Chunk) Voxel(p Pos) (Material, bool, error) {
	localX, localY, localZ, ok := c.globalToLocal(p)
	if !ok {
		return Air, false, nil
	}
	column, ok, err := c.store.LoadColumn(c.columnIndex(localX, localZ))
	if err != nil {
		return Air, false, fmt.Errorf("chunk %v load column: %w", c.Key, err)
	}
	if !ok || localY >= len(column) || column[localY] == Air {
		return Air, false, nil
	}
	return column[localY], true, nil
}

// SetVoxel writes m at p and reports the previous material.
func (c *Chunk) SetVoxel(p Pos, m Material) (Material, error) {
	localX, localY, localZ, ok := c.globalToLocal(p)
	if !ok {
		return Air, fmt.Errorf("%v outside chunk %v: %w", p, c.Key, ErrOutOfBounds)
	}
	idx := c.columnIndex(localX, localZ)

	c.mu.Lock()
	defer c.mu.Unlock()

	column, ok, err := c.store.LoadColumn(idx)
	if err != nil {
		return Air, fmt.Errorf("chunk %v load column %d: %w", c.Key, idx, err)
	}
	if !ok {
		if m == Air {
			return Air, nil
		}
		column = make([]Material, localY+1)
	} else if localY >= len(column) {
		if m == Air {
			return Air, nil
		}
		expanded := make([]Material, localY+1)
		copy(expanded, column)
		column = expanded
	}
	before := column[localY]
	if before == m {
		return before, nil
	}
	column[localY] = m
	column = trimColumn(column)
	if len(column) == 0 {
		err = c.store.Delete(idx)
	} else {
		err = c.store.SaveColumn(idx, column)
	}
	if err != nil {
		return before, fmt.Errorf("chunk %v persist column %d: %w", c.Key, idx, err)
	}
	return before, nil
}

// ForEach visits every non-Air voxel with global coordinates. It reports
// false when fn stopped the iteration early.
func (c *Chunk) ForEach(fn func(p Pos, m Material) bool) (bool, error) {
	bounds := c.Bounds
	dim := c.dimension
	completed := true
	err := c.store.ForEach(func(idx int, column []Material) bool {
		localX := idx % dim.Width
		localZ := idx / dim.Width
		for localY, m := range column {
			if m == Air {
				continue
			}
			p := Pos{
				X: bounds.Min.X + int32(localX),
				Y: bounds.Min.Y + int32(localY),
				Z: bounds.Min.Z + int32(localZ),
			}
			if !fn(p, m) {
				completed = false
				return false
			}
		}
		return true
	})
	if err != nil {
		return false, fmt.Errorf("chunk %v iterate voxels: %w", c.Key, err)
	}
	return completed, nil
}

func (c *Chunk) Dimensions() Dimensions {
	return c.dimension
}

// Close releases the chunk's underlying storage.
func (c *Chunk) Close() error {
	return c.store.Close()
}
