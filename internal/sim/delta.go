package sim

import (
	"sort"

	"voxeldestruct/internal/destruction"
	"voxeldestruct/internal/voxel"
)

// ChunkDelta is one tick's voxel changes inside a single chunk.
type ChunkDelta struct {
	Chunk   voxel.ChunkCoord
	Seq     uint64
	Tick    uint64
	Changes []destruction.VoxelChange
}

type deltaAccumulator struct {
	data map[voxel.ChunkCoord]*destruction.ChangeSummary
}

func newDeltaAccumulator() *deltaAccumulator {
	return &deltaAccumulator{
		data: make(map[voxel.ChunkCoord]*destruction.ChangeSummary),
	}
}

func (d *deltaAccumulator) add(chunk voxel.ChunkCoord, change destruction.VoxelChange) {
	if d.data == nil {
		d.data = make(map[voxel.ChunkCoord]*destruction.ChangeSummary)
	}
	summary := d.data[chunk]
	if summary == nil {
		summary = destruction.NewChangeSummary()
		d.data[chunk] = summary
	}
	summary.Add(change)
}

// flush drains the accumulator into deltas ordered by chunk, numbering them
// from *seq.
func (d *deltaAccumulator) flush(tick uint64, seq *uint64) []ChunkDelta {
	if len(d.data) == 0 {
		return nil
	}

	chunks := make([]voxel.ChunkCoord, 0, len(d.data))
	for chunk, summary := range d.data {
		if summary.Len() > 0 {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].X != chunks[j].X {
			return chunks[i].X < chunks[j].X
		}
		return chunks[i].Z < chunks[j].Z
	})

	deltas := make([]ChunkDelta, 0, len(chunks))
	for _, chunk := range chunks {
		deltas = append(deltas, ChunkDelta{
			Chunk:   chunk,
			Seq:     *seq,
			Tick:    tick,
			Changes: d.data[chunk].Changes(),
		})
		*seq++
	}

	d.data = make(map[voxel.ChunkCoord]*destruction.ChangeSummary)
	return deltas
}
