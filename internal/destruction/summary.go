package destruction

import (
	"sort"

	"voxeldestruct/internal/voxel"
)

type ChangeReason string

const (
	ReasonDestroy   ChangeReason = "destroy"
	ReasonPropagate ChangeReason = "propagate"
	ReasonCollapse  ChangeReason = "collapse"
)

var reasonPriority = map[ChangeReason]int{
	ReasonDestroy:   1,
	ReasonPropagate: 2,
	ReasonCollapse:  3,
}

// VoxelChange captures the before/after state of one world mutation.
type VoxelChange struct {
	Pos    voxel.Pos
	Before voxel.Material
	After  voxel.Material
	Reason ChangeReason
}

// ChangeSummary accumulates voxel mutations. A position keeps the earliest
// Before and the highest-priority reason seen for it.
type ChangeSummary struct {
	changes map[voxel.Pos]VoxelChange
}

func NewChangeSummary() *ChangeSummary {
	return &ChangeSummary{changes: make(map[voxel.Pos]VoxelChange)}
}

func (s *ChangeSummary) Add(change VoxelChange) {
	if s.changes == nil {
		s.changes = make(map[voxel.Pos]VoxelChange)
	}
	if existing, ok := s.changes[change.Pos]; ok {
		if reasonPriority[existing.Reason] > reasonPriority[change.Reason] {
			return
		}
		change.Before = existing.Before
	}
	s.changes[change.Pos] = change
}

func (s *ChangeSummary) Len() int {
	if s == nil {
		return 0
	}
	return len(s.changes)
}

// Changes returns every change ordered by position.
func (s *ChangeSummary) Changes() []VoxelChange {
	if s.Len() == 0 {
		return nil
	}
	out := make([]VoxelChange, 0, len(s.changes))
	for _, change := range s.changes {
		out = append(out, change)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return out
}

// ByReason returns the positions whose recorded reason matches.
func (s *ChangeSummary) ByReason(reason ChangeReason) []voxel.Pos {
	if s.Len() == 0 {
		return nil
	}
	var out []voxel.Pos
	for pos, change := range s.changes {
		if change.Reason == reason {
			out = append(out, pos)
		}
	}
	sortPositions(out)
	return out
}

func (s *ChangeSummary) Merge(other *ChangeSummary) {
	if other == nil {
		return
	}
	for _, change := range other.changes {
		s.Add(change)
	}
}

func sortPositions(ps []voxel.Pos) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Less(ps[j]) })
}
