package destruction

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/voxel"
)

// DebrisParticle is a free-flying fragment of a destroyed voxel.
type DebrisParticle struct {
	Position        mgl32.Vec3
	Velocity        mgl32.Vec3
	AngularVelocity mgl32.Vec3
	Material        voxel.Material
	Lifetime        float32
}

type PhaseTransition struct {
	Phase Phase     `json:"phase"`
	At    time.Time `json:"at"`
}

// Event is an active destruction. Affected only grows.
type Event struct {
	ID           string
	WorldID      string
	Position     mgl32.Vec3
	Type         DestructionType
	Force        float32
	Radius       float32
	StartTime    time.Time
	Affected     map[voxel.Pos]struct{}
	Phase        Phase
	Debris       []DebrisParticle
	PhaseHistory []PhaseTransition

	settleAccumulator float32
	collapse          *collapseState
}

func (e *Event) markAffected(pos voxel.Pos) bool {
	if _, ok := e.Affected[pos]; ok {
		return false
	}
	e.Affected[pos] = struct{}{}
	return true
}

func (e *Event) affectedSorted() []voxel.Pos {
	out := make([]voxel.Pos, 0, len(e.Affected))
	for pos := range e.Affected {
		out = append(out, pos)
	}
	sortPositions(out)
	return out
}

// Snapshot is a read-only copy of an event's state.
type Snapshot struct {
	ID           string
	WorldID      string
	Position     mgl32.Vec3
	Type         DestructionType
	Force        float32
	Radius       float32
	StartTime    time.Time
	Phase        Phase
	Affected     []voxel.Pos
	Debris       []DebrisParticle
	PhaseHistory []PhaseTransition
}

func (e *Event) snapshot() Snapshot {
	return Snapshot{
		ID:           e.ID,
		WorldID:      e.WorldID,
		Position:     e.Position,
		Type:         e.Type,
		Force:        e.Force,
		Radius:       e.Radius,
		StartTime:    e.StartTime,
		Phase:        e.Phase,
		Affected:     e.affectedSorted(),
		Debris:       append([]DebrisParticle(nil), e.Debris...),
		PhaseHistory: append([]PhaseTransition(nil), e.PhaseHistory...),
	}
}

// EventRecord is the archived summary of a completed event.
type EventRecord struct {
	ID          string            `json:"id"`
	WorldID     string            `json:"worldId"`
	Type        DestructionType   `json:"type"`
	Force       float32           `json:"force"`
	Radius      float32           `json:"radius"`
	Epicenter   [3]float32        `json:"epicenter"`
	Affected    int               `json:"affected"`
	Debris      int               `json:"debris"`
	Phases      []PhaseTransition `json:"phases"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt time.Time         `json:"completedAt"`
}

// EventSink receives a record for every event that completes.
type EventSink interface {
	EventCompleted(rec EventRecord) error
}

func (e *Event) record(completedAt time.Time) EventRecord {
	return EventRecord{
		ID:          e.ID,
		WorldID:     e.WorldID,
		Type:        e.Type,
		Force:       e.Force,
		Radius:      e.Radius,
		Epicenter:   [3]float32{e.Position.X(), e.Position.Y(), e.Position.Z()},
		Affected:    len(e.Affected),
		Debris:      len(e.Debris),
		Phases:      append([]PhaseTransition(nil), e.PhaseHistory...),
		StartedAt:   e.StartTime,
		CompletedAt: completedAt,
	}
}
