package destruction

import (
	"fmt"
	"strings"
)

// DestructionType selects how force is applied to a structure.
type DestructionType int

const (
	Explosion DestructionType = iota
	Impact
	Erosion
	Cutting
	Melting
	Freezing
)

var destructionTypeNames = [...]string{
	Explosion: "explosion",
	Impact:    "impact",
	Erosion:   "erosion",
	Cutting:   "cutting",
	Melting:   "melting",
	Freezing:  "freezing",
}

func (t DestructionType) String() string {
	if t >= 0 && int(t) < len(destructionTypeNames) {
		return destructionTypeNames[t]
	}
	return fmt.Sprintf("destruction(%d)", int(t))
}

func ParseDestructionType(s string) (DestructionType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range destructionTypeNames {
		if n == name {
			return DestructionType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown destruction type %q", s)
}

func (t DestructionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DestructionType) UnmarshalText(b []byte) error {
	parsed, err := ParseDestructionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// StructureType selects the layout generator.
type StructureType int

const (
	Building StructureType = iota
	Bridge
	Tower
	Wall
	Terrain
	CustomStructure
)

var structureTypeNames = [...]string{
	Building:        "building",
	Bridge:          "bridge",
	Tower:           "tower",
	Wall:            "wall",
	Terrain:         "terrain",
	CustomStructure: "custom",
}

func (t StructureType) String() string {
	if t >= 0 && int(t) < len(structureTypeNames) {
		return structureTypeNames[t]
	}
	return fmt.Sprintf("structure(%d)", int(t))
}

func ParseStructureType(s string) (StructureType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range structureTypeNames {
		if n == name {
			return StructureType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStructure, s)
}

// SupportType is the structural role a voxel plays.
type SupportType int

const (
	Column SupportType = iota
	Beam
	Pillar
	Cable
	Ring
	Foundation
)

func (t SupportType) String() string {
	switch t {
	case Column:
		return "column"
	case Beam:
		return "beam"
	case Pillar:
		return "pillar"
	case Cable:
		return "cable"
	case Ring:
		return "ring"
	case Foundation:
		return "foundation"
	}
	return fmt.Sprintf("support(%d)", int(t))
}

// Phase is the stage of a destruction event. Phases only move forward.
type Phase int

const (
	PhaseInitial Phase = iota
	PhasePropagating
	PhaseCollapsing
	PhaseSettling
	PhaseComplete
)

var phaseNames = [...]string{
	PhaseInitial:     "initial",
	PhasePropagating: "propagating",
	PhaseCollapsing:  "collapsing",
	PhaseSettling:    "settling",
	PhaseComplete:    "complete",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range phaseNames {
		if n == name {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(b))
}

// Phase boundaries in seconds since the event started.
const (
	initialEnd     = 0.1
	propagatingEnd = 0.5
	collapsingEnd  = 2.0
	settlingEnd    = 5.0
)

// phaseAt maps elapsed seconds to the phase an event is in.
func phaseAt(elapsed float64) Phase {
	switch {
	case elapsed < initialEnd:
		return PhaseInitial
	case elapsed < propagatingEnd:
		return PhasePropagating
	case elapsed < collapsingEnd:
		return PhaseCollapsing
	case elapsed < settlingEnd:
		return PhaseSettling
	default:
		return PhaseComplete
	}
}

// ResultStatus reports what a ProcessDestruction call left behind.
type ResultStatus int

const (
	Continuing ResultStatus = iota
	Complete
	Failed
)

func (s ResultStatus) String() string {
	switch s {
	case Continuing:
		return "continuing"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}
