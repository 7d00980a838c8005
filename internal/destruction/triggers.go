package destruction

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/voxel"
)

type TriggerType int

const (
	TriggerProximity TriggerType = iota
	TriggerImpact
	TriggerTimer
	TriggerExternal
)

func ParseTriggerType(s string) (TriggerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "proximity":
		return TriggerProximity, nil
	case "impact":
		return TriggerImpact, nil
	case "timer":
		return TriggerTimer, nil
	case "external":
		return TriggerExternal, nil
	}
	return 0, fmt.Errorf("unknown trigger type %q", s)
}

type ConditionKind int

const (
	PlayerNearby ConditionKind = iota
	HealthBelow
	TimeElapsed
	ExternalSignal
)

func ParseConditionKind(s string) (ConditionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "player_nearby":
		return PlayerNearby, nil
	case "health_below":
		return HealthBelow, nil
	case "time_elapsed":
		return TimeElapsed, nil
	case "external_signal":
		return ExternalSignal, nil
	}
	return 0, fmt.Errorf("unknown activation condition %q", s)
}

// Condition gates a trigger. Value is a distance for PlayerNearby, a
// percentage for HealthBelow and seconds for TimeElapsed.
type Condition struct {
	Kind   ConditionKind
	Value  float32
	Signal string
}

// Trigger fires a destruction event at Position once its condition holds.
type Trigger struct {
	Type            TriggerType
	Position        mgl32.Vec3
	Radius          float32
	Force           float32
	DestructionType DestructionType
	Condition       Condition
}

// TriggerState is the outside world a trigger condition is judged against.
type TriggerState struct {
	Players []mgl32.Vec3
	Elapsed float32
	Signals map[string]bool
}

// EvaluateTriggers fires every trigger of env whose condition holds and that
// has not fired before, returning the new event ids in trigger order.
func (s *System) EvaluateTriggers(worldID string, world voxel.World, env *DestructibleEnvironment, state TriggerState) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if env.fired == nil {
		env.fired = make(map[int]bool)
	}
	var ids []string
	for i, trigger := range env.Triggers {
		if env.fired[i] || !conditionHolds(trigger, world, env, state) {
			continue
		}
		env.fired[i] = true
		id := s.triggerLocked(worldID, trigger.Position, trigger.DestructionType, trigger.Force)
		s.log.WithField("event_id", id).WithField("environment", env.ID).Debug("trigger fired")
		ids = append(ids, id)
	}
	return ids
}

func conditionHolds(trigger Trigger, world voxel.World, env *DestructibleEnvironment, state TriggerState) bool {
	cond := trigger.Condition
	switch cond.Kind {
	case PlayerNearby:
		for _, p := range state.Players {
			if p.Sub(trigger.Position).Len() <= cond.Value {
				return true
			}
		}
		return false
	case HealthBelow:
		return Health(world, env, trigger.Position, trigger.Radius) < cond.Value
	case TimeElapsed:
		return state.Elapsed >= cond.Value
	case ExternalSignal:
		return state.Signals[cond.Signal]
	}
	return false
}

// Health is the percentage of the structure's integrity within radius of
// center that is still standing in world. Areas with no structure report 100.
func Health(world voxel.World, env *DestructibleEnvironment, center mgl32.Vec3, radius float32) float32 {
	var total, standing float32
	for pos, score := range env.Integrity {
		if pos.Vec3().Sub(center).Len() > radius {
			continue
		}
		total += score
		if world == nil {
			standing += score
			continue
		}
		if _, live := isLive(world, pos); live {
			standing += score
		}
	}
	if total == 0 {
		return 100
	}
	return standing / total * 100
}

// PendingTriggers returns the triggers of env that have not fired yet.
func (e *DestructibleEnvironment) PendingTriggers() []Trigger {
	var out []Trigger
	for i, trigger := range e.Triggers {
		if !e.fired[i] {
			out = append(out, trigger)
		}
	}
	return out
}
