package sim

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/destruction"
	"voxeldestruct/internal/environment"
	"voxeldestruct/internal/voxel"
)

// Structure is a generated scenario structure.
type Structure struct {
	Spec config.StructureSpec
	Env  *destruction.DestructibleEnvironment
}

type blast struct {
	tick      int
	structure string
	position  mgl32.Vec3
	kind      destruction.DestructionType
	force     float32
}

func originOf(spec config.StructureSpec) voxel.Pos {
	return voxel.Pos{X: int32(spec.Origin[0]), Y: int32(spec.Origin[1]), Z: int32(spec.Origin[2])}
}

func offset(origin voxel.Pos, off [3]float32) mgl32.Vec3 {
	return origin.Vec3().Add(mgl32.Vec3{off[0], off[1], off[2]})
}

// structureParams turns a scenario entry into generation parameters. Trigger
// and effect offsets are relative to the structure origin.
func structureParams(spec config.StructureSpec) (destruction.Params, error) {
	kind, err := destruction.ParseStructureType(spec.Type)
	if err != nil {
		return destruction.Params{}, fmt.Errorf("structure %s: %w", spec.ID, err)
	}
	origin := originOf(spec)
	params := destruction.Params{
		EnvironmentID: spec.ID,
		Origin:        origin,
		Dimensions:    mgl32.Vec3{float32(spec.Dimensions[0]), float32(spec.Dimensions[1]), float32(spec.Dimensions[2])},
		StructureType: kind,
	}
	if spec.Materials != nil {
		if params.Distribution, err = parseDistribution(*spec.Materials); err != nil {
			return destruction.Params{}, fmt.Errorf("structure %s: %w", spec.ID, err)
		}
	} else if kind == destruction.CustomStructure {
		params.Distribution = destruction.MaterialDistribution{Primary: voxel.Stone}
	}
	for i, ts := range spec.Triggers {
		trigger, err := parseTrigger(origin, ts)
		if err != nil {
			return destruction.Params{}, fmt.Errorf("structure %s trigger %d: %w", spec.ID, i, err)
		}
		params.Triggers = append(params.Triggers, trigger)
	}
	for i, es := range spec.Effects {
		effect, err := parseEffect(origin, es)
		if err != nil {
			return destruction.Params{}, fmt.Errorf("structure %s effect %d: %w", spec.ID, i, err)
		}
		params.Effects = append(params.Effects, effect)
	}
	return params, nil
}

func parseDistribution(spec config.MaterialSpec) (destruction.MaterialDistribution, error) {
	var dist destruction.MaterialDistribution
	var err error
	dist.Primary = voxel.Stone
	if spec.Primary != "" {
		if dist.Primary, err = voxel.ParseMaterial(spec.Primary); err != nil {
			return dist, err
		}
	}
	for _, ws := range spec.Secondary {
		m, err := voxel.ParseMaterial(ws.Material)
		if err != nil {
			return dist, err
		}
		dist.Secondary = append(dist.Secondary, destruction.WeightedMaterial{Material: m, Probability: ws.Probability})
	}
	for _, name := range spec.Structural {
		m, err := voxel.ParseMaterial(name)
		if err != nil {
			return dist, err
		}
		dist.Structural = append(dist.Structural, m)
	}
	return dist, nil
}

// defaultConditions pairs each trigger type with the condition it uses when
// none is configured.
var defaultConditions = map[destruction.TriggerType]destruction.ConditionKind{
	destruction.TriggerProximity: destruction.PlayerNearby,
	destruction.TriggerImpact:    destruction.HealthBelow,
	destruction.TriggerTimer:     destruction.TimeElapsed,
	destruction.TriggerExternal:  destruction.ExternalSignal,
}

func parseTrigger(origin voxel.Pos, spec config.TriggerSpec) (destruction.Trigger, error) {
	kind, err := destruction.ParseTriggerType(spec.Trigger)
	if err != nil {
		return destruction.Trigger{}, err
	}
	cond := defaultConditions[kind]
	if spec.Condition != "" {
		if cond, err = destruction.ParseConditionKind(spec.Condition); err != nil {
			return destruction.Trigger{}, err
		}
	}
	dtype := destruction.Explosion
	if spec.DestructionType != "" {
		if dtype, err = destruction.ParseDestructionType(spec.DestructionType); err != nil {
			return destruction.Trigger{}, err
		}
	}
	if spec.Force <= 0 {
		return destruction.Trigger{}, fmt.Errorf("force must be positive, got %v", spec.Force)
	}
	return destruction.Trigger{
		Type:            kind,
		Position:        offset(origin, spec.Offset),
		Radius:          spec.Radius,
		Force:           spec.Force,
		DestructionType: dtype,
		Condition: destruction.Condition{
			Kind:   cond,
			Value:  spec.Threshold,
			Signal: spec.Signal,
		},
	}, nil
}

func parseEffect(origin voxel.Pos, spec config.EffectSpec) (environment.Effect, error) {
	kind, err := environment.ParseEffectType(spec.Effect)
	if err != nil {
		return environment.Effect{}, err
	}
	shape, err := environment.ParseShape(spec.Shape)
	if err != nil {
		return environment.Effect{}, err
	}
	return environment.Effect{
		Type:      kind,
		Intensity: spec.Intensity,
		Area: environment.Area{
			Center: offset(origin, spec.Offset),
			Radius: spec.Radius,
			Shape:  shape,
		},
		Duration: spec.Duration,
	}, nil
}

// scheduleBlasts resolves blast positions and orders them by tick, keeping
// configuration order within a tick.
func scheduleBlasts(specs []config.BlastSpec, structures map[string]*Structure) ([]blast, error) {
	out := make([]blast, 0, len(specs))
	for i, bs := range specs {
		st, ok := structures[bs.Structure]
		if !ok {
			return nil, fmt.Errorf("blast %d: unknown structure %q", i, bs.Structure)
		}
		kind, err := destruction.ParseDestructionType(bs.Type)
		if err != nil {
			return nil, fmt.Errorf("blast %d: %w", i, err)
		}
		out = append(out, blast{
			tick:      bs.Tick,
			structure: bs.Structure,
			position:  offset(originOf(st.Spec), bs.Offset),
			kind:      kind,
			force:     bs.Force,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].tick < out[j].tick })
	return out, nil
}
