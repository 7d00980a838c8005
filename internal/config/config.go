package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Duration is a JSON-friendly wrapper around time.Duration that accepts human
// readable strings such as "16ms" in configuration files while still
// allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		if s == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("duration: parse %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// Config captures everything needed to run a destruction simulation.
type Config struct {
	Simulation  SimulationConfig  `json:"simulation"`
	Destruction DestructionConfig `json:"destruction"`
	Storage     StorageConfig     `json:"storage"`
	Archive     ArchiveConfig     `json:"archive"`
	Network     NetworkConfig     `json:"network"`
	Logging     LoggingConfig     `json:"logging"`
	Scenario    ScenarioConfig    `json:"scenario"`
}

type SimulationConfig struct {
	WorldID  string   `json:"worldId"`
	TickRate Duration `json:"tickRate"` // e.g. "16ms"
	Realtime bool     `json:"realtime"` // pace ticks on a wall clock ticker
	MaxTicks int      `json:"maxTicks"` // 0 runs until the scenario settles
}

// PerformanceMode selects the default collapse budget.
type PerformanceMode string

const (
	PerformanceHigh        PerformanceMode = "high"
	PerformanceBalanced    PerformanceMode = "balanced"
	PerformancePerformance PerformanceMode = "performance"
)

type DestructionConfig struct {
	Integrity           IntegrityConfig `json:"integrity"`
	Physics             PhysicsConfig   `json:"physics"`
	Particles           ParticleConfig  `json:"particles"`
	MaxConcurrentEvents int             `json:"maxConcurrentEvents"` // reported, never enforced
	DebrisLifetime      float32         `json:"debrisLifetime"`      // seconds, caps handed-off debris
	EnableSoundEffects  bool            `json:"enableSoundEffects"`
	PerformanceMode     PerformanceMode `json:"performanceMode"`
	CollapseBudget      int             `json:"collapseBudget"`    // evaluations per collapse call, 0 derives from mode
	CollapseMinRegion   int             `json:"collapseMinRegion"` // regions must be strictly larger
	FixedStep           float32         `json:"fixedStep"`         // seconds per settling step
	MaxSettleSteps      int             `json:"maxSettleSteps"`
	// Jitters wind and earthquake intensity, as a fraction in [0,1].
	EnvironmentVariance float32         `json:"environmentVariance"`
	Seed                int64           `json:"seed"`
}

type IntegrityConfig struct {
	EnableStructuralAnalysis bool    `json:"enableStructuralAnalysis"`
	SupportCalculationDepth  uint32  `json:"supportCalculationDepth"`
	IntegrityUpdateFrequency float32 `json:"integrityUpdateFrequency"`
}

type PhysicsConfig struct {
	Gravity            float32 `json:"gravity"`
	AirResistance      float32 `json:"airResistance"`
	AngularDamping     float32 `json:"angularDamping"`
	MaxDebrisParticles int     `json:"maxDebrisParticles"`
	CollisionDetection bool    `json:"collisionDetection"`
}

type ParticleConfig struct {
	MaxParticleEffects      int     `json:"maxParticleEffects"`
	DefaultParticleLifetime float32 `json:"defaultParticleLifetime"`
	EnableParticlePhysics   bool    `json:"enableParticlePhysics"`
}

type StorageConfig struct {
	Backend       string     `json:"backend"` // "memory" or "disk"
	Path          string     `json:"path"`
	ChunkWidth    int        `json:"chunkWidth"`
	ChunkDepth    int        `json:"chunkDepth"`
	ChunkHeight   int        `json:"chunkHeight"`
	ChunksPerAxis int        `json:"chunksPerAxis"`
	Origin        ChunkIndex `json:"origin"`
}

type ChunkIndex struct {
	X int `json:"x"`
	Z int `json:"z"`
}

type ArchiveConfig struct {
	Enabled     bool   `json:"enabled"`
	Dir         string `json:"dir"`
	IndexPath   string `json:"indexPath"`
	PreviewPath string `json:"previewPath"`
}

// NetworkConfig enables the UDP feed. An empty Listen disables it.
type NetworkConfig struct {
	Listen      string   `json:"listen"`
	Subscribers []string `json:"subscribers"`
	MaxDatagram int      `json:"maxDatagram"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "text" or "json"
}

type ScenarioConfig struct {
	Structures []StructureSpec `json:"structures"`
	Blasts     []BlastSpec     `json:"blasts"`
}

type StructureSpec struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Origin     [3]int        `json:"origin"`
	Dimensions [3]int        `json:"dimensions"`
	Triggers   []TriggerSpec `json:"triggers"`
	Effects    []EffectSpec  `json:"effects"`
	Materials  *MaterialSpec `json:"materials,omitempty"` // custom structures only
}

// MaterialSpec names materials by their lowercase name or "custom(<id>)".
type MaterialSpec struct {
	Primary    string                 `json:"primary"`
	Secondary  []WeightedMaterialSpec `json:"secondary"`
	Structural []string               `json:"structural"`
}

type WeightedMaterialSpec struct {
	Material    string  `json:"material"`
	Probability float32 `json:"probability"`
}

type TriggerSpec struct {
	Trigger         string     `json:"trigger"` // proximity, impact, timer, external
	Offset          [3]float32 `json:"offset"`
	Radius          float32    `json:"radius"`
	Force           float32    `json:"force"`
	DestructionType string     `json:"destructionType"`
	Condition       string     `json:"condition"` // player_nearby, health_below, time_elapsed, external_signal
	Threshold       float32    `json:"threshold"`
	Signal          string     `json:"signal"`
}

type EffectSpec struct {
	Effect    string     `json:"effect"`
	Intensity float32    `json:"intensity"`
	Offset    [3]float32 `json:"offset"`
	Radius    float32    `json:"radius"`
	Shape     string     `json:"shape"`
	Duration  float32    `json:"duration"`
}

type BlastSpec struct {
	Tick      int        `json:"tick"`
	Structure string     `json:"structure"`
	Offset    [3]float32 `json:"offset"`
	Type      string     `json:"type"`
	Force     float32    `json:"force"`
}

// Load reads configuration from a JSON or YAML file if provided. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("schema config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			WorldID:  "world-0",
			TickRate: Duration(16 * time.Millisecond),
			Realtime: false,
			MaxTicks: 0,
		},
		Destruction: DefaultDestruction(),
		Storage: StorageConfig{
			Backend:       "memory",
			Path:          "",
			ChunkWidth:    32,
			ChunkDepth:    32,
			ChunkHeight:   128,
			ChunksPerAxis: 4,
			Origin:        ChunkIndex{X: 0, Z: 0},
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Dir:     "archive",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Scenario: ScenarioConfig{
			Structures: []StructureSpec{},
			Blasts:     []BlastSpec{},
		},
	}
}

// DefaultDestruction mirrors the engine defaults for the destruction core.
func DefaultDestruction() DestructionConfig {
	return DestructionConfig{
		Integrity: IntegrityConfig{
			EnableStructuralAnalysis: true,
			SupportCalculationDepth:  5,
			IntegrityUpdateFrequency: 1.0,
		},
		Physics: PhysicsConfig{
			Gravity:            9.81,
			AirResistance:      0.02,
			AngularDamping:     0.05,
			MaxDebrisParticles: 1000,
			CollisionDetection: true,
		},
		Particles: ParticleConfig{
			MaxParticleEffects:      500,
			DefaultParticleLifetime: 5.0,
			EnableParticlePhysics:   true,
		},
		MaxConcurrentEvents: 10,
		DebrisLifetime:      30.0,
		EnableSoundEffects:  true,
		PerformanceMode:     PerformanceBalanced,
		CollapseBudget:      0,
		CollapseMinRegion:   5,
		FixedStep:           1.0 / 60.0,
		MaxSettleSteps:      8,
		EnvironmentVariance: 0,
		Seed:                1337,
	}
}

// EffectiveCollapseBudget resolves the per-call collapse evaluation budget.
func (c DestructionConfig) EffectiveCollapseBudget() int {
	if c.CollapseBudget > 0 {
		return c.CollapseBudget
	}
	switch c.PerformanceMode {
	case PerformanceHigh:
		return 16384
	case PerformancePerformance:
		return 1024
	default:
		return 4096
	}
}

func (c *Config) Validate() error {
	if c.Simulation.WorldID == "" {
		return errors.New("simulation.worldId must be set")
	}
	if c.Simulation.TickRate <= 0 {
		return errors.New("simulation.tickRate must be positive")
	}
	if c.Simulation.MaxTicks < 0 {
		return errors.New("simulation.maxTicks cannot be negative")
	}
	if err := c.Destruction.Validate(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "memory":
	case "disk":
		if c.Storage.Path == "" {
			return errors.New("storage.path must be set for disk backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if c.Storage.ChunkWidth <= 0 || c.Storage.ChunkDepth <= 0 || c.Storage.ChunkHeight <= 0 {
		return errors.New("storage chunk dimensions must be positive")
	}
	if c.Storage.ChunksPerAxis <= 0 {
		return errors.New("storage.chunksPerAxis must be positive")
	}
	if c.Archive.Enabled && c.Archive.Dir == "" {
		return errors.New("archive.dir must be set when archive is enabled")
	}
	if c.Network.MaxDatagram < 0 {
		return errors.New("network.maxDatagram cannot be negative")
	}
	if c.Network.Listen == "" && len(c.Network.Subscribers) > 0 {
		return errors.New("network.listen must be set when subscribers are configured")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported", c.Logging.Format)
	}
	ids := make(map[string]struct{}, len(c.Scenario.Structures))
	for i, s := range c.Scenario.Structures {
		if s.ID == "" {
			return fmt.Errorf("scenario.structures[%d].id must be set", i)
		}
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("scenario.structures[%d].id %q is duplicated", i, s.ID)
		}
		ids[s.ID] = struct{}{}
		if s.Dimensions[0] <= 0 || s.Dimensions[1] <= 0 || s.Dimensions[2] <= 0 {
			return fmt.Errorf("scenario.structures[%d].dimensions must be positive", i)
		}
	}
	for i, b := range c.Scenario.Blasts {
		if b.Tick < 0 {
			return fmt.Errorf("scenario.blasts[%d].tick cannot be negative", i)
		}
		if _, ok := ids[b.Structure]; !ok {
			return fmt.Errorf("scenario.blasts[%d].structure %q is unknown", i, b.Structure)
		}
		if b.Force <= 0 {
			return fmt.Errorf("scenario.blasts[%d].force must be positive", i)
		}
	}
	return nil
}

func (c DestructionConfig) Validate() error {
	if c.Physics.MaxDebrisParticles < 0 {
		return errors.New("destruction.physics.maxDebrisParticles cannot be negative")
	}
	if c.Physics.AirResistance < 0 || c.Physics.AngularDamping < 0 {
		return errors.New("destruction.physics damping cannot be negative")
	}
	if c.Particles.MaxParticleEffects < 0 {
		return errors.New("destruction.particles.maxParticleEffects cannot be negative")
	}
	if c.MaxConcurrentEvents < 0 {
		return errors.New("destruction.maxConcurrentEvents cannot be negative")
	}
	switch c.PerformanceMode {
	case PerformanceHigh, PerformanceBalanced, PerformancePerformance:
	default:
		return fmt.Errorf("destruction.performanceMode %q is not supported", c.PerformanceMode)
	}
	if c.CollapseBudget < 0 {
		return errors.New("destruction.collapseBudget cannot be negative")
	}
	if c.CollapseMinRegion < 0 {
		return errors.New("destruction.collapseMinRegion cannot be negative")
	}
	if c.FixedStep <= 0 {
		return errors.New("destruction.fixedStep must be positive")
	}
	if c.MaxSettleSteps <= 0 {
		return errors.New("destruction.maxSettleSteps must be positive")
	}
	if c.EnvironmentVariance < 0 || c.EnvironmentVariance > 1 {
		return errors.New("destruction.environmentVariance must be within [0,1]")
	}
	return nil
}
