package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestValidateDetectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "missing world id",
			mutate: func(cfg *Config) {
				cfg.Simulation.WorldID = ""
			},
			wantErr: "simulation.worldId must be set",
		},
		{
			name: "non positive tick rate",
			mutate: func(cfg *Config) {
				cfg.Simulation.TickRate = 0
			},
			wantErr: "simulation.tickRate must be positive",
		},
		{
			name: "non positive chunk dimensions",
			mutate: func(cfg *Config) {
				cfg.Storage.ChunkWidth = 0
			},
			wantErr: "storage chunk dimensions must be positive",
		},
		{
			name: "environment variance above one",
			mutate: func(cfg *Config) {
				cfg.Destruction.EnvironmentVariance = 1.5
			},
			wantErr: "destruction.environmentVariance must be within [0,1]",
		},
		{
			name: "subscribers without listener",
			mutate: func(cfg *Config) {
				cfg.Network.Subscribers = []string{"127.0.0.1:9000"}
			},
			wantErr: "network.listen must be set when subscribers are configured",
		},
		{
			name: "missing chunks per axis",
			mutate: func(cfg *Config) {
				cfg.Storage.ChunksPerAxis = 0
			},
			wantErr: "storage.chunksPerAxis must be positive",
		},
		{
			name: "disk backend without path",
			mutate: func(cfg *Config) {
				cfg.Storage.Backend = "disk"
			},
			wantErr: "storage.path must be set for disk backend",
		},
		{
			name: "unknown performance mode",
			mutate: func(cfg *Config) {
				cfg.Destruction.PerformanceMode = "ludicrous"
			},
			wantErr: `destruction.performanceMode "ludicrous" is not supported`,
		},
		{
			name: "non positive fixed step",
			mutate: func(cfg *Config) {
				cfg.Destruction.FixedStep = 0
			},
			wantErr: "destruction.fixedStep must be positive",
		},
		{
			name: "negative debris capacity",
			mutate: func(cfg *Config) {
				cfg.Destruction.Physics.MaxDebrisParticles = -1
			},
			wantErr: "destruction.physics.maxDebrisParticles cannot be negative",
		},
		{
			name: "blast against unknown structure",
			mutate: func(cfg *Config) {
				cfg.Scenario.Blasts = []BlastSpec{{Structure: "missing", Type: "explosion", Force: 10}}
			},
			wantErr: `scenario.blasts[0].structure "missing" is unknown`,
		},
		{
			name: "duplicated structure id",
			mutate: func(cfg *Config) {
				cfg.Scenario.Structures = []StructureSpec{
					{ID: "a", Type: "wall", Dimensions: [3]int{1, 1, 1}},
					{ID: "a", Type: "wall", Dimensions: [3]int{1, 1, 1}},
				}
			},
			wantErr: `scenario.structures[1].id "a" is duplicated`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected an error, got nil")
			}
			if err.Error() != tt.wantErr {
				t.Fatalf("unexpected error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEffectiveCollapseBudget(t *testing.T) {
	cfg := DefaultDestruction()
	tests := []struct {
		mode   PerformanceMode
		budget int
		want   int
	}{
		{mode: PerformanceHigh, want: 16384},
		{mode: PerformanceBalanced, want: 4096},
		{mode: PerformancePerformance, want: 1024},
		{mode: PerformancePerformance, budget: 7, want: 7},
	}
	for _, tt := range tests {
		cfg.PerformanceMode = tt.mode
		cfg.CollapseBudget = tt.budget
		if got := cfg.EffectiveCollapseBudget(); got != tt.want {
			t.Fatalf("mode %s budget %d: got %d want %d", tt.mode, tt.budget, got, tt.want)
		}
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	if want := Default(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("default configuration mismatch:\nwant: %#v\n got: %#v", want, cfg)
	}
}

func TestLoadReadsFileAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Simulation.WorldID = "custom"
	cfg.Destruction.PerformanceMode = PerformanceHigh

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("loaded configuration mismatch:\nwant: %#v\n got: %#v", cfg, got)
	}
}

func TestLoadReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	doc := map[string]any{
		"simulation": map[string]any{
			"worldId":  "yaml-world",
			"tickRate": "20ms",
		},
		"scenario": map[string]any{
			"structures": []any{
				map[string]any{"id": "wall", "type": "wall", "dimensions": []int{10, 10, 10}},
			},
			"blasts": []any{
				map[string]any{"structure": "wall", "type": "explosion", "force": 100.0, "offset": []float64{5, 5, 1}},
			},
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.Simulation.WorldID != "yaml-world" {
		t.Fatalf("unexpected world id %q", got.Simulation.WorldID)
	}
	if got.Simulation.TickRate.Duration() != 20*time.Millisecond {
		t.Fatalf("unexpected tick rate %v", got.Simulation.TickRate.Duration())
	}
	if len(got.Scenario.Blasts) != 1 || got.Scenario.Blasts[0].Offset != [3]float32{5, 5, 1} {
		t.Fatalf("unexpected blasts %#v", got.Scenario.Blasts)
	}
	// Untouched sections keep their defaults.
	if got.Destruction.Physics.Gravity != 9.81 {
		t.Fatalf("expected default gravity, got %v", got.Destruction.Physics.Gravity)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"simulation":{"worldID":"typo"}}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "schema config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Storage.ChunkWidth = 0

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if err == nil {
		t.Fatalf("expected load to fail")
	}
	if !strings.Contains(err.Error(), "validate config: storage chunk dimensions must be positive") {
		t.Fatalf("unexpected error: %v", err)
	}
}
