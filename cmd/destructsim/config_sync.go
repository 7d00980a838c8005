package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voxeldestruct/internal/config"
)

const (
	envConfigJSON    = "DESTRUCT_CONFIG_JSON"
	envConfigYAMLB64 = "DESTRUCT_CONFIG_YAML_B64"
)

// writeConfigFromEnv materialises a configuration handed over through the
// environment at cfgPath. It reports whether a file was written.
func writeConfigFromEnv(cfgPath string) (bool, error) {
	jsonPayload := os.Getenv(envConfigJSON)
	yamlPayload := os.Getenv(envConfigYAMLB64)

	if jsonPayload == "" && yamlPayload == "" {
		return false, nil
	}
	if cfgPath == "" {
		return false, errors.New("configuration provided through the environment but no -config path supplied")
	}

	raw := []byte(jsonPayload)
	if jsonPayload == "" {
		data, err := base64.StdEncoding.DecodeString(yamlPayload)
		if err != nil {
			return false, fmt.Errorf("decode config yaml: %w", err)
		}
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return false, fmt.Errorf("parse config yaml: %w", err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return false, fmt.Errorf("convert config yaml: %w", err)
		}
	}

	cfg := config.Default()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return false, fmt.Errorf("decode config json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("validate config: %w", err)
	}

	dir := filepath.Dir(cfgPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal config json: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return false, fmt.Errorf("write config file: %w", err)
	}
	return true, nil
}
