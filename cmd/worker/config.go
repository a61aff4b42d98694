package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// driverConfigFile is the narrow shape a driver config file must satisfy:
// it must name a driverClass. Everything else in the file is opaque to
// the CLI and passed through to the driver factory as rawConfig.
type driverConfigFile struct {
	DriverClass string `yaml:"driverClass" json:"driverClass"`
}

// loadDriverConfig reads path and extracts driverClass, trying YAML first
// and falling back to JSON. The full file contents are returned unmodified
// as rawConfig so the driver factory sees every field the operator wrote,
// not just what's left after stripping driverClass.
func loadDriverConfig(path string) (driverClass string, rawConfig []byte, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read driver config %s: %w", path, err)
	}

	var cfg driverConfigFile
	yamlErr := yaml.Unmarshal(data, &cfg)
	if yamlErr != nil || cfg.DriverClass == "" {
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil && yamlErr != nil {
			return "", nil, fmt.Errorf("parse driver config %s: not valid YAML or JSON: %w", path, yamlErr)
		}
	}
	if cfg.DriverClass == "" {
		return "", nil, fmt.Errorf("driver config %s: missing driverClass", path)
	}

	return cfg.DriverClass, data, nil
}
