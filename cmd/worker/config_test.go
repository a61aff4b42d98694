package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadDriverConfigYAML(t *testing.T) {
	path := writeTempConfig(t, "driver.yaml", "driverClass: loopback\nsomeKey: someValue\n")

	driverClass, raw, err := loadDriverConfig(path)
	if err != nil {
		t.Fatalf("loadDriverConfig: %v", err)
	}
	if driverClass != "loopback" {
		t.Errorf("driverClass = %q, want loopback", driverClass)
	}
	if len(raw) == 0 {
		t.Error("rawConfig is empty, want the full file contents")
	}
}

func TestLoadDriverConfigJSON(t *testing.T) {
	path := writeTempConfig(t, "driver.json", `{"driverClass": "grpcloop", "someKey": "someValue"}`)

	driverClass, raw, err := loadDriverConfig(path)
	if err != nil {
		t.Fatalf("loadDriverConfig: %v", err)
	}
	if driverClass != "grpcloop" {
		t.Errorf("driverClass = %q, want grpcloop", driverClass)
	}
	if len(raw) == 0 {
		t.Error("rawConfig is empty, want the full file contents")
	}
}

func TestLoadDriverConfigMissingDriverClass(t *testing.T) {
	path := writeTempConfig(t, "driver.yaml", "someKey: someValue\n")

	if _, _, err := loadDriverConfig(path); err == nil {
		t.Error("loadDriverConfig: want error for missing driverClass, got nil")
	}
}

func TestLoadDriverConfigMissingFile(t *testing.T) {
	if _, _, err := loadDriverConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadDriverConfig: want error for missing file, got nil")
	}
}
