package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "docs")
	p := writeConfig(t, "name: ${SAMPLE_NAME}\nport: 3000\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "docs" || s.Port != 3000 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := writeConfig(t, "port: 0\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_Missing(t *testing.T) {
	var s sample
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadOptional_MissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 3000}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" || s.Port != 3000 {
		t.Errorf("defaults changed: %+v", s)
	}

	if err := LoadOptional("", &s); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOptional_MissingStillValidates(t *testing.T) {
	s := sample{}
	if err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected validation error for invalid defaults")
	}
}

func TestLoadOptional_OverridesPresentKeys(t *testing.T) {
	p := writeConfig(t, "port: 4000\n")
	s := sample{Name: "default", Port: 3000}
	if err := LoadOptional(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" || s.Port != 4000 {
		t.Errorf("loaded = %+v", s)
	}
}
