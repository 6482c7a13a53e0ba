package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}

	if len(cfg.Species) != 3 {
		t.Fatalf("got %d species, want 3", len(cfg.Species))
	}
	if cfg.Derived.DT32 != float32(cfg.Physics.DT) {
		t.Errorf("DT32 = %v, want %v", cfg.Derived.DT32, cfg.Physics.DT)
	}
	if cfg.Derived.MaxRadius != 5 {
		t.Errorf("MaxRadius = %v, want 5", cfg.Derived.MaxRadius)
	}

	herb, ok := cfg.SpeciesByName("herb")
	if !ok {
		t.Fatal("herb species missing")
	}
	if herb.Agent {
		t.Error("herb should be passive")
	}
	if _, ok := cfg.SpeciesByName("unicorn"); ok {
		t.Error("SpeciesByName found an unknown species")
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("world:\n  width: 1000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.World.Width != 1000 {
		t.Errorf("width = %v, want 1000", cfg.World.Width)
	}
	if cfg.World.Height != 600 {
		t.Errorf("height = %v, want default 600", cfg.World.Height)
	}
	if len(cfg.Species) != 3 {
		t.Errorf("species = %d, want defaults kept", len(cfg.Species))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.World.Width = 0 }},
		{"zero dt", func(c *Config) { c.Physics.DT = 0 }},
		{"zero cell", func(c *Config) { c.Physics.GridCellSize = 0 }},
		{"no species", func(c *Config) { c.Species = nil }},
		{"unnamed species", func(c *Config) { c.Species[0].Name = "" }},
		{"duplicate species", func(c *Config) { c.Species[1].Name = c.Species[0].Name }},
		{"unknown prey", func(c *Config) { c.Species[0].Prey = []string{"unicorn"} }},
		{"prewarm over capacity", func(c *Config) {
			c.Species[0].Population.Capacity = 2
			c.Species[0].Population.Prewarm = 3
		}},
		{"zero radius", func(c *Config) { c.Species[2].Radius = 0 }},
		{"inverted life bounds", func(c *Config) { c.Species[0].Traits.MinLife = 200 }},
		{"default life out of bounds", func(c *Config) { c.Species[0].Traits.Life = 0 }},
		{"no rays", func(c *Config) { c.Species[1].Perception.RayAngles = nil }},
		{"zero ray distance", func(c *Config) { c.Species[1].Perception.RayDistance = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Species[0].Traits.ReproductionThreshold = 77

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := loaded.Species[0].Traits.ReproductionThreshold; got != 77 {
		t.Errorf("threshold = %v, want 77", got)
	}
	if len(loaded.Species) != len(cfg.Species) {
		t.Errorf("species = %d, want %d", len(loaded.Species), len(cfg.Species))
	}
}

func TestCfgAfterInit(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatal(err)
	}
	if Cfg() == nil {
		t.Fatal("Cfg() returned nil after Init")
	}
}
