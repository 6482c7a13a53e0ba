// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned by Validate for configurations the simulation cannot run.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Species   []SpeciesConfig `yaml:"species"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds simulation world dimensions. The world wraps at its edges.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PhysicsConfig holds simulation physics parameters.
type PhysicsConfig struct {
	DT           float64 `yaml:"dt"`
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds of simulated time per CSV row
}

// SpeciesConfig describes one pooled prefab: an agent species or a passive food source.
type SpeciesConfig struct {
	Name         string           `yaml:"name"`          // key used in prey/predator lists
	Label        string           `yaml:"label"`         // category label seen by ray perception
	MetricSuffix string           `yaml:"metric_suffix"` // appended to metric names, e.g. eatCarnivorous
	Agent        bool             `yaml:"agent"`         // false for passive entities such as plants
	Radius       float64          `yaml:"radius"`
	Prey         []string         `yaml:"prey"`
	Predators    []string         `yaml:"predators"`
	Population   PopulationConfig `yaml:"population"`
	Traits       TraitsConfig     `yaml:"traits"`
	Rewards      RewardsConfig    `yaml:"rewards"`
	Perception   PerceptionConfig `yaml:"perception"`
}

// PopulationConfig controls pool prewarming and population maintenance for a species.
type PopulationConfig struct {
	Initial        int `yaml:"initial"`         // spawned at startup
	Prewarm        int `yaml:"prewarm"`         // instances constructed into the pool up front
	Min            int `yaml:"min"`             // respawn floor (0 = no floor)
	Max            int `yaml:"max"`             // cap for regrowth (0 = no regrowth)
	RegrowInterval int `yaml:"regrow_interval"` // ticks between regrowth spawns (0 = off)
	Capacity       int `yaml:"capacity"`        // most instances the pool may construct (0 = unbounded)
}

// TraitsConfig holds LivingBeing defaults and mutation constants.
type TraitsConfig struct {
	Life                  float64 `yaml:"life"`
	MinLife               float64 `yaml:"min_life"`
	MaxLife               float64 `yaml:"max_life"`
	Satiety               float64 `yaml:"satiety"`
	MaxSatiety            float64 `yaml:"max_satiety"`
	Speed                 float64 `yaml:"speed"`
	MaxTurnRate           float64 `yaml:"max_turn_rate"` // rad/s
	ReproductionThreshold float64 `yaml:"reproduction_threshold"`
	Reproduction          bool    `yaml:"reproduction"`
	Evolution             bool    `yaml:"evolution"`
	ReproductionCost      float64 `yaml:"reproduction_cost"` // life paid by each parent
	SatietyGain           float64 `yaml:"satiety_gain"`      // satiety added per meal
	LifeGain              float64 `yaml:"life_gain"`         // life added per meal
	SpeedJitter           float64 `yaml:"speed_jitter"`      // half-width of offspring speed perturbation
	HungerRate            float64 `yaml:"hunger_rate"`       // satiety lost per second
	StarveRate            float64 `yaml:"starve_rate"`       // life lost per second at zero satiety
}

// RewardsConfig holds the reward shaping constants for a species.
type RewardsConfig struct {
	OnAct       float64 `yaml:"on_act"`
	OnEat       float64 `yaml:"on_eat"`
	OnReproduce float64 `yaml:"on_reproduce"`
	OnEaten     float64 `yaml:"on_eaten"`
	OnStarve    float64 `yaml:"on_starve"`
}

// PerceptionConfig holds the ray sensor layout for a species.
type PerceptionConfig struct {
	RayDistance float64   `yaml:"ray_distance"`
	RayAngles   []float64 `yaml:"ray_angles"` // degrees, 90 = straight ahead
	Detectable  []string  `yaml:"detectable"` // category labels, one-hot per ray
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32         float32          // Physics.DT as float32
	WorldW32     float32          // World.Width as float32
	WorldH32     float32          // World.Height as float32
	MaxRadius    float32          // largest species radius, pads spatial queries
	SpeciesIndex map[string]uint8 // name -> index for species lookup
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults without touching the global config.
func Default() (*Config, error) {
	return Load("")
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file; a species list replaces the defaults wholesale.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate reports the first setting the simulation cannot run with.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("%w: world size %vx%v", ErrInvalidConfig, c.World.Width, c.World.Height)
	}
	if c.Physics.DT <= 0 {
		return fmt.Errorf("%w: physics.dt must be positive", ErrInvalidConfig)
	}
	if c.Physics.GridCellSize <= 0 {
		return fmt.Errorf("%w: physics.grid_cell_size must be positive", ErrInvalidConfig)
	}
	if len(c.Species) == 0 {
		return fmt.Errorf("%w: no species configured", ErrInvalidConfig)
	}
	if len(c.Species) > 255 {
		return fmt.Errorf("%w: too many species (%d)", ErrInvalidConfig, len(c.Species))
	}

	names := make(map[string]bool, len(c.Species))
	for _, sp := range c.Species {
		if sp.Name == "" {
			return fmt.Errorf("%w: species without a name", ErrInvalidConfig)
		}
		if names[sp.Name] {
			return fmt.Errorf("%w: duplicate species %q", ErrInvalidConfig, sp.Name)
		}
		names[sp.Name] = true
	}

	for _, sp := range c.Species {
		for _, ref := range append(append([]string{}, sp.Prey...), sp.Predators...) {
			if !names[ref] {
				return fmt.Errorf("%w: species %q references unknown species %q", ErrInvalidConfig, sp.Name, ref)
			}
		}
		if sp.Population.Capacity > 0 && sp.Population.Prewarm > sp.Population.Capacity {
			return fmt.Errorf("%w: species %q prewarm %d exceeds capacity %d", ErrInvalidConfig, sp.Name, sp.Population.Prewarm, sp.Population.Capacity)
		}
		if sp.Radius <= 0 {
			return fmt.Errorf("%w: species %q radius must be positive", ErrInvalidConfig, sp.Name)
		}
		if !sp.Agent {
			continue
		}
		t := sp.Traits
		if t.MinLife >= t.MaxLife {
			return fmt.Errorf("%w: species %q min_life %v >= max_life %v", ErrInvalidConfig, sp.Name, t.MinLife, t.MaxLife)
		}
		if t.Life <= t.MinLife || t.Life > t.MaxLife {
			return fmt.Errorf("%w: species %q default life %v outside (%v, %v]", ErrInvalidConfig, sp.Name, t.Life, t.MinLife, t.MaxLife)
		}
		if len(sp.Perception.RayAngles) == 0 {
			return fmt.Errorf("%w: species %q has no ray angles", ErrInvalidConfig, sp.Name)
		}
		if sp.Perception.RayDistance <= 0 {
			return fmt.Errorf("%w: species %q ray_distance must be positive", ErrInvalidConfig, sp.Name)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)

	c.Derived.MaxRadius = 0
	c.Derived.SpeciesIndex = make(map[string]uint8, len(c.Species))
	for i, sp := range c.Species {
		c.Derived.SpeciesIndex[sp.Name] = uint8(i)
		if r := float32(sp.Radius); r > c.Derived.MaxRadius {
			c.Derived.MaxRadius = r
		}
	}
}

// SpeciesByName returns the species config with the given name.
func (c *Config) SpeciesByName(name string) (*SpeciesConfig, bool) {
	idx, ok := c.Derived.SpeciesIndex[name]
	if !ok {
		return nil, false
	}
	return &c.Species[idx], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
