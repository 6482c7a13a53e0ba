// Package game drives the headless simulation: it owns the world, the pools
// and the step schedule around the agent controller.
package game

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/agent"
	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/config"
	"github.com/pthm-cable/evol/metrics"
	"github.com/pthm-cable/evol/perception"
	"github.com/pthm-cable/evol/policy"
	"github.com/pthm-cable/evol/systems"
	"github.com/pthm-cable/evol/telemetry"
)

// PolicyFactory returns the policy steering a new agent lineage. Offspring of
// a heritable policy inherit from their parent instead.
type PolicyFactory func(sp *agent.Species, rng *rand.Rand) policy.Policy

// WanderPolicies gives every agent a random walk.
func WanderPolicies(_ *agent.Species, rng *rand.Rand) policy.Policy {
	return policy.NewWander(rng)
}

// BrainPolicies returns a factory of randomly initialized networks with the
// given hidden layer size, sized to each species' observation.
func BrainPolicies(hidden int) PolicyFactory {
	return func(sp *agent.Species, rng *rand.Rand) policy.Policy {
		return policy.NewBrain(rng, sp.ObservationSize(), hidden)
	}
}

// Options configures a Game.
type Options struct {
	Seed           int64
	LogStats       bool
	StatsWindowSec float64 // 0 uses the config value
	OutputDir      string  // empty disables CSV output
	StepsPerUpdate int

	Policy        PolicyFactory                 // nil uses a wandering policy
	Metrics       *metrics.Registry             // nil creates a private registry
	StatsCallback func([]telemetry.WindowStats) // called with each window's per-species rows
}

// Game holds the complete simulation state.
type Game struct {
	cfg     *config.Config
	world   *ecs.World
	rng     *rand.Rand
	species []agent.Species
	ctrl    *agent.Controller
	metrics *metrics.Registry

	newPolicy PolicyFactory
	policies  map[uint32]policy.Policy // by instance id

	// Systems
	grid     *systems.SpatialGrid
	motion   *systems.MotionSystem
	contacts *systems.ContactSystem
	rays     *systems.RayCaster

	// Component access
	agentFilter *ecs.Filter2[components.Identity, components.LivingBeing]
	idFilter    *ecs.Filter1[components.Identity]
	posMap      *ecs.Map[components.Position]
	rotMap      *ecs.Map[components.Rotation]
	idMap       *ecs.Map[components.Identity]
	epMap       *ecs.Map[components.Episode]

	// Telemetry
	collector     *telemetry.Collector
	lifetime      *telemetry.LifetimeTracker
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	episodes      []telemetry.EpisodeRecord
	statsCallback func([]telemetry.WindowStats)
	logStats      bool

	// State
	tick           int32
	stepsPerUpdate int
	active         []ecs.Entity
}

// NewGameWithOptions builds the world, prewarms every pool and spawns the
// initial populations.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	species, err := agent.NewSpecies(cfg)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(opts.Seed))

	g := &Game{
		cfg:            cfg,
		world:          world,
		rng:            rng,
		species:        species,
		metrics:        opts.Metrics,
		newPolicy:      opts.Policy,
		policies:       make(map[uint32]policy.Policy),
		agentFilter:    ecs.NewFilter2[components.Identity, components.LivingBeing](world),
		idFilter:       ecs.NewFilter1[components.Identity](world),
		posMap:         ecs.NewMap[components.Position](world),
		rotMap:         ecs.NewMap[components.Rotation](world),
		idMap:          ecs.NewMap[components.Identity](world),
		epMap:          ecs.NewMap[components.Episode](world),
		lifetime:       telemetry.NewLifetimeTracker(),
		perfCollector:  telemetry.NewPerfCollector(120),
		statsCallback:  opts.StatsCallback,
		logStats:       opts.LogStats,
		stepsPerUpdate: max(1, opts.StepsPerUpdate),
	}
	if g.metrics == nil {
		g.metrics = metrics.NewRegistry()
	}
	if g.newPolicy == nil {
		g.newPolicy = WanderPolicies
	}

	w, h := cfg.Derived.WorldW32, cfg.Derived.WorldH32
	labels := make([]string, len(species))
	names := make([]string, len(species))
	for i := range species {
		labels[i] = species[i].Label
		names[i] = species[i].Name
	}
	g.grid = systems.NewSpatialGrid(w, h, float32(cfg.Physics.GridCellSize))
	g.motion = systems.NewMotionSystem(world, systems.Bounds{Width: w, Height: h})
	g.contacts = systems.NewContactSystem(world, g.grid, cfg.Derived.MaxRadius)
	g.rays = systems.NewRayCaster(world, g.grid, labels, cfg.Derived.MaxRadius)

	g.ctrl = agent.NewController(world, species, agent.Options{
		Sink: g.metrics,
		Rand: rng,
		Sensor: func(e ecs.Entity, pos components.Position, rot components.Rotation) perception.Adapter {
			return perception.Ray{Caster: g.rays.From(e), X: pos.X, Y: pos.Y, Heading: rot.Heading}
		},
	})

	windowSec := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		windowSec = opts.StatsWindowSec
	}
	g.collector = telemetry.NewCollector(windowSec, cfg.Derived.DT32, names)

	g.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := g.outputManager.WriteConfig(cfg); err != nil {
		g.outputManager.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	if err := g.spawnInitialPopulation(); err != nil {
		g.outputManager.Close()
		return nil, err
	}
	return g, nil
}

// UpdateHeadless runs StepsPerUpdate simulation steps.
func (g *Game) UpdateHeadless() error {
	for i := 0; i < g.stepsPerUpdate; i++ {
		if err := g.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Unload writes the final metrics snapshot and closes output files.
func (g *Game) Unload() error {
	g.writeMetrics()
	return g.outputManager.Close()
}

// Tick returns the number of completed steps.
func (g *Game) Tick() int32 {
	return g.tick
}

// Controller returns the agent controller.
func (g *Game) Controller() *agent.Controller {
	return g.ctrl
}

// Metrics returns the registry the controller reports into.
func (g *Game) Metrics() *metrics.Registry {
	return g.metrics
}

// World returns the ECS world.
func (g *Game) World() *ecs.World {
	return g.world
}

// Population returns the number of active instances of kind.
func (g *Game) Population(kind components.Kind) int {
	n := 0
	query := g.idFilter.Query()
	for query.Next() {
		id := query.Get()
		if id.Kind == kind && id.Phase == components.PhaseObserving {
			n++
		}
	}
	return n
}

// randomHeading returns a heading in [-pi, pi).
func (g *Game) randomHeading() float32 {
	return (g.rng.Float32()*2 - 1) * math.Pi
}
