package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/config"
	"github.com/pthm-cable/evol/policy"
)

func newTestGame(t *testing.T, mutate func(*config.Config), opts Options) *Game {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	g, err := NewGameWithOptions(cfg, opts)
	if err != nil {
		t.Fatalf("creating game: %v", err)
	}
	t.Cleanup(func() { g.Unload() })
	return g
}

// checkPartition verifies that every pooled instance is either parked in its
// pool or active in the world, never both and never terminated between steps.
func checkPartition(t *testing.T, g *Game) {
	t.Helper()

	phases := make(map[components.Kind]map[components.Phase]int)
	query := g.idFilter.Query()
	for query.Next() {
		id := query.Get()
		if phases[id.Kind] == nil {
			phases[id.Kind] = make(map[components.Phase]int)
		}
		phases[id.Kind][id.Phase]++
		if id.Phase == components.PhaseIdle && id.Container == "" {
			t.Errorf("tick %d: parked instance %d has no container", g.tick, id.ID)
		}
	}

	for i := range g.species {
		kind := g.species[i].Kind
		p, err := g.ctrl.Pool(kind)
		if err != nil {
			t.Fatal(err)
		}
		s := p.Stats()
		if s.Available+s.InUse != s.Created {
			t.Errorf("tick %d: %s available %d + in use %d != created %d", g.tick, p.Name(), s.Available, s.InUse, s.Created)
		}
		if got := phases[kind][components.PhaseObserving]; got != s.InUse {
			t.Errorf("tick %d: %s observing %d, pool in use %d", g.tick, p.Name(), got, s.InUse)
		}
		if got := phases[kind][components.PhaseIdle]; got != s.Available {
			t.Errorf("tick %d: %s idle %d, pool available %d", g.tick, p.Name(), got, s.Available)
		}
		if got := phases[kind][components.PhaseTerminated]; got != 0 {
			t.Errorf("tick %d: %s has %d unreleased terminated instances", g.tick, p.Name(), got)
		}
	}
}

func TestInitialPopulation(t *testing.T) {
	g := newTestGame(t, nil, Options{Seed: 1})

	for i, sc := range g.cfg.Species {
		kind := components.Kind(i)
		if got := g.Population(kind); got != sc.Population.Initial {
			t.Errorf("%s population = %d, want %d", sc.Name, got, sc.Population.Initial)
		}
		p, _ := g.ctrl.Pool(kind)
		if s := p.Stats(); s.Available < sc.Population.Prewarm-sc.Population.Initial {
			t.Errorf("%s available = %d after prewarm %d", sc.Name, s.Available, sc.Population.Prewarm)
		}
	}
	checkPartition(t, g)
}

func TestStepKeepsPoolPartition(t *testing.T) {
	g := newTestGame(t, nil, Options{Seed: 7})

	for i := 0; i < 300; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		checkPartition(t, g)
		if t.Failed() {
			return
		}
	}
	if g.Tick() != 300 {
		t.Errorf("tick = %d, want 300", g.Tick())
	}
}

func TestPopulationFloorAndCap(t *testing.T) {
	g := newTestGame(t, nil, Options{Seed: 3})

	for i := 0; i < 200; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		for k, sc := range g.cfg.Species {
			n := g.Population(components.Kind(k))
			if sc.Population.Min > 0 && n < sc.Population.Min {
				t.Fatalf("tick %d: %s population %d below floor %d", g.tick, sc.Name, n, sc.Population.Min)
			}
			if sc.Population.Max > 0 && n > sc.Population.Max {
				t.Fatalf("tick %d: %s population %d above cap %d", g.tick, sc.Name, n, sc.Population.Max)
			}
		}
	}
}

func TestCapacityLimitsConstruction(t *testing.T) {
	g := newTestGame(t, func(cfg *config.Config) {
		for i := range cfg.Species {
			pc := &cfg.Species[i].Population
			pc.Capacity = pc.Initial + 2
			pc.Prewarm = 0
		}
	}, Options{Seed: 11})

	for i := 0; i < 300; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	for i, sc := range g.cfg.Species {
		p, _ := g.ctrl.Pool(components.Kind(i))
		if created := p.Stats().Created; created > sc.Population.Capacity {
			t.Errorf("%s created %d instances, capacity %d", sc.Name, created, sc.Population.Capacity)
		}
	}
	checkPartition(t, g)
}

func TestSameSeedSameRun(t *testing.T) {
	run := func() []int {
		g := newTestGame(t, nil, Options{Seed: 42})
		for i := 0; i < 100; i++ {
			if err := g.Step(); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
		}
		var counts []int
		for k := range g.species {
			counts = append(counts, g.Population(components.Kind(k)))
		}
		return counts
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverged: %v vs %v", a, b)
		}
	}
}

func TestBrainPoliciesFollowInstances(t *testing.T) {
	g := newTestGame(t, nil, Options{Seed: 9, Policy: BrainPolicies(8)})

	for i := 0; i < 200; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	observing := make(map[uint32]bool)
	query := g.idFilter.Query()
	for query.Next() {
		id := query.Get()
		if id.Phase == components.PhaseObserving {
			observing[id.ID] = true
		}
	}
	for id, p := range g.policies {
		if !observing[id] {
			t.Errorf("policy kept for inactive instance %d", id)
		}
		b, ok := p.(*policy.Brain)
		if !ok {
			t.Fatalf("instance %d has %T, want *policy.Brain", id, p)
		}
		if b.Inputs() == 0 {
			t.Errorf("instance %d brain has no inputs", id)
		}
	}
	checkPartition(t, g)
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGameWithOptions(cfg, Options{Seed: 5, OutputDir: dir, StatsWindowSec: 0.5, StepsPerUpdate: 10})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		if err := g.UpdateHeadless(); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Unload(); err != nil {
		t.Fatal(err)
	}

	telemetryCSV, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(telemetryCSV)), "\n")
	// 60 ticks with 15-tick windows: 4 windows of one row per species
	if want := 1 + 4*len(cfg.Species); len(lines) != want {
		t.Errorf("telemetry.csv has %d lines, want %d", len(lines), want)
	}

	metricsCSV, err := os.ReadFile(filepath.Join(dir, "metrics.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(metricsCSV), "speedHerbivorous") {
		t.Errorf("metrics.csv lacks agent gauges:\n%s", metricsCSV)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml not written: %v", err)
	}
}
