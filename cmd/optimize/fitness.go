package main

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/config"
	"github.com/pthm-cable/evol/game"
	"github.com/pthm-cable/evol/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	configPath  string
	statsWindow float64
}

// NewFitnessEvaluator creates a new evaluator. Each run loads a fresh
// config from configPath (empty = defaults).
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, configPath string) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		configPath:  configPath,
		statsWindow: 10.0, // 10 seconds per window
	}
}

// Minimum viable population: if either agent species stays below this for
// extinctionGraceSec, it counts as functionally extinct.
const (
	minViablePop       = 3
	extinctionGraceSec = 30.0
)

// SpeciesOutcome summarizes how one agent species fared across seeds.
type SpeciesOutcome struct {
	Species     string
	Ticks       float64 // mean ticks the species stayed viable
	Extinctions int     // seeds in which this species ended the run
	MeanCount   float64 // mean population over telemetry windows
}

// Evaluation is the outcome of one parameter vector across all seeds.
type Evaluation struct {
	Fitness  float64 // lower is better
	Quality  float64 // mean ecosystem quality in [0, 1]
	Failed   int     // seeds whose run returned an error
	Seeds    int
	Species  []SpeciesOutcome
	Duration time.Duration
}

// Outcome returns the outcome for the named species.
func (e Evaluation) Outcome(name string) (SpeciesOutcome, bool) {
	for _, o := range e.Species {
		if o.Species == name {
			return o, true
		}
	}
	return SpeciesOutcome{}, false
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int32                     // ticks before functional extinction (or maxTicks if survived)
	extinct       string                    // species that ended the run, empty if none did
	species       []string                  // agent species names in config order
	windows       [][]telemetry.WindowStats // per-species rows, one entry per window
}

// Evaluate runs every seed concurrently and aggregates the runs.
// Fitness is negative survival ticks: longer survival = lower (better) fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) Evaluation {
	start := time.Now()
	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result, err := fe.runSimulation(x, s)
			if err != nil {
				slog.Warn("evaluation run failed", "seed", s, "error", err)
				return // zero fitness: worse than any run that survived a tick
			}
			results[idx] = result
		}(i, seed)
	}
	wg.Wait()

	ev := summarize(results)
	ev.Duration = time.Since(start)
	return ev
}

// summarize aggregates per-seed runs. Nil entries are failed runs and count
// as zero fitness and zero quality.
func summarize(results []*runResult) Evaluation {
	ev := Evaluation{Seeds: len(results)}
	if len(results) == 0 {
		return ev
	}

	type acc struct {
		ticks, count float64
		windows      int
		extinct      int
	}
	byName := make(map[string]*acc)

	for _, r := range results {
		if r == nil {
			ev.Failed++
			continue
		}
		quality := computeQuality(r.windows)
		ev.Fitness += computeFitness(r.survivalTicks, quality)
		ev.Quality += quality

		for _, name := range r.species {
			a, ok := byName[name]
			if !ok {
				a = &acc{}
				byName[name] = a
				ev.Species = append(ev.Species, SpeciesOutcome{Species: name})
			}
			a.ticks += float64(r.survivalTicks)
			if r.extinct == name {
				a.extinct++
			}
			for _, rows := range r.windows {
				if row, ok := findSpecies(rows, name); ok {
					a.count += float64(row.Count)
					a.windows++
				}
			}
		}
	}

	n := float64(len(results))
	ev.Fitness /= n
	ev.Quality /= n
	for i := range ev.Species {
		a := byName[ev.Species[i].Species]
		ev.Species[i].Ticks = a.ticks / n
		ev.Species[i].Extinctions = a.extinct
		if a.windows > 0 {
			ev.Species[i].MeanCount = a.count / float64(a.windows)
		}
	}
	return ev
}

// runSimulation executes a single headless simulation run.
// Runs until functional extinction or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (*runResult, error) {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return nil, err
	}
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return nil, err
	}

	result := &runResult{}
	// Respawn floors would hide extinction.
	var agents []components.Kind
	for i := range cfg.Species {
		if cfg.Species[i].Agent {
			cfg.Species[i].Population.Min = 0
			agents = append(agents, components.Kind(i))
			result.species = append(result.species, cfg.Species[i].Name)
		}
	}

	g, err := game.NewGameWithOptions(cfg, game.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StepsPerUpdate: 1,
		StatsCallback: func(rows []telemetry.WindowStats) {
			result.windows = append(result.windows, rows)
		},
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	dt := cfg.Physics.DT
	graceTicks := int32(extinctionGraceSec / dt)
	warmupTicks := int32(5.0 / dt)
	below := make([]int32, len(agents))

	for g.Tick() < fe.maxTicks {
		if err := g.UpdateHeadless(); err != nil {
			return nil, err
		}

		tick := g.Tick()
		if tick < warmupTicks {
			continue
		}

		for i, kind := range agents {
			n := g.Population(kind)
			if n < minViablePop {
				below[i]++
			} else {
				below[i] = 0
			}
			if n == 0 || below[i] >= graceTicks {
				result.survivalTicks = tick
				result.extinct = result.species[i]
				return result, nil
			}
		}
	}

	result.survivalTicks = fe.maxTicks
	return result, nil
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
func computeFitness(survivalTicks int32, quality float64) float64 {
	return -(float64(survivalTicks) * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightRatio     = 0.40
	qualityWeightStability = 0.30
	qualityWeightLife      = 0.30

	qualityWarmupWindows = 3   // skip first N windows (warmup)
	qualityMinPop        = 3   // exclude windows where an agent species < this
	targetRatio          = 4.0 // herbivores per carnivore
	targetLife           = 50.0
)

// computeQuality computes ecosystem quality in [0, 1] from window rows.
// Rows are looked up by species name: herbivorous and carnivorous.
func computeQuality(windows [][]telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	var ratioSum, lifeSum float64
	var herbCounts, carnCounts []float64

	for _, rows := range windows[qualityWarmupWindows:] {
		herb, okH := findSpecies(rows, "herbivorous")
		carn, okC := findSpecies(rows, "carnivorous")
		if !okH || !okC || herb.Count < qualityMinPop || carn.Count < qualityMinPop {
			continue
		}
		herbCounts = append(herbCounts, float64(herb.Count))
		carnCounts = append(carnCounts, float64(carn.Count))

		// Population ratio score
		logErr := math.Log(float64(herb.Count) / float64(carn.Count) / targetRatio)
		ratioSum += math.Exp(-logErr * logErr)

		// Life health score
		herbH := math.Exp(-math.Pow((herb.LifeP50-targetLife)/20, 2))
		carnH := math.Exp(-math.Pow((carn.LifeP50-targetLife)/20, 2))
		lifeSum += (herbH + carnH) / 2
	}

	n := float64(len(herbCounts))
	if n == 0 {
		return 0
	}

	stability := 0.0
	if n >= 2 {
		cvH, cvC := cv(herbCounts), cv(carnCounts)
		stability = math.Exp(-(cvH*cvH + cvC*cvC))
	}

	quality := qualityWeightRatio*ratioSum/n +
		qualityWeightStability*stability +
		qualityWeightLife*lifeSum/n
	return min(max(quality, 0), 1)
}

func findSpecies(rows []telemetry.WindowStats, name string) (telemetry.WindowStats, bool) {
	for _, r := range rows {
		if r.Species == name {
			return r, true
		}
	}
	return telemetry.WindowStats{}, false
}

// cv computes the coefficient of variation (std/mean).
func cv(values []float64) float64 {
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 || math.IsNaN(std) {
		return 0
	}
	return std / mean
}
