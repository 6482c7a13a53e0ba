// Package agent runs the per-instance state machine shared by every species:
// observation collection, contact-driven eat/reproduce/eaten transitions,
// metabolism, reward shaping and episode termination.
package agent

import (
	"fmt"
	"strings"

	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/config"
	"github.com/pthm-cable/evol/perception"
)

// perceptionExtras is the number of values appended to the ray block:
// the reproduction flag and the reproduction threshold.
const perceptionExtras = 2

// motionFeatures is the number of values after the perception block:
// local lateral and forward velocity, heading, normalized life.
const motionFeatures = 4

// Rewards holds the reward shaping constants for a species.
type Rewards struct {
	OnAct       float32
	OnEat       float32
	OnReproduce float32
	OnEaten     float32
	OnStarve    float32
}

// Species parameterizes the shared state machine. Kind equals the species'
// index in the slice returned by NewSpecies.
type Species struct {
	Kind         components.Kind
	Name         string
	Label        string
	MetricSuffix string
	Agent        bool
	Radius       float32

	Defaults         components.LivingBeing
	MaxTurnRate      float32
	ReproductionCost float32
	SatietyGain      float32
	LifeGain         float32
	SpeedJitter      float32
	HungerRate       float32
	StarveRate       float32
	Capacity         int

	Rewards Rewards

	RayDistance float32
	RayAngles   []float32
	Labels      []string

	prey      map[components.Kind]bool
	predators map[components.Kind]bool
}

// NewSpecies builds one Species per configured entry, resolving prey and
// predator names into kinds.
func NewSpecies(cfg *config.Config) ([]Species, error) {
	out := make([]Species, len(cfg.Species))
	for i, sc := range cfg.Species {
		t := sc.Traits
		sp := Species{
			Kind:         components.Kind(i),
			Name:         sc.Name,
			Label:        sc.Label,
			MetricSuffix: sc.MetricSuffix,
			Agent:        sc.Agent,
			Radius:       float32(sc.Radius),
			Defaults: components.LivingBeing{
				Life:                  float32(t.Life),
				Satiety:               float32(t.Satiety),
				Speed:                 float32(t.Speed),
				MinLife:               float32(t.MinLife),
				MaxLife:               float32(t.MaxLife),
				MaxSatiety:            float32(t.MaxSatiety),
				ReproductionThreshold: float32(t.ReproductionThreshold),
				ReproductionEnabled:   t.Reproduction,
				EvolutionEnabled:      t.Evolution,
			},
			MaxTurnRate:      float32(t.MaxTurnRate),
			ReproductionCost: float32(t.ReproductionCost),
			SatietyGain:      float32(t.SatietyGain),
			LifeGain:         float32(t.LifeGain),
			SpeedJitter:      float32(t.SpeedJitter),
			HungerRate:       float32(t.HungerRate),
			StarveRate:       float32(t.StarveRate),
			Capacity:         sc.Population.Capacity,
			Rewards: Rewards{
				OnAct:       float32(sc.Rewards.OnAct),
				OnEat:       float32(sc.Rewards.OnEat),
				OnReproduce: float32(sc.Rewards.OnReproduce),
				OnEaten:     float32(sc.Rewards.OnEaten),
				OnStarve:    float32(sc.Rewards.OnStarve),
			},
			RayDistance: float32(sc.Perception.RayDistance),
			Labels:      append([]string(nil), sc.Perception.Detectable...),
			prey:        make(map[components.Kind]bool, len(sc.Prey)),
			predators:   make(map[components.Kind]bool, len(sc.Predators)),
		}
		if sp.MetricSuffix == "" {
			sp.MetricSuffix = sp.Label
		}
		sp.RayAngles = make([]float32, len(sc.Perception.RayAngles))
		for j, a := range sc.Perception.RayAngles {
			sp.RayAngles[j] = float32(a)
		}

		for _, name := range sc.Prey {
			idx, ok := cfg.Derived.SpeciesIndex[name]
			if !ok {
				return nil, fmt.Errorf("species %q: unknown prey %q", sc.Name, name)
			}
			sp.prey[components.Kind(idx)] = true
		}
		for _, name := range sc.Predators {
			idx, ok := cfg.Derived.SpeciesIndex[name]
			if !ok {
				return nil, fmt.Errorf("species %q: unknown predator %q", sc.Name, name)
			}
			sp.predators[components.Kind(idx)] = true
		}
		out[i] = sp
	}
	return out, nil
}

// Eats reports whether k is prey of this species.
func (s *Species) Eats(k components.Kind) bool {
	return s.prey[k]
}

// EatenBy reports whether k is a predator of this species.
func (s *Species) EatenBy(k components.Kind) bool {
	return s.predators[k]
}

// ObservationSize is the fixed length of every CollectObservations result.
func (s *Species) ObservationSize() int {
	return perception.Size(len(s.RayAngles), len(s.Labels), perceptionExtras) + motionFeatures
}

// displayName is the lower-case name used in metric help strings.
func (s *Species) displayName() string {
	return strings.ToLower(s.MetricSuffix)
}
