// Package main provides CMA-ES optimization for species parameters.
package main

import (
	"fmt"

	"github.com/pthm-cable/evol/config"
)

// ParamSpec defines a single optimizable parameter of one species.
type ParamSpec struct {
	Name    string  // Human-readable name
	Species string  // species the parameter belongs to
	Min     float64 // Lower bound
	Max     float64 // Upper bound

	get func(*config.SpeciesConfig) float64
	set func(*config.SpeciesConfig, float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

func traitParam(species, field string, lo, hi float64, ptr func(*config.TraitsConfig) *float64) ParamSpec {
	return ParamSpec{
		Name:    species + "_" + field,
		Species: species,
		Min:     lo,
		Max:     hi,
		get:     func(sc *config.SpeciesConfig) float64 { return *ptr(&sc.Traits) },
		set:     func(sc *config.SpeciesConfig, v float64) { *ptr(&sc.Traits) = v },
	}
}

// NewParamVector creates the standard set of optimizable parameters for the
// herbivore/carnivore/plant food chain.
func NewParamVector() *ParamVector {
	var specs []ParamSpec
	for _, name := range []string{"herbivorous", "carnivorous"} {
		specs = append(specs,
			traitParam(name, "reproduction_threshold", 30, 90, func(t *config.TraitsConfig) *float64 { return &t.ReproductionThreshold }),
			traitParam(name, "reproduction_cost", 5, 50, func(t *config.TraitsConfig) *float64 { return &t.ReproductionCost }),
			traitParam(name, "life_gain", 5, 40, func(t *config.TraitsConfig) *float64 { return &t.LifeGain }),
			traitParam(name, "starve_rate", 0.2, 3, func(t *config.TraitsConfig) *float64 { return &t.StarveRate }),
		)
	}
	specs = append(specs, ParamSpec{
		Name:    "herb_regrow_interval",
		Species: "herb",
		Min:     1,
		Max:     30,
		get:     func(sc *config.SpeciesConfig) float64 { return float64(sc.Population.RegrowInterval) },
		set:     func(sc *config.SpeciesConfig, v float64) { sc.Population.RegrowInterval = int(v + 0.5) },
	})
	return &ParamVector{Specs: specs}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies clamped parameter values to cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		sc, ok := cfg.SpeciesByName(spec.Species)
		if !ok {
			return fmt.Errorf("parameter %s: species %q not configured", spec.Name, spec.Species)
		}
		spec.set(sc, clamped[i])
	}
	return cfg.Validate()
}

// ExtractFromConfig extracts current parameter values from cfg.
// Parameters of unconfigured species read as their lower bound.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Min
		if sc, ok := cfg.SpeciesByName(spec.Species); ok {
			v[i] = spec.get(sc)
		}
	}
	return v
}
