package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/evol/config"
	"github.com/pthm-cable/evol/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}

	raw := pv.ExtractFromConfig(cfg)
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(raw[i]-back[i]) > 1e-9 {
			t.Errorf("%s: %v != %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestApplyToConfigClamps(t *testing.T) {
	pv := NewParamVector()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}

	values := make([]float64, pv.Dim())
	for i := range values {
		values[i] = 1e6
	}
	if err := pv.ApplyToConfig(cfg, values); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Max {
			t.Errorf("%s = %v, want clamped to %v", spec.Name, got[i], spec.Max)
		}
	}
	carn, _ := cfg.SpeciesByName("carnivorous")
	if carn.Traits.StarveRate != 3 {
		t.Errorf("carnivore starve rate = %v, want 3", carn.Traits.StarveRate)
	}
}

func TestComputeQuality(t *testing.T) {
	row := func(herb, carn int) []telemetry.WindowStats {
		return []telemetry.WindowStats{
			{Species: "herbivorous", Count: herb, LifeP50: targetLife},
			{Species: "carnivorous", Count: carn, LifeP50: targetLife},
		}
	}

	if q := computeQuality([][]telemetry.WindowStats{row(40, 10)}); q != 0 {
		t.Errorf("warmup-only run quality = %v, want 0", q)
	}

	var steady [][]telemetry.WindowStats
	for i := 0; i < 10; i++ {
		steady = append(steady, row(40, 10))
	}
	if q := computeQuality(steady); math.Abs(q-1) > 1e-9 {
		t.Errorf("steady ideal run quality = %v, want 1", q)
	}

	var extinct [][]telemetry.WindowStats
	for i := 0; i < 10; i++ {
		extinct = append(extinct, row(40, 0))
	}
	if q := computeQuality(extinct); q != 0 {
		t.Errorf("run without carnivores quality = %v, want 0", q)
	}

	if f := computeFitness(100, 1); f != -120 {
		t.Errorf("fitness = %v, want -120", f)
	}
}
