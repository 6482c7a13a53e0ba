package telemetry

import (
	"testing"
	"time"
)

// runStep times one tick through every step phase, sleeping in slow.
func runStep(pc *PerfCollector, slow string, d time.Duration) {
	pc.StartTick()
	for _, phase := range Phases {
		pc.StartPhase(phase)
		if phase == slow {
			time.Sleep(d)
		}
	}
	pc.EndTick()
}

func TestPerfCollector_StepPhases(t *testing.T) {
	pc := NewPerfCollector(10)
	for i := 0; i < 5; i++ {
		runStep(pc, PhaseContacts, 200*time.Microsecond)
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Fatal("expected positive average tick duration")
	}
	for _, phase := range Phases {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %s not tracked", phase)
		}
	}
	if stats.PhaseAvg[PhaseContacts] < 200*time.Microsecond {
		t.Errorf("contacts avg = %v, want >= 200us", stats.PhaseAvg[PhaseContacts])
	}
	if stats.PhasePct[PhaseContacts] <= stats.PhasePct[PhaseMotion] {
		t.Errorf("contacts %.1f%% should exceed motion %.1f%%",
			stats.PhasePct[PhaseContacts], stats.PhasePct[PhaseMotion])
	}
	if stats.MinTickDuration > stats.AvgTickDuration || stats.AvgTickDuration > stats.MaxTickDuration {
		t.Errorf("min %v <= avg %v <= max %v violated",
			stats.MinTickDuration, stats.AvgTickDuration, stats.MaxTickDuration)
	}
}

func TestPerfCollector_WindowKeepsRecentTicks(t *testing.T) {
	pc := NewPerfCollector(3)

	// Slow ticks first, then enough fast ticks to push them out of the window
	for i := 0; i < 3; i++ {
		runStep(pc, PhaseMetabolism, 2*time.Millisecond)
	}
	for i := 0; i < 3; i++ {
		runStep(pc, PhaseMetabolism, 0)
	}

	stats := pc.Stats()
	if stats.MaxTickDuration >= 2*time.Millisecond {
		t.Errorf("max tick %v still includes evicted slow ticks", stats.MaxTickDuration)
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(0).Stats()

	if stats.AvgTickDuration != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("expected zero stats for empty collector, got %+v", stats)
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	pct := make(map[string]float64, len(Phases))
	for i, phase := range Phases {
		pct[phase] = float64(i + 1)
	}
	stats := PerfStats{AvgTickDuration: 250 * time.Microsecond, PhasePct: pct}

	row := stats.ToCSV(120)

	if row.WindowEnd != 120 || row.AvgTickUS != 250 {
		t.Errorf("unexpected header fields: %+v", row)
	}
	got := []float64{
		row.ObserveActPct, row.MotionPct, row.MetabolismPct, row.ContactsPct,
		row.LifecyclePct, row.PopulationPct, row.TelemetryPct,
	}
	if len(got) != len(Phases) {
		t.Fatalf("csv has %d phase columns, step has %d phases", len(got), len(Phases))
	}
	for i, phase := range Phases {
		if got[i] != pct[phase] {
			t.Errorf("%s_pct = %v, want %v", phase, got[i], pct[phase])
		}
	}
}
