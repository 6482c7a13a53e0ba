package telemetry

import (
	"testing"

	"github.com/pthm-cable/evol/components"
)

func TestCollectorCountsPerSpecies(t *testing.T) {
	c := NewCollector(1.0, 0.1, []string{"herbivorous", "carnivorous"})

	c.Record(NewBirthEvent(1, 10, 3, 0, 8))
	for _, reason := range []components.Transition{
		components.TransitionEat,
		components.TransitionEaten,
		components.TransitionNone,
	} {
		if ev, ok := NewTerminationEvent(2, 4, 0, reason); ok {
			c.Record(ev)
		}
	}
	if ev, ok := NewTerminationEvent(2, 5, 1, components.TransitionStarved); ok {
		c.Record(ev)
	}
	c.Record(Event{Type: EventEat, Kind: 7}) // unknown kind

	if got := c.Count(0, EventBirth); got != 1 {
		t.Errorf("herbivore births = %d, want 1", got)
	}
	if got := c.Count(0, EventEat); got != 1 {
		t.Errorf("herbivore eats = %d, want 1", got)
	}
	if got := c.Count(1, EventStarve); got != 1 {
		t.Errorf("carnivore starved = %d, want 1", got)
	}
	if got := c.Count(1, EventEat); got != 0 {
		t.Errorf("carnivore eats = %d, want 0", got)
	}
}

func TestCollectorFlush(t *testing.T) {
	// dt exact in binary so the window is exactly 10 ticks
	c := NewCollector(5.0, 0.5, []string{"herbivorous", "carnivorous", "herb"})

	if c.WindowDurationTicks() != 10 {
		t.Fatalf("window = %d ticks, want 10", c.WindowDurationTicks())
	}
	if c.ShouldFlush(9) {
		t.Error("flushed before the window ended")
	}
	if !c.ShouldFlush(10) {
		t.Error("did not flush at the window end")
	}

	ev, _ := NewTerminationEvent(5, 1, 1, components.TransitionReproduce)
	c.Record(ev)

	rows := c.Flush(10, []PopulationSample{
		{Count: 2, Life: []float64{40, 60}, Speed: []float64{8, 8}},
		{Count: 1, Life: []float64{50}},
	})

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Species != "herbivorous" || rows[0].Count != 2 || rows[0].LifeMean != 50 {
		t.Errorf("unexpected herbivore row: %+v", rows[0])
	}
	if rows[1].Reproductions != 1 {
		t.Errorf("carnivore reproductions = %d, want 1", rows[1].Reproductions)
	}
	if rows[2].Species != "herb" || rows[2].Count != 0 {
		t.Errorf("unexpected herb row: %+v", rows[2])
	}
	if rows[0].SimTimeSec != 5 {
		t.Errorf("sim time = %v, want 5", rows[0].SimTimeSec)
	}

	if c.Count(1, EventReproduce) != 0 {
		t.Error("counters not reset after flush")
	}
	if c.ShouldFlush(15) {
		t.Error("window did not restart at the flush tick")
	}
}

func TestLifetimeTrackerClose(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register(7, 1, 100, 3, 2)
	lt.RecordChild(7)
	lt.RecordChild(99) // untracked
	lt.UpdateLife(7, 80)
	lt.UpdateLife(7, 60)

	rec := EpisodeRecord{Tick: 150, ID: 7, FinalLife: 20}
	if !lt.Close(&rec, 0.1) {
		t.Fatal("expected tracked id")
	}
	if rec.ParentID != 3 || rec.Generation != 2 || rec.Children != 1 {
		t.Errorf("unexpected lineage: %+v", rec)
	}
	if rec.PeakLife != 80 {
		t.Errorf("peak life = %v, want 80", rec.PeakLife)
	}
	if rec.SurvivalSec < 4.99 || rec.SurvivalSec > 5.01 {
		t.Errorf("survival = %v, want 5", rec.SurvivalSec)
	}
	if lt.Count() != 0 {
		t.Error("closed episode still tracked")
	}
	if lt.Close(&EpisodeRecord{ID: 7}, 0.1) {
		t.Error("closing twice should report untracked")
	}
}
