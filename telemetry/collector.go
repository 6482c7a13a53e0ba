package telemetry

import "github.com/pthm-cable/evol/components"

// PopulationSample holds the trait values of one species' active instances,
// taken at the end of a window. Passive species only fill Count.
type PopulationSample struct {
	Count   int
	Life    []float64
	Satiety []float64
	Speed   []float64
}

// speciesCounters holds per-window event counts for one species.
type speciesCounters struct {
	births        int
	eats          int
	reproductions int
	eaten         int
	starved       int
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float32
	species             []string // name by Kind

	// Current window tracking
	windowStartTick int32
	counters        []speciesCounters
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
// species: species names indexed by Kind
func NewCollector(windowDurationSec float64, dt float32, species []string) *Collector {
	ticksPerWindow := int32(windowDurationSec / float64(dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		species:             species,
		counters:            make([]speciesCounters, len(species)),
	}
}

// Record counts an event against its species. Events for unknown kinds are ignored.
func (c *Collector) Record(ev Event) {
	if int(ev.Kind) >= len(c.counters) {
		return
	}
	sc := &c.counters[ev.Kind]
	switch ev.Type {
	case EventBirth:
		sc.births++
	case EventEat:
		sc.eats++
	case EventReproduce:
		sc.reproductions++
	case EventEaten:
		sc.eaten++
	case EventStarve:
		sc.starved++
	}
}

// Count returns the number of events of type t recorded for kind in the current window.
func (c *Collector) Count(kind components.Kind, t EventType) int {
	if int(kind) >= len(c.counters) {
		return 0
	}
	sc := c.counters[kind]
	switch t {
	case EventBirth:
		return sc.births
	case EventEat:
		return sc.eats
	case EventReproduce:
		return sc.reproductions
	case EventEaten:
		return sc.eaten
	case EventStarve:
		return sc.starved
	}
	return 0
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces one WindowStats per species and resets counters for the
// next window. samples is indexed by Kind; missing entries count as empty.
func (c *Collector) Flush(currentTick int32, samples []PopulationSample) []WindowStats {
	out := make([]WindowStats, len(c.species))
	for kind, name := range c.species {
		var s PopulationSample
		if kind < len(samples) {
			s = samples[kind]
		}
		life := Summarize(s.Life)
		speed := Summarize(s.Speed)
		sc := c.counters[kind]

		out[kind] = WindowStats{
			WindowStartTick: c.windowStartTick,
			WindowEndTick:   currentTick,
			SimTimeSec:      float64(currentTick) * float64(c.dt),
			Species:         name,
			Count:           s.Count,
			Births:          sc.births,
			Eats:            sc.eats,
			Reproductions:   sc.reproductions,
			Eaten:           sc.eaten,
			Starved:         sc.starved,
			LifeMean:        life.Mean,
			LifeStd:         life.Std,
			LifeP10:         life.P10,
			LifeP50:         life.P50,
			LifeP90:         life.P90,
			SatietyMean:     Summarize(s.Satiety).Mean,
			SpeedMean:       speed.Mean,
			SpeedStd:        speed.Std,
		}
	}

	// Reset for next window
	c.windowStartTick = currentTick
	clear(c.counters)

	return out
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
