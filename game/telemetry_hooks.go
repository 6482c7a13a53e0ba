package game

import (
	"log/slog"

	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/telemetry"
)

// flushTelemetry writes ended episodes every step and, at window boundaries,
// the per-species window stats, perf stats and a metrics snapshot.
func (g *Game) flushTelemetry() {
	if len(g.episodes) > 0 {
		if err := g.outputManager.WriteEpisodes(g.episodes); err != nil {
			slog.Error("failed to write episodes", "error", err)
		}
		g.episodes = g.episodes[:0]
	}

	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	rows := g.collector.Flush(g.tick, g.samplePopulations())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(rows)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		for _, s := range rows {
			s.LogStats()
		}
		perfStats.LogStats()
		g.logPools()
	}

	if err := g.outputManager.WriteTelemetry(rows); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, g.tick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
	g.writeMetrics()
}

// samplePopulations collects per-species counts and trait values of active
// instances, indexed by Kind.
func (g *Game) samplePopulations() []telemetry.PopulationSample {
	samples := make([]telemetry.PopulationSample, len(g.species))

	query := g.idFilter.Query()
	for query.Next() {
		id := query.Get()
		if id.Phase == components.PhaseObserving && int(id.Kind) < len(samples) {
			samples[id.Kind].Count++
		}
	}

	agents := g.agentFilter.Query()
	for agents.Next() {
		id, lb := agents.Get()
		if id.Phase != components.PhaseObserving || int(id.Kind) >= len(samples) {
			continue
		}
		s := &samples[id.Kind]
		s.Life = append(s.Life, float64(lb.Life))
		s.Satiety = append(s.Satiety, float64(lb.Satiety))
		s.Speed = append(s.Speed, float64(lb.Speed))

		g.lifetime.UpdateLife(id.ID, lb.Life)
	}
	return samples
}

// writeMetrics appends the current metric values to metrics.csv.
func (g *Game) writeMetrics() {
	snap := g.metrics.Snapshot()
	records := make([]telemetry.MetricRecord, len(snap))
	for i, s := range snap {
		records[i] = telemetry.MetricRecord{
			Tick:  g.tick,
			Name:  s.Name,
			Kind:  s.Kind.String(),
			Value: s.Value,
		}
	}
	if err := g.outputManager.WriteMetrics(records); err != nil {
		slog.Error("failed to write metrics", "error", err)
	}
}
