package game

import "log/slog"

// logPools logs the partition of every pool.
func (g *Game) logPools() {
	for _, p := range g.ctrl.Pools().All() {
		s := p.Stats()
		slog.Info("pool",
			"tick", g.tick,
			"container", p.Container(),
			"available", s.Available,
			"in_use", s.InUse,
			"created", s.Created,
		)
	}
}
