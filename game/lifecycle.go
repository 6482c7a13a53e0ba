package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/agent"
	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/policy"
	"github.com/pthm-cable/evol/pool"
	"github.com/pthm-cable/evol/systems"
	"github.com/pthm-cable/evol/telemetry"
)

// spawnInitialPopulation prewarms every pool and places the starting
// populations at random positions.
func (g *Game) spawnInitialPopulation() error {
	for i := range g.species {
		sp := &g.species[i]
		pc := g.cfg.Species[i].Population

		p, err := g.ctrl.Pool(sp.Kind)
		if err != nil {
			return err
		}
		if err := p.Prewarm(pc.Prewarm); err != nil {
			return fmt.Errorf("prewarming %s: %w", sp.Name, err)
		}

		for n := 0; n < pc.Initial; n++ {
			if _, err := g.spawnRandom(sp.Kind); err != nil {
				return fmt.Errorf("spawning %s: %w", sp.Name, err)
			}
		}
		slog.Info("population spawned", "species", sp.Name, "count", pc.Initial, "pool", p.String())
	}
	return nil
}

// spawnRandom acquires an instance of kind at a random position.
func (g *Game) spawnRandom(kind components.Kind) (ecs.Entity, error) {
	x := g.rng.Float32() * g.cfg.Derived.WorldW32
	y := g.rng.Float32() * g.cfg.Derived.WorldH32
	return g.spawn(kind, x, y, g.randomHeading(), 0, 0)
}

// spawn acquires an instance of kind and places it in the world.
func (g *Game) spawn(kind components.Kind, x, y, heading float32, parentID uint32, generation int) (ecs.Entity, error) {
	e, err := g.ctrl.Acquire(kind)
	if err != nil {
		return ecs.Entity{}, err
	}

	// Acquire may have created the entity; fetch components afterwards.
	pos := g.posMap.Get(e)
	pos.X = systems.Wrap(x, g.cfg.Derived.WorldW32)
	pos.Y = systems.Wrap(y, g.cfg.Derived.WorldH32)
	if g.rotMap.Has(e) {
		g.rotMap.Get(e).Heading = heading
	}
	if g.epMap.Has(e) {
		g.epMap.Get(e).Generation = generation
		g.lifetime.Register(g.idMap.Get(e).ID, kind, g.tick, parentID, generation)
	}
	return e, nil
}

// processBirths registers offspring created during contact resolution.
// Runs before terminations so parents and their policies are still tracked.
func (g *Game) processBirths() {
	for _, b := range g.ctrl.Births() {
		if h, ok := g.policies[b.ParentID].(policy.Heritable); ok {
			g.policies[b.ChildID] = h.Inherit(g.rng)
		}
		g.lifetime.Register(b.ChildID, b.Kind, b.Tick, b.ParentID, b.Generation)
		g.lifetime.RecordChild(b.ParentID)
		g.lifetime.RecordChild(b.PartnerID)
		g.collector.Record(telemetry.NewBirthEvent(b.Tick, b.ChildID, b.ParentID, b.Kind, b.Speed))
	}
}

// processTerminations releases every instance whose episode ended this step.
// Instances that ate or reproduced start a new episode in place and keep
// their policy; eaten and starved instances stay in their pool until the
// population floor refills.
func (g *Game) processTerminations() error {
	dt := g.cfg.Derived.DT32
	for _, t := range g.ctrl.Terminations() {
		if ev, ok := telemetry.NewTerminationEvent(t.Tick, t.ID, t.Kind, t.Reason); ok {
			g.collector.Record(ev)
		}

		rec := telemetry.EpisodeRecord{
			Tick:          t.Tick,
			ID:            t.ID,
			Species:       g.species[t.Kind].Name,
			Reason:        t.Reason.String(),
			Steps:         t.Episode.Steps,
			Reward:        t.Episode.Reward,
			Eats:          t.Episode.EatCount,
			Reproductions: t.Episode.ReproductionCount,
			FinalLife:     t.Life,
			Speed:         t.Speed,
		}
		if g.lifetime.Close(&rec, dt) {
			g.episodes = append(g.episodes, rec)
		}

		p, hasPolicy := g.policies[t.ID]
		delete(g.policies, t.ID)
		if err := g.ctrl.Release(t.Entity); err != nil {
			var le *pool.LifecycleError
			if errors.As(err, &le) {
				slog.Error("release rejected", "id", t.ID, "error", err)
				continue
			}
			return err
		}

		if t.Reason.Fatal() {
			continue
		}
		e, err := g.spawn(t.Kind, t.Position.X, t.Position.Y, g.randomHeading(), 0, t.Episode.Generation)
		if err != nil {
			if !errors.Is(err, agent.ErrCapacity) {
				return err
			}
			slog.Debug("respawn skipped", "id", t.ID, "error", err)
			continue
		}
		if hasPolicy {
			g.policies[g.idMap.Get(e).ID] = p
		}
	}
	return nil
}

// maintainPopulation refills species below their floor and regrows passive
// species toward their cap.
func (g *Game) maintainPopulation() error {
	for i := range g.species {
		kind := g.species[i].Kind
		pc := g.cfg.Species[i].Population

		p, err := g.ctrl.Pool(kind)
		if err != nil {
			return err
		}
		count := p.Stats().InUse

		want := 0
		if pc.Min > 0 && count < pc.Min {
			want = pc.Min - count
		}
		if want == 0 && pc.Max > 0 && pc.RegrowInterval > 0 &&
			g.tick%int32(pc.RegrowInterval) == 0 && count < pc.Max {
			want = 1
		}

		for n := 0; n < want; n++ {
			if _, err := g.spawnRandom(kind); err != nil {
				if errors.Is(err, agent.ErrCapacity) {
					break
				}
				return err
			}
		}
	}
	return nil
}
