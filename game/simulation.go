package game

import (
	"errors"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/agent"
	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/policy"
	"github.com/pthm-cable/evol/telemetry"
)

// Step advances the simulation by one tick:
// observe and act, move, metabolize, resolve contacts, recycle ended
// episodes, keep populations up and flush telemetry.
func (g *Game) Step() error {
	dt := g.cfg.Derived.DT32
	g.perfCollector.StartTick()
	g.ctrl.BeginStep(g.tick)

	g.perfCollector.StartPhase(telemetry.PhaseObserveAct)
	g.contacts.Rebuild() // rays see current positions
	g.collectActive()
	for _, e := range g.active {
		obs := g.ctrl.CollectObservations(e)
		g.ctrl.Act(e, g.policyFor(e).Act(obs), dt)
	}

	g.perfCollector.StartPhase(telemetry.PhaseMotion)
	g.motion.Update(dt)

	g.perfCollector.StartPhase(telemetry.PhaseMetabolism)
	for _, e := range g.active {
		g.ctrl.Step(e, dt)
	}

	g.perfCollector.StartPhase(telemetry.PhaseContacts)
	if err := g.resolveContacts(); err != nil {
		g.perfCollector.EndTick()
		return err
	}

	g.perfCollector.StartPhase(telemetry.PhaseLifecycle)
	g.processBirths()
	if err := g.processTerminations(); err != nil {
		g.perfCollector.EndTick()
		return err
	}

	g.perfCollector.StartPhase(telemetry.PhasePopulation)
	if err := g.maintainPopulation(); err != nil {
		g.perfCollector.EndTick()
		return err
	}

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()
	g.perfCollector.EndTick()
	return nil
}

// collectActive snapshots the observing agents so no query stays open while
// the controller acquires instances.
func (g *Game) collectActive() {
	g.active = g.active[:0]
	query := g.agentFilter.Query()
	for query.Next() {
		id, _ := query.Get()
		if id.Phase == components.PhaseObserving {
			g.active = append(g.active, query.Entity())
		}
	}
}

// policyFor returns the policy of e's current episode, creating it on first use.
func (g *Game) policyFor(e ecs.Entity) policy.Policy {
	id := g.idMap.Get(e)
	p, ok := g.policies[id.ID]
	if !ok {
		p = g.newPolicy(&g.species[id.Kind], g.rng)
		g.policies[id.ID] = p
	}
	return p
}

// resolveContacts dispatches every touching pair to both participants.
// A pool that cannot construct an offspring because its species is at
// capacity skips that birth; any other failure stops the simulation.
func (g *Game) resolveContacts() error {
	g.contacts.Rebuild()
	for _, c := range g.contacts.Find() {
		for _, pair := range [2][2]ecs.Entity{{c.A, c.B}, {c.B, c.A}} {
			err := g.ctrl.OnInteraction(pair[0], pair[1])
			if err == nil {
				continue
			}
			if errors.Is(err, agent.ErrCapacity) {
				slog.Debug("offspring skipped", "tick", g.tick, "error", err)
				continue
			}
			return err
		}
	}
	return nil
}
