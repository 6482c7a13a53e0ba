package agent

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/components"
)

// OnInteraction handles a contact reported for self against other and picks
// the transition by other's species:
//
//   - prey of self: self eats
//   - same species with reproduction enabled: self reproduces with other
//   - predator of self: self is eaten
//   - anything else: no-op
//
// Contacts are usually reported in both directions. The pair ledger makes a
// reproduction happen once per pair per step, and lets the mirrored half of
// a predation event through even though the first half already ended one
// participant's episode.
//
// An error is returned only when an offspring could not be acquired; in that
// case nothing has been changed.
func (c *Controller) OnInteraction(self, other ecs.Entity) error {
	if self == other {
		return nil
	}
	sid := c.identity(self)
	if sid == nil || sid.Phase != components.PhaseObserving {
		return nil
	}
	oid := c.identity(other)
	if oid == nil || oid.Phase == components.PhaseIdle {
		return nil
	}
	sp := c.Species(sid.Kind)
	if sp == nil {
		return nil
	}

	key := makePair(self, other)
	prior := c.ledger[key]
	available := oid.Phase == components.PhaseObserving

	switch {
	case sp.Eats(oid.Kind):
		if available || prior == pairPredation {
			c.eat(self, sp, key)
		}
	case oid.Kind == sid.Kind:
		if available && prior == 0 {
			return c.reproduce(self, other, sp, key)
		}
	case sp.EatenBy(oid.Kind):
		if available || prior == pairPredation {
			c.eaten(self, sp, key)
		}
	}
	return nil
}

func (c *Controller) eat(self ecs.Entity, sp *Species, key pairKey) {
	lb := c.living(self)
	if lb == nil {
		return
	}
	in := c.instruments(sp)
	in.eat.Inc(1)
	in.rewardOnEat.Set(float64(sp.Rewards.OnEat))
	in.lifeGain.Set(float64(sp.LifeGain))

	lb.Feed(sp.SatietyGain)
	lb.AddLife(sp.LifeGain)
	c.epMap.Get(self).EatCount++

	c.ledger[key] = pairPredation
	c.AddReward(self, sp.Rewards.OnEat)
	c.Done(self, components.TransitionEat)
}

// eaten also covers passive species, which have no LivingBeing or reward.
func (c *Controller) eaten(self ecs.Entity, sp *Species, key pairKey) {
	if lb := c.living(self); lb != nil {
		lb.Life = lb.MinLife
	}
	c.ledger[key] = pairPredation
	c.AddReward(self, sp.Rewards.OnEaten)
	c.Done(self, components.TransitionEaten)
}

// reproduce requires both lives to exceed self's threshold. The cost is
// charged to both parents once; the reward and the episode end are self's.
func (c *Controller) reproduce(self, partner ecs.Entity, sp *Species, key pairKey) error {
	slb, plb := c.living(self), c.living(partner)
	if slb == nil || plb == nil || !slb.ReproductionEnabled {
		return nil
	}
	threshold := slb.ReproductionThreshold
	if slb.Life <= threshold || plb.Life <= threshold {
		return nil
	}

	evolve := slb.EvolutionEnabled
	meanSpeed := (slb.Speed + plb.Speed) / 2
	parentPos := *c.posMap.Get(self)
	parentRot := *c.rotMap.Get(self)
	generation := c.epMap.Get(self).Generation + 1
	selfID := c.idMap.Get(self).ID
	partnerID := c.idMap.Get(partner).ID

	// Acquire first: a failed acquisition must leave both parents untouched.
	child, err := c.Acquire(sp.Kind)
	if err != nil {
		return fmt.Errorf("reproduce %s: %w", sp.Name, err)
	}

	// Creating the child may have moved component storage; fetch again.
	*c.posMap.Get(child) = parentPos
	c.rotMap.Get(child).Heading = parentRot.Heading
	c.epMap.Get(child).Generation = generation
	clb := c.lbMap.Get(child)
	if evolve {
		clb.Speed = meanSpeed + (c.rng.Float32()*2-1)*sp.SpeedJitter
	}

	c.lbMap.Get(self).AddLife(-sp.ReproductionCost)
	c.lbMap.Get(partner).AddLife(-sp.ReproductionCost)
	c.epMap.Get(self).ReproductionCount++

	in := c.instruments(sp)
	in.reproduction.Inc(1)
	in.rewardOnReproduce.Set(float64(sp.Rewards.OnReproduce))

	c.ledger[key] = pairReproduced
	c.births = append(c.births, Birth{
		Child:      child,
		ChildID:    c.idMap.Get(child).ID,
		ParentID:   selfID,
		PartnerID:  partnerID,
		Kind:       sp.Kind,
		Generation: generation,
		Speed:      clb.Speed,
		Tick:       c.tick,
	})

	c.AddReward(self, sp.Rewards.OnReproduce)
	c.Done(self, components.TransitionReproduce)
	return nil
}
