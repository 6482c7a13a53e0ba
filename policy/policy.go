// Package policy chooses actions from observations. The simulation only
// depends on the Policy interface; learning lives elsewhere.
package policy

import "math/rand"

// Action is a continuous steering command.
type Action struct {
	Turn     float32 // [-1, 1], fraction of max turn rate, positive turns left
	Throttle float32 // [0, 1], fraction of the agent's speed trait
}

// Clamp returns a with both fields in range.
func (a Action) Clamp() Action {
	if a.Turn > 1 {
		a.Turn = 1
	} else if a.Turn < -1 {
		a.Turn = -1
	}
	if a.Throttle > 1 {
		a.Throttle = 1
	} else if a.Throttle < 0 {
		a.Throttle = 0
	}
	return a
}

// Policy maps an observation vector to an action.
type Policy interface {
	Act(obs []float32) Action
}

// Wander is a random-walk policy: the turn command drifts by a small random
// amount each call and the throttle stays near cruise.
type Wander struct {
	rng    *rand.Rand
	turn   float32
	Drift  float32 // max change of Turn per call
	Cruise float32 // throttle
}

// NewWander creates a Wander policy drawing from rng.
func NewWander(rng *rand.Rand) *Wander {
	return &Wander{rng: rng, Drift: 0.2, Cruise: 0.8}
}

// Act ignores obs.
func (w *Wander) Act(obs []float32) Action {
	w.turn += (w.rng.Float32()*2 - 1) * w.Drift
	a := Action{Turn: w.turn, Throttle: w.Cruise}.Clamp()
	w.turn = a.Turn
	return a
}

// Fixed always returns the same action.
type Fixed Action

// Act implements Policy.
func (f Fixed) Act([]float32) Action { return Action(f).Clamp() }
