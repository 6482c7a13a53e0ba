// Package components defines ECS components for the simulation.
package components

// Kind indexes a configured species (config.Config.Species). It is the tag that
// selects per-species behaviour in the agent controller.
type Kind uint8

// Phase is the lifecycle state of a pooled instance.
type Phase uint8

const (
	PhaseIdle       Phase = iota // parked in its pool, not in use
	PhaseObserving               // active, acting and reacting to contacts
	PhaseTerminated              // episode over, waiting for release
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseObserving:
		return "observing"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

// Transition records the last state change an instance went through.
type Transition uint8

const (
	TransitionNone Transition = iota
	TransitionEat
	TransitionReproduce
	TransitionEaten
	TransitionStarved
)

// String returns the transition name used in logs and CSV output.
func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionEat:
		return "eat"
	case TransitionReproduce:
		return "reproduce"
	case TransitionEaten:
		return "eaten"
	case TransitionStarved:
		return "starved"
	}
	return "unknown"
}

// Fatal reports whether the transition ends the instance's life rather than just its episode.
func (t Transition) Fatal() bool {
	return t == TransitionEaten || t == TransitionStarved
}

// Identity ties an entity to its species and to the pool that created it.
// PoolID is a lookup key, not an owning reference.
type Identity struct {
	ID        uint32
	Kind      Kind
	PoolID    int
	Phase     Phase
	Last      Transition
	Container string // pool container while parked, empty while in the world
	Uses      int    // number of acquisitions from the pool
}

// Active reports whether the instance is currently in the world.
func (id *Identity) Active() bool {
	return id.Phase != PhaseIdle
}
