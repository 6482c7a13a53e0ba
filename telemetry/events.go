// Package telemetry provides population tracking, episode logging and CSV output.
package telemetry

import "github.com/pthm-cable/evol/components"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventBirth EventType = iota
	EventEat
	EventReproduce
	EventEaten
	EventStarve
)

// Event represents a single telemetry event.
type Event struct {
	Type     EventType
	Tick     int32
	EntityID uint32
	Kind     components.Kind

	// Optional fields depending on event type
	TargetID uint32  // prey for eat, parent for birth, partner for reproduce
	Amount   float32 // life gained (eat) or offspring speed (birth)
}

// NewBirthEvent creates a birth event.
func NewBirthEvent(tick int32, childID, parentID uint32, kind components.Kind, speed float32) Event {
	return Event{
		Type:     EventBirth,
		Tick:     tick,
		EntityID: childID,
		Kind:     kind,
		TargetID: parentID,
		Amount:   speed,
	}
}

// NewTerminationEvent maps an episode end reason to its event.
// ok is false for reasons that are not recorded.
func NewTerminationEvent(tick int32, entityID uint32, kind components.Kind, reason components.Transition) (Event, bool) {
	ev := Event{Tick: tick, EntityID: entityID, Kind: kind}
	switch reason {
	case components.TransitionEat:
		ev.Type = EventEat
	case components.TransitionReproduce:
		ev.Type = EventReproduce
	case components.TransitionEaten:
		ev.Type = EventEaten
	case components.TransitionStarved:
		ev.Type = EventStarve
	default:
		return Event{}, false
	}
	return ev, true
}

// String returns the event name used in logs.
func (t EventType) String() string {
	switch t {
	case EventBirth:
		return "birth"
	case EventEat:
		return "eat"
	case EventReproduce:
		return "reproduce"
	case EventEaten:
		return "eaten"
	case EventStarve:
		return "starve"
	default:
		return "unknown"
	}
}
