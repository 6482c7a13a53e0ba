package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/components"
)

// Bounds represents the simulation bounds.
type Bounds struct {
	Width, Height float32
}

// MotionSystem integrates velocity into position for active agents.
// The world is a torus: positions wrap at both edges.
type MotionSystem struct {
	filter *ecs.Filter4[components.Position, components.Velocity, components.Rotation, components.Identity]
	bounds Bounds
}

// NewMotionSystem creates a new motion system.
func NewMotionSystem(w *ecs.World, bounds Bounds) *MotionSystem {
	return &MotionSystem{
		filter: ecs.NewFilter4[components.Position, components.Velocity, components.Rotation, components.Identity](w),
		bounds: bounds,
	}
}

// Update advances every observing agent by dt seconds.
func (s *MotionSystem) Update(dt float32) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, rot, id := query.Get()
		if id.Phase != components.PhaseObserving {
			continue
		}

		pos.X = Wrap(pos.X+vel.X*dt, s.bounds.Width)
		pos.Y = Wrap(pos.Y+vel.Y*dt, s.bounds.Height)
		rot.Heading = normalizeAngle(rot.Heading)
	}
}
