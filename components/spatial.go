package components

import "math"

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float32
}

// Rotation represents an entity's heading and angular velocity.
type Rotation struct {
	Heading float32 // radians, 0 = +X
	AngVel  float32 // radians per second
}

// Forward returns the unit vector the heading points along.
func (r Rotation) Forward() (x, y float32) {
	s, c := math.Sincos(float64(r.Heading))
	return float32(c), float32(s)
}

// Local expresses a world-frame velocity in the entity frame:
// lateral is positive to the right of the heading, forward along it.
func (r Rotation) Local(v Velocity) (lateral, forward float32) {
	fx, fy := r.Forward()
	forward = v.X*fx + v.Y*fy
	lateral = v.X*fy - v.Y*fx
	return lateral, forward
}
