package systems

import "math"

// normalizeAngle wraps an angle to [-Pi, Pi]. Non-finite angles become 0.
func normalizeAngle(angle float32) float32 {
	r := math.Remainder(float64(angle), 2*math.Pi)
	if math.IsNaN(r) {
		return 0
	}
	return float32(r)
}

// Wrap returns v wrapped into [0, size).
func Wrap(v, size float32) float32 {
	v = float32(math.Mod(float64(v), float64(size)))
	if v < 0 {
		v += size
	}
	if v >= size {
		v = 0
	}
	return v
}
