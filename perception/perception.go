// Package perception turns ray sensors into fixed-length feature vectors.
package perception

import "math"

// Adapter is a sensor bound to one observer.
//
// Perceive casts one ray per angle (degrees, 90 = straight ahead) out to
// radius and encodes each hit against labels. extra values are appended
// unchanged. The result length depends only on the argument lengths; see Size.
type Adapter interface {
	Perceive(radius float32, angles []float32, labels []string, startOffset, endOffset float32, extra ...float32) []float32
}

// Size returns the vector length Perceive produces: per ray a one-hot label
// block, a miss flag and a hit distance fraction, then the extras.
func Size(numAngles, numLabels, numExtra int) int {
	return numAngles*(numLabels+2) + numExtra
}

// Caster answers single ray queries against the world.
type Caster interface {
	// Cast returns the label and distance of the nearest thing hit.
	Cast(x, y, dirX, dirY, length float32) (label string, distance float32, ok bool)
}

// Ray is an Adapter that casts from an observer's position along its heading.
type Ray struct {
	Caster  Caster
	X, Y    float32
	Heading float32 // radians
}

// Perceive implements Adapter.
//
// startOffset moves the ray origin forward along the ray; endOffset extends
// its far end. A ray that hits something outside labels reads as a miss.
func (r Ray) Perceive(radius float32, angles []float32, labels []string, startOffset, endOffset float32, extra ...float32) []float32 {
	out := make([]float32, Size(len(angles), len(labels), len(extra)))
	stride := len(labels) + 2
	length := radius - startOffset + endOffset

	for i, deg := range angles {
		block := out[i*stride : (i+1)*stride]
		block[len(labels)] = 1 // miss until proven otherwise
		if r.Caster == nil || length <= 0 {
			continue
		}

		theta := float64(r.Heading) + float64(deg-90)*math.Pi/180
		s, c := math.Sincos(theta)
		dx, dy := float32(c), float32(s)
		ox := r.X + dx*startOffset
		oy := r.Y + dy*startOffset

		label, dist, ok := r.Caster.Cast(ox, oy, dx, dy, length)
		if !ok {
			continue
		}
		idx := indexOf(labels, label)
		if idx < 0 {
			continue
		}
		block[idx] = 1
		block[len(labels)] = 0
		block[len(labels)+1] = dist / length
	}

	copy(out[len(angles)*stride:], extra)
	return out
}

func indexOf(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}
