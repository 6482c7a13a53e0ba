package perception

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wallCaster reports a hit on anything crossing x = wallX.
type wallCaster struct {
	wallX float32
	label string
}

func (w wallCaster) Cast(x, y, dx, dy, length float32) (string, float32, bool) {
	if dx <= 1e-6 {
		return "", 0, false
	}
	d := (w.wallX - x) / dx
	if d < 0 || d > length {
		return "", 0, false
	}
	return w.label, d, true
}

func TestSize(t *testing.T) {
	assert.Equal(t, 7*(4+2)+2, Size(7, 4, 2))
	assert.Equal(t, 0, Size(0, 3, 0))
}

func TestRayLengthIsFixed(t *testing.T) {
	labels := []string{"Herbivorous", "Carnivorous", "Herb"}
	angles := []float32{0, 45, 90, 135, 180, 110, 70}

	for _, c := range []Caster{nil, wallCaster{wallX: 10, label: "Herb"}, wallCaster{wallX: 1000, label: "Rock"}} {
		r := Ray{Caster: c, Heading: 0}
		got := r.Perceive(50, angles, labels, 0, 0, 1, 50)
		assert.Len(t, got, Size(len(angles), len(labels), 2))
	}
}

func TestRayEncodesHitAndMiss(t *testing.T) {
	labels := []string{"Herbivorous", "Herb"}
	// Heading +X: 90 degrees looks at the wall, 270 looks away from it
	r := Ray{Caster: wallCaster{wallX: 25, label: "Herb"}, Heading: 0}
	got := r.Perceive(50, []float32{90, 270}, labels, 0, 0, 7)
	require.Len(t, got, 2*4+1)

	forward := got[0:4]
	assert.Equal(t, []float32{0, 1, 0}, forward[:3])
	assert.InDelta(t, 0.5, forward[3], 1e-5)

	back := got[4:8]
	assert.Equal(t, []float32{0, 0, 1, 0}, back)

	assert.Equal(t, float32(7), got[8])
}

func TestRayUnknownLabelIsMiss(t *testing.T) {
	r := Ray{Caster: wallCaster{wallX: 5, label: "Ground"}, Heading: float32(math.Pi / 4)}
	got := r.Perceive(50, []float32{90}, []string{"Herb"}, 0, 0)
	assert.Equal(t, []float32{0, 1, 0}, got)
}

func TestRayStartOffsetShortensRay(t *testing.T) {
	r := Ray{Caster: wallCaster{wallX: 30, label: "Herb"}}
	got := r.Perceive(50, []float32{90}, []string{"Herb"}, 10, 0)
	// origin at x=10, length 40, wall 20 away
	assert.InDelta(t, 0.5, got[2], 1e-5)
}
