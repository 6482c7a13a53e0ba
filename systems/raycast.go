package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/perception"
)

// RayCaster answers ray queries against the bodies in a spatial grid.
// The grid must be current; rays see whatever the last rebuild inserted.
type RayCaster struct {
	grid      *SpatialGrid
	posMap    *ecs.Map[components.Position]
	bodyMap   *ecs.Map[components.Body]
	idMap     *ecs.Map[components.Identity]
	labels    []string // perception label by Kind
	maxRadius float32

	candidates []Neighbor
}

// NewRayCaster creates a caster. labels maps each Kind to the category
// label rays report for it.
func NewRayCaster(w *ecs.World, grid *SpatialGrid, labels []string, maxRadius float32) *RayCaster {
	return &RayCaster{
		grid:      grid,
		posMap:    ecs.NewMap[components.Position](w),
		bodyMap:   ecs.NewMap[components.Body](w),
		idMap:     ecs.NewMap[components.Identity](w),
		labels:    labels,
		maxRadius: maxRadius,
	}
}

// From returns a Caster that ignores self.
func (r *RayCaster) From(self ecs.Entity) perception.Caster {
	return rayView{r: r, self: self}
}

type rayView struct {
	r    *RayCaster
	self ecs.Entity
}

// Cast implements perception.Caster. (dirX, dirY) must be a unit vector.
func (v rayView) Cast(x, y, dirX, dirY, length float32) (string, float32, bool) {
	r := v.r
	// Every body the segment can touch lies within this circle around its midpoint
	mx := Wrap(x+dirX*length/2, r.grid.Width())
	my := Wrap(y+dirY*length/2, r.grid.Height())
	r.candidates = r.grid.QueryRadiusInto(r.candidates[:0], mx, my, length/2+r.maxRadius, v.self, r.posMap)

	best := float32(math.MaxFloat32)
	var hit ecs.Entity
	found := false
	for _, n := range r.candidates {
		// Body center relative to the ray origin
		cx := n.DX + dirX*length/2
		cy := n.DY + dirY*length/2
		rad := r.bodyMap.Get(n.E).Radius

		along := cx*dirX + cy*dirY
		perpSq := cx*cx + cy*cy - along*along
		if perpSq > rad*rad {
			continue
		}
		t := along - float32(math.Sqrt(float64(rad*rad-perpSq)))
		if t < 0 {
			if along < 0 && cx*cx+cy*cy > rad*rad {
				continue // behind the origin
			}
			t = 0 // origin inside the body
		}
		if t <= length && t < best {
			best, hit, found = t, n.E, true
		}
	}
	if !found {
		return "", 0, false
	}

	kind := r.idMap.Get(hit).Kind
	if int(kind) >= len(r.labels) {
		return "", 0, false
	}
	return r.labels[kind], best, true
}
