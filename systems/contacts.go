package systems

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/components"
)

// Contact is an unordered pair of touching entities, stored with A.ID() < B.ID().
type Contact struct {
	A, B ecs.Entity
}

// ContactSystem indexes active entities in a spatial grid and reports
// overlapping bodies. It stands in for an engine's collision callbacks.
type ContactSystem struct {
	grid      *SpatialGrid
	filter    *ecs.Filter3[components.Position, components.Body, components.Identity]
	posMap    *ecs.Map[components.Position]
	bodyMap   *ecs.Map[components.Body]
	maxRadius float32

	active    []ecs.Entity
	neighbors []Neighbor
	contacts  []Contact
}

// NewContactSystem creates a contact system over grid. maxRadius is the
// largest body radius in the world.
func NewContactSystem(w *ecs.World, grid *SpatialGrid, maxRadius float32) *ContactSystem {
	return &ContactSystem{
		grid:      grid,
		filter:    ecs.NewFilter3[components.Position, components.Body, components.Identity](w),
		posMap:    ecs.NewMap[components.Position](w),
		bodyMap:   ecs.NewMap[components.Body](w),
		maxRadius: maxRadius,
	}
}

// Grid returns the spatial grid the system maintains.
func (s *ContactSystem) Grid() *SpatialGrid { return s.grid }

// Rebuild clears the grid and inserts every observing entity.
func (s *ContactSystem) Rebuild() {
	s.grid.Clear()
	s.active = s.active[:0]

	query := s.filter.Query()
	for query.Next() {
		pos, _, id := query.Get()
		if id.Phase != components.PhaseObserving {
			continue
		}
		e := query.Entity()
		s.grid.Insert(e, pos.X, pos.Y)
		s.active = append(s.active, e)
	}
}

// Find returns all touching pairs among the entities inserted by the last
// Rebuild, sorted by (A, B) id. The slice is reused by the next call.
func (s *ContactSystem) Find() []Contact {
	s.contacts = s.contacts[:0]

	for _, e := range s.active {
		pos := s.posMap.Get(e)
		r := s.bodyMap.Get(e).Radius

		s.neighbors = s.grid.QueryRadiusInto(s.neighbors[:0], pos.X, pos.Y, r+s.maxRadius, e, s.posMap)
		for _, n := range s.neighbors {
			if n.E.ID() <= e.ID() {
				continue
			}
			reach := r + s.bodyMap.Get(n.E).Radius
			if n.DistSq <= reach*reach {
				s.contacts = append(s.contacts, Contact{A: e, B: n.E})
			}
		}
	}

	sort.Slice(s.contacts, func(i, j int) bool {
		a, b := s.contacts[i], s.contacts[j]
		if a.A.ID() != b.A.ID() {
			return a.A.ID() < b.A.ID()
		}
		return a.B.ID() < b.B.ID()
	})
	return s.contacts
}
