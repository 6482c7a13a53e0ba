// Package systems provides the ECS systems that stand in for the physics
// engine: spatial indexing, motion, contact detection and ray casting.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/components"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	DX, DY float32 // Toroidal delta from query origin
	DistSq float32 // Squared distance (avoid sqrt in hot path)
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid.
// The world wraps at its edges.
type SpatialGrid struct {
	cellW  float32
	cellH  float32
	cols   int
	rows   int
	width  float32
	height float32
	cells  [][]ecs.Entity // flat grid of entity lists
}

// NewSpatialGrid creates a spatial grid covering the given world size.
// Cells are stretched so they tile the world exactly, which keeps
// wrap-around neighbors one cell apart.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := max(1, int(width/cellSize))
	rows := max(1, int(height/cellSize))

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &SpatialGrid{
		cellW:  width / float32(cols),
		cellH:  height / float32(rows),
		cols:   cols,
		rows:   rows,
		width:  width,
		height: height,
		cells:  cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) {
	idx := g.cellIndex(x, y)
	if idx >= 0 && idx < len(g.cells) {
		g.cells[idx] = append(g.cells[idx], e)
	}
}

// Width returns the world width the grid wraps at.
func (g *SpatialGrid) Width() float32 { return g.width }

// Height returns the world height the grid wraps at.
func (g *SpatialGrid) Height() float32 { return g.height }

// MaxQueryResults caps the number of neighbors returned by spatial queries.
// This prevents density spikes from causing unbounded work.
const MaxQueryResults = 128

// QueryRadiusInto finds entities within radius and appends to dst (up to MaxQueryResults).
// Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, x, y, radius float32, exclude ecs.Entity, posMap *ecs.Map[components.Position]) []Neighbor {
	centerCol, centerRow := g.cell(x, y)
	col0, ncols := span(centerCol, int(radius/g.cellW)+1, g.cols)
	row0, nrows := span(centerRow, int(radius/g.cellH)+1, g.rows)

	radiusSq := radius * radius

	for dc := 0; dc < ncols; dc++ {
		for dr := 0; dr < nrows; dr++ {
			// Toroidal wrap
			col := ((col0+dc)%g.cols + g.cols) % g.cols
			row := ((row0+dr)%g.rows + g.rows) % g.rows
			idx := row*g.cols + col

			for _, e := range g.cells[idx] {
				if e == exclude {
					continue
				}

				pos := posMap.Get(e)
				dx, dy := ToroidalDelta(x, y, pos.X, pos.Y, g.width, g.height)
				distSq := dx*dx + dy*dy

				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: e, DX: dx, DY: dy, DistSq: distSq})
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}

	return dst
}

// span returns the first cell and cell count of a window of half-width r
// around center. Windows wider than the grid visit each cell once.
func span(center, r, n int) (first, count int) {
	if 2*r+1 >= n {
		return 0, n
	}
	return center - r, 2*r + 1
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float32) int {
	col, row := g.cell(x, y)
	return row*g.cols + col
}

// cell returns the clamped column and row of a world position.
func (g *SpatialGrid) cell(x, y float32) (col, row int) {
	col = int(x / g.cellW)
	row = int(y / g.cellH)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// ToroidalDelta returns the shortest path delta from (x1,y1) to (x2,y2).
func ToroidalDelta(x1, y1, x2, y2, w, h float32) (dx, dy float32) {
	dx = x2 - x1
	dy = y2 - y1

	if dx > w/2 {
		dx -= w
	} else if dx < -w/2 {
		dx += w
	}
	if dy > h/2 {
		dy -= h
	} else if dy < -h/2 {
		dy += h
	}

	return dx, dy
}
