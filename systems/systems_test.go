package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/components"
)

type testWorld struct {
	w      *ecs.World
	bodies *ecs.Map3[components.Position, components.Body, components.Identity]
	movers *ecs.Map4[components.Position, components.Velocity, components.Rotation, components.Identity]
	posMap *ecs.Map[components.Position]
	grid   *SpatialGrid
}

func newTestWorld(width, height float32) *testWorld {
	w := ecs.NewWorld()
	return &testWorld{
		w:      w,
		bodies: ecs.NewMap3[components.Position, components.Body, components.Identity](w),
		movers: ecs.NewMap4[components.Position, components.Velocity, components.Rotation, components.Identity](w),
		posMap: ecs.NewMap[components.Position](w),
		grid:   NewSpatialGrid(width, height, 50),
	}
}

func (tw *testWorld) body(x, y, radius float32, kind components.Kind) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	body := components.Body{Radius: radius}
	id := components.Identity{Kind: kind, Phase: components.PhaseObserving}
	return tw.bodies.NewEntity(&pos, &body, &id)
}

func TestToroidalDelta(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 float32
		wantDX, wantDY float32
	}{
		{"direct", 10, 10, 20, 30, 10, 20},
		{"wrap x", 790, 10, 5, 10, 15, 0},
		{"wrap y", 10, 2, 10, 595, 0, -7},
		{"wrap both", 1, 1, 799, 599, -2, -2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dx, dy := ToroidalDelta(tc.x1, tc.y1, tc.x2, tc.y2, 800, 600)
			if math.Abs(float64(dx-tc.wantDX)) > 1e-4 || math.Abs(float64(dy-tc.wantDY)) > 1e-4 {
				t.Errorf("got (%v, %v), want (%v, %v)", dx, dy, tc.wantDX, tc.wantDY)
			}
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"in range", -2, -2},
		{"past pi", 4, 4 - 2*math.Pi},
		{"many turns", 0.25 + 30*math.Pi, 0.25},
		{"negative turns", -0.25 - 30*math.Pi, -0.25},
		{"+inf", float32(math.Inf(1)), 0},
		{"-inf", float32(math.Inf(-1)), 0},
		{"nan", float32(math.NaN()), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeAngle(tc.in)
			if math.Abs(float64(got-tc.want)) > 1e-3 {
				t.Errorf("normalizeAngle(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
	if got := normalizeAngle(math.MaxFloat32); math.Abs(float64(got)) > math.Pi+1e-6 {
		t.Errorf("normalizeAngle(MaxFloat32) = %v, outside [-pi, pi]", got)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct{ v, size, want float32 }{
		{5, 10, 5},
		{12, 10, 2},
		{-3, 10, 7},
		{10, 10, 0},
		{-10, 10, 0},
	}
	for _, tc := range tests {
		if got := Wrap(tc.v, tc.size); math.Abs(float64(got-tc.want)) > 1e-5 {
			t.Errorf("Wrap(%v, %v) = %v, want %v", tc.v, tc.size, got, tc.want)
		}
	}
}

func TestQueryRadiusWrapsAcrossEdge(t *testing.T) {
	tw := newTestWorld(800, 600)
	self := tw.body(2, 300, 1, 0)
	other := tw.body(797, 300, 1, 0)
	far := tw.body(400, 300, 1, 0)
	for _, e := range []ecs.Entity{self, other, far} {
		p := tw.posMap.Get(e)
		tw.grid.Insert(e, p.X, p.Y)
	}

	got := tw.grid.QueryRadiusInto(nil, 2, 300, 10, self, tw.posMap)
	if len(got) != 1 || got[0].E != other {
		t.Fatalf("expected only the wrapped neighbor, got %d results", len(got))
	}
	if math.Abs(float64(got[0].DX+5)) > 1e-4 {
		t.Errorf("DX = %v, want -5", got[0].DX)
	}
}

func TestQueryRadiusSmallWorldNoDuplicates(t *testing.T) {
	tw := newTestWorld(100, 100)
	self := tw.body(50, 50, 1, 0)
	other := tw.body(10, 10, 1, 0)
	for _, e := range []ecs.Entity{self, other} {
		p := tw.posMap.Get(e)
		tw.grid.Insert(e, p.X, p.Y)
	}

	got := tw.grid.QueryRadiusInto(nil, 50, 50, 200, self, tw.posMap)
	if len(got) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(got))
	}
}

func TestContactsFindsEachPairOnce(t *testing.T) {
	tw := newTestWorld(800, 600)
	a := tw.body(100, 100, 5, 0)
	b := tw.body(108, 100, 4, 1) // touching a
	c := tw.body(300, 300, 5, 0) // alone
	d := tw.body(798, 100, 5, 0) // touching e across the edge
	e := tw.body(3, 100, 3, 2)
	idle := tw.body(101, 100, 5, 0) // overlaps a but is parked
	ecs.NewMap[components.Identity](tw.w).Get(idle).Phase = components.PhaseIdle
	_ = c

	cs := NewContactSystem(tw.w, tw.grid, 5)
	cs.Rebuild()
	got := cs.Find()

	if len(got) != 2 {
		t.Fatalf("expected 2 contacts, got %d: %+v", len(got), got)
	}
	for _, ct := range got {
		if ct.A.ID() >= ct.B.ID() {
			t.Errorf("contact not ordered: %v >= %v", ct.A.ID(), ct.B.ID())
		}
	}
	want := map[[2]ecs.Entity]bool{{a, b}: true, {d, e}: true}
	for _, ct := range got {
		if !want[[2]ecs.Entity{ct.A, ct.B}] {
			t.Errorf("unexpected contact %v-%v", ct.A, ct.B)
		}
	}
}

func TestRayCasterHitsNearest(t *testing.T) {
	tw := newTestWorld(800, 600)
	self := tw.body(100, 100, 4, 0)
	near := tw.body(120, 100, 3, 2)
	tw.body(140, 100, 3, 1) // behind near
	tw.body(100, 130, 3, 1) // off the ray

	cs := NewContactSystem(tw.w, tw.grid, 5)
	cs.Rebuild()
	rc := NewRayCaster(tw.w, tw.grid, []string{"Herbivorous", "Carnivorous", "Herb"}, 5)
	_ = near

	label, dist, ok := rc.From(self).Cast(100, 100, 1, 0, 50)
	if !ok {
		t.Fatal("expected a hit")
	}
	if label != "Herb" {
		t.Errorf("label = %q, want Herb", label)
	}
	if math.Abs(float64(dist-17)) > 1e-3 {
		t.Errorf("dist = %v, want 17", dist)
	}

	if _, _, ok := rc.From(self).Cast(100, 100, -1, 0, 50); ok {
		t.Error("expected a miss looking away")
	}
	if _, _, ok := rc.From(self).Cast(100, 100, 1, 0, 10); ok {
		t.Error("expected a miss with a short ray")
	}
}

func TestMotionWrapsAndSkipsInactive(t *testing.T) {
	tw := newTestWorld(800, 600)
	pos := components.Position{X: 795, Y: 10}
	vel := components.Velocity{X: 10, Y: -40}
	rot := components.Rotation{Heading: 4}
	id := components.Identity{Phase: components.PhaseObserving}
	moving := tw.movers.NewEntity(&pos, &vel, &rot, &id)

	pos2 := components.Position{X: 50, Y: 50}
	id2 := components.Identity{Phase: components.PhaseIdle}
	parked := tw.movers.NewEntity(&pos2, &vel, &rot, &id2)

	NewMotionSystem(tw.w, Bounds{Width: 800, Height: 600}).Update(0.5)

	p := tw.posMap.Get(moving)
	if math.Abs(float64(p.X-0)) > 1e-3 || math.Abs(float64(p.Y-590)) > 1e-3 {
		t.Errorf("moving at (%v, %v), want (0, 590)", p.X, p.Y)
	}
	if h := ecs.NewMap[components.Rotation](tw.w).Get(moving).Heading; h > math.Pi || h < -math.Pi {
		t.Errorf("heading %v not normalized", h)
	}
	if p := tw.posMap.Get(parked); p.X != 50 || p.Y != 50 {
		t.Errorf("parked entity moved to (%v, %v)", p.X, p.Y)
	}
}
