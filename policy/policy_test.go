package policy

import (
	"math/rand"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name string
		in   Action
		want Action
	}{
		{"in range", Action{Turn: 0.5, Throttle: 0.5}, Action{Turn: 0.5, Throttle: 0.5}},
		{"turn high", Action{Turn: 3, Throttle: 0.5}, Action{Turn: 1, Throttle: 0.5}},
		{"turn low", Action{Turn: -3, Throttle: 0.5}, Action{Turn: -1, Throttle: 0.5}},
		{"throttle negative", Action{Turn: 0, Throttle: -1}, Action{Turn: 0, Throttle: 0}},
		{"throttle high", Action{Turn: 0, Throttle: 2}, Action{Turn: 0, Throttle: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWanderStaysInRange(t *testing.T) {
	w := NewWander(rand.New(rand.NewSource(1)))
	for i := 0; i < 1000; i++ {
		a := w.Act(nil)
		if a.Turn < -1 || a.Turn > 1 {
			t.Fatalf("turn %v out of range at step %d", a.Turn, i)
		}
		if a.Throttle != w.Cruise {
			t.Fatalf("throttle %v, want cruise %v", a.Throttle, w.Cruise)
		}
	}
}

func TestFixed(t *testing.T) {
	var p Policy = Fixed{Turn: 2, Throttle: 0.3}
	if got := p.Act(nil); got != (Action{Turn: 1, Throttle: 0.3}) {
		t.Errorf("Fixed.Act() = %+v", got)
	}
}
