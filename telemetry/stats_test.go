package telemetry

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantP10  float64
		wantP50  float64
		wantStd  float64
	}{
		{"empty slice", nil, 0, 0, 0, 0},
		{"single element", []float64{5}, 5, 5, 5, 0},
		{"one to ten", []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 5.5, 1, 5, 3.0277},
		{"constant", []float64{2, 2, 2, 2}, 2, 2, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			if math.Abs(got.Mean-tt.wantMean) > 0.001 {
				t.Errorf("mean = %v, want %v", got.Mean, tt.wantMean)
			}
			if math.Abs(got.P10-tt.wantP10) > 0.001 {
				t.Errorf("p10 = %v, want %v", got.P10, tt.wantP10)
			}
			if math.Abs(got.P50-tt.wantP50) > 0.001 {
				t.Errorf("p50 = %v, want %v", got.P50, tt.wantP50)
			}
			if math.Abs(got.Std-tt.wantStd) > 0.001 {
				t.Errorf("std = %v, want %v", got.Std, tt.wantStd)
			}
		})
	}
}

func TestSummarizeDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}
