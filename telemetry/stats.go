package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one species over a time window.
// One row is written per species per window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Species         string  `csv:"species"`

	// Population at window end
	Count int `csv:"count"`

	// Events during window
	Births        int `csv:"births"`
	Eats          int `csv:"eats"`
	Reproductions int `csv:"reproductions"`
	Eaten         int `csv:"eaten"`
	Starved       int `csv:"starved"`

	// Trait distributions (sampled at window end)
	LifeMean    float64 `csv:"life_mean"`
	LifeStd     float64 `csv:"life_std"`
	LifeP10     float64 `csv:"life_p10"`
	LifeP50     float64 `csv:"life_p50"`
	LifeP90     float64 `csv:"life_p90"`
	SatietyMean float64 `csv:"satiety_mean"`
	SpeedMean   float64 `csv:"speed_mean"`
	SpeedStd    float64 `csv:"speed_std"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes mean, standard deviation and empirical percentiles.
// An empty sample yields zeros; a single value has zero spread.
func Summarize(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	d := Distribution{
		Mean: stat.Mean(sorted, nil),
		P10:  stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.90, stat.Empirical, sorted, nil),
	}
	if n > 1 {
		d.Std = stat.StdDev(sorted, nil)
	}
	if math.IsNaN(d.Std) {
		d.Std = 0
	}
	return d
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("species", s.Species),
		slog.Int("count", s.Count),
		slog.Int("births", s.Births),
		slog.Int("eats", s.Eats),
		slog.Int("reproductions", s.Reproductions),
		slog.Int("eaten", s.Eaten),
		slog.Int("starved", s.Starved),
		slog.Float64("life_mean", s.LifeMean),
		slog.Float64("life_std", s.LifeStd),
		slog.Float64("life_p10", s.LifeP10),
		slog.Float64("life_p50", s.LifeP50),
		slog.Float64("life_p90", s.LifeP90),
		slog.Float64("satiety_mean", s.SatietyMean),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"species", s.Species,
		"count", s.Count,
		"births", s.Births,
		"eats", s.Eats,
		"reproductions", s.Reproductions,
		"eaten", s.Eaten,
		"starved", s.Starved,
		"life_mean", s.LifeMean,
		"life_p50", s.LifeP50,
		"speed_mean", s.SpeedMean,
	)
}
