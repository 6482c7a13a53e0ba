package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// tuner wraps an evaluation function as a CMA-ES objective. It records every
// evaluation to a CSV log and keeps the best one seen.
type tuner struct {
	params   *ParamVector
	evaluate func(raw []float64) Evaluation
	maxEvals int
	dt       float64 // seconds per tick, for reporting

	log      *csv.Writer
	progress io.Writer
	species  []string // log columns, fixed by the first evaluation

	evals     int
	start     time.Time
	best      Evaluation
	bestRaw   []float64
	bestIndex int
}

func newTuner(params *ParamVector, evaluate func([]float64) Evaluation, maxEvals int, dt float64, log, progress io.Writer) *tuner {
	return &tuner{
		params:   params,
		evaluate: evaluate,
		maxEvals: maxEvals,
		dt:       dt,
		log:      csv.NewWriter(log),
		progress: progress,
		start:    time.Now(),
	}
}

// objective evaluates a normalized point. Values are clamped before use, so
// the logged and saved parameters are the ones the simulation ran with.
func (t *tuner) objective(x []float64) float64 {
	raw := t.params.Clamp(t.params.Denormalize(x))
	ev := t.evaluate(raw)
	t.evals++

	if t.bestRaw == nil || ev.Fitness < t.best.Fitness {
		t.best = ev
		t.bestRaw = append([]float64(nil), raw...)
		t.bestIndex = t.evals
	}

	if err := t.record(ev, raw); err != nil {
		fmt.Fprintf(t.progress, "log write failed: %v\n", err)
	}
	fmt.Fprintf(t.progress, "eval %d/%d %s | best #%d | %s\n",
		t.evals, t.maxEvals, t.summary(ev), t.bestIndex, t.eta())
	return ev.Fitness
}

// record appends one evaluation row, writing the header first.
func (t *tuner) record(ev Evaluation, raw []float64) error {
	if t.evals == 1 {
		for _, o := range ev.Species {
			t.species = append(t.species, o.Species)
		}
		header := []string{"eval", "fitness", "quality", "failed"}
		for _, name := range t.species {
			header = append(header, name+"_survival_sec", name+"_extinctions", name+"_mean_count")
		}
		for _, spec := range t.params.Specs {
			header = append(header, spec.Name)
		}
		if err := t.log.Write(header); err != nil {
			return err
		}
	}

	row := []string{
		strconv.Itoa(t.evals),
		formatFloat(ev.Fitness),
		formatFloat(ev.Quality),
		strconv.Itoa(ev.Failed),
	}
	for _, name := range t.species {
		o, _ := ev.Outcome(name)
		row = append(row, formatFloat(o.Ticks*t.dt), strconv.Itoa(o.Extinctions), formatFloat(o.MeanCount))
	}
	for _, v := range raw {
		row = append(row, formatFloat(v))
	}
	if err := t.log.Write(row); err != nil {
		return err
	}
	t.log.Flush()
	return t.log.Error()
}

// summary is the one-line form of an evaluation, species in config order.
func (t *tuner) summary(ev Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "quality=%.2f", ev.Quality)
	for _, o := range ev.Species {
		fmt.Fprintf(&b, " %s=%.0fs", o.Species, o.Ticks*t.dt)
		if o.Extinctions > 0 {
			fmt.Fprintf(&b, "(%d/%d extinct)", o.Extinctions, ev.Seeds)
		}
	}
	if ev.Failed > 0 {
		fmt.Fprintf(&b, " failed=%d", ev.Failed)
	}
	return b.String()
}

func (t *tuner) eta() string {
	elapsed := time.Since(t.start)
	remaining := time.Duration(t.maxEvals-t.evals) * (elapsed / time.Duration(t.evals))
	return fmt.Sprintf("elapsed %s eta %s", elapsed.Round(time.Second), max(remaining, 0).Round(time.Second))
}

// report writes the best evaluation as a per-species table followed by
// its parameters.
func (t *tuner) report(w io.Writer) error {
	if t.bestRaw == nil {
		return fmt.Errorf("no evaluation completed")
	}
	fmt.Fprintf(w, "best: eval #%d of %d, quality %.2f, %d/%d seeds failed\n\n",
		t.bestIndex, t.evals, t.best.Quality, t.best.Failed, t.best.Seeds)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "species\tsurvival\textinct\tmean count")
	for _, o := range t.best.Species {
		fmt.Fprintf(tw, "%s\t%.0fs\t%d/%d\t%.1f\n", o.Species, o.Ticks*t.dt, o.Extinctions, t.best.Seeds, o.MeanCount)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "parameter\tvalue")
	for i, spec := range t.params.Specs {
		fmt.Fprintf(tw, "%s\t%.6f\n", spec.Name, t.bestRaw[i])
	}
	return tw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
