// Package metrics provides the counters and gauges agents report into.
//
// Registration is get-or-create by name: asking for a metric that already
// exists returns the existing handle. Metrics are side-effect only and never
// feed back into simulation logic, so a Nop sink is always a valid choice.
//
// A Registry is backed by a Prometheus registerer, so the same metrics can be
// scraped when the host serves them over HTTP.
package metrics

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Counter is a monotonically increasing value.
type Counter interface {
	Inc(amount float64)
}

// Gauge is a value that is overwritten on each Set.
type Gauge interface {
	Set(value float64)
}

// Sink creates or looks up metrics by name.
type Sink interface {
	Counter(name, help string) Counter
	Gauge(name, help string) Gauge
}

// Kind distinguishes counters from gauges in snapshots.
type Kind uint8

const (
	KindCounter Kind = iota
	KindGauge
)

func (k Kind) String() string {
	if k == KindCounter {
		return "counter"
	}
	return "gauge"
}

// Sample is the value of one metric at snapshot time.
type Sample struct {
	Name  string
	Help  string
	Kind  Kind
	Value float64
}

// counter adapts a Prometheus counter, which panics on negative adds.
type counter struct {
	c prometheus.Counter
}

// Inc adds amount. Negative amounts are ignored; counters only go up.
func (c counter) Inc(amount float64) {
	if amount < 0 {
		return
	}
	c.c.Add(amount)
}

// Registry is a Sink safe for concurrent use.
type Registry struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	mu       sync.Mutex
	counters map[string]counter
	gauges   map[string]prometheus.Gauge
}

// NewRegistry creates a registry backed by a fresh Prometheus registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	return NewRegistryFrom(reg, reg)
}

// NewRegistryFrom creates a registry that registers into r and reads values
// back through g. Metrics r already holds are adopted on first request.
func NewRegistryFrom(r prometheus.Registerer, g prometheus.Gatherer) *Registry {
	return &Registry{
		registerer: r,
		gatherer:   g,
		counters:   make(map[string]counter),
		gauges:     make(map[string]prometheus.Gauge),
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, creating it on first use. It
// registers into the Prometheus default registry and is never torn down.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistryFrom(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultReg
}

// Counter returns the counter registered under name, creating it if needed.
// A name taken by a gauge yields a no-op handle.
func (r *Registry) Counter(name, help string) Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.counters[name]; ok {
		return c
	}
	if _, ok := r.gauges[name]; ok {
		conflict(name, KindGauge, KindCounter)
		return nopMetric{}
	}

	pc, err := register(r.registerer, prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: helpOr(help, name)}))
	if err != nil {
		slog.Warn("metric registration failed", "name", name, "error", err)
		return nopMetric{}
	}
	c := counter{c: pc}
	r.counters[name] = c
	return c
}

// Gauge returns the gauge registered under name, creating it if needed.
// A name taken by a counter yields a no-op handle.
func (r *Registry) Gauge(name, help string) Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gauges[name]; ok {
		return g
	}
	if _, ok := r.counters[name]; ok {
		conflict(name, KindCounter, KindGauge)
		return nopMetric{}
	}

	g, err := register(r.registerer, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: helpOr(help, name)}))
	if err != nil {
		slog.Warn("metric registration failed", "name", name, "error", err)
		return nopMetric{}
	}
	r.gauges[name] = g
	return g
}

// register adds m to reg, or returns the collector reg already holds under
// the same descriptor when it has the same type.
func register[M prometheus.Collector](reg prometheus.Registerer, m M) (M, error) {
	err := reg.Register(m)
	if err == nil {
		return m, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(M); ok {
			return existing, nil
		}
	}
	var zero M
	return zero, err
}

func helpOr(help, name string) string {
	if help == "" {
		return name
	}
	return help
}

func conflict(name string, registered, requested Kind) {
	slog.Warn("metric kind conflict", "name", name, "registered", registered.String(), "requested", requested.String())
}

// Value returns the current value of a metric created through r.
func (r *Registry) Value(name string) (float64, bool) {
	for _, s := range r.Snapshot() {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}

// Len returns the number of metrics created through r.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counters) + len(r.gauges)
}

// Snapshot gathers the metrics created through r, sorted by name. Other
// collectors in the backing registry are skipped.
func (r *Registry) Snapshot() []Sample {
	families, err := r.gatherer.Gather()
	if err != nil {
		slog.Warn("gathering metrics", "error", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Sample, 0, len(r.counters)+len(r.gauges))
	for _, mf := range families {
		name := mf.GetName()
		if len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case mf.GetType() == dto.MetricType_COUNTER && r.hasCounter(name):
			out = append(out, Sample{Name: name, Help: mf.GetHelp(), Kind: KindCounter, Value: m.GetCounter().GetValue()})
		case mf.GetType() == dto.MetricType_GAUGE && r.hasGauge(name):
			out = append(out, Sample{Name: name, Help: mf.GetHelp(), Kind: KindGauge, Value: m.GetGauge().GetValue()})
		}
	}
	return out
}

// Caller holds r.mu.
func (r *Registry) hasCounter(name string) bool {
	_, ok := r.counters[name]
	return ok
}

// Caller holds r.mu.
func (r *Registry) hasGauge(name string) bool {
	_, ok := r.gauges[name]
	return ok
}

type nopMetric struct{}

func (nopMetric) Inc(float64) {}
func (nopMetric) Set(float64) {}

type nopSink struct{}

func (nopSink) Counter(string, string) Counter { return nopMetric{} }
func (nopSink) Gauge(string, string) Gauge     { return nopMetric{} }

// Nop discards everything.
var Nop Sink = nopSink{}
