package main

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/evol/config"
	"github.com/pthm-cable/evol/metrics"
)

func TestNewOptionsUsesDefaultRegistry(t *testing.T) {
	opts, err := newOptions(cliFlags{seed: 3, stepsPerUpdate: 1, policy: "wander"})
	if err != nil {
		t.Fatalf("newOptions: %v", err)
	}
	if opts.Metrics != metrics.Default() {
		t.Error("run options must report into the process-wide registry")
	}
	if opts.Seed != 3 {
		t.Errorf("seed = %d, want 3", opts.Seed)
	}
}

func TestNewOptionsRejectsBadPolicy(t *testing.T) {
	for _, f := range []cliFlags{
		{policy: "genetic"},
		{policy: "brain", hidden: 0},
	} {
		if _, err := newOptions(f); err == nil {
			t.Errorf("newOptions(%+v) succeeded, want error", f)
		}
	}
}

func TestRunReportsIntoDefaultRegistry(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	opts, err := newOptions(cliFlags{seed: 11, stepsPerUpdate: 1, policy: "wander"})
	if err != nil {
		t.Fatalf("newOptions: %v", err)
	}

	if err := run(cfg, opts, 20); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, ok := metrics.Default().Value("speedHerbivorous"); !ok {
		t.Error("default registry lacks speedHerbivorous after a run")
	}

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "speedHerbivorous") {
		t.Error("scrape output lacks agent gauges")
	}
}
