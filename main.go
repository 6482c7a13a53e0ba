package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/evol/config"
	"github.com/pthm-cable/evol/game"
	"github.com/pthm-cable/evol/metrics"
)

// cliFlags holds the parsed command line.
type cliFlags struct {
	logStats       bool
	statsWindow    float64
	outputDir      string
	seed           int64
	stepsPerUpdate int
	policy         string
	hidden         int
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call")
	policyName := flag.String("policy", "wander", "Agent policy: wander or brain")
	hidden := flag.Int("hidden", 16, "Hidden layer size for -policy brain")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty = off)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	opts, err := newOptions(cliFlags{
		logStats:       *logStats,
		statsWindow:    *statsWindow,
		outputDir:      *outputDir,
		seed:           *seed,
		stepsPerUpdate: *stepsPerUpdate,
		policy:         *policyName,
		hidden:         *hidden,
	})
	if err != nil {
		slog.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr)
		defer srv.Close()
	}

	if err := run(cfg, opts, int32(*maxTicks)); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

// newOptions builds game options from the command line. Real runs report
// into the process-wide metrics registry.
func newOptions(f cliFlags) (game.Options, error) {
	seed := f.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts := game.Options{
		Seed:           seed,
		LogStats:       f.logStats,
		StatsWindowSec: f.statsWindow,
		OutputDir:      f.outputDir,
		StepsPerUpdate: f.stepsPerUpdate,
		Metrics:        metrics.Default(),
	}
	switch f.policy {
	case "wander":
		opts.Policy = game.WanderPolicies
	case "brain":
		if f.hidden <= 0 {
			return game.Options{}, fmt.Errorf("hidden layer size must be positive, got %d", f.hidden)
		}
		opts.Policy = game.BrainPolicies(f.hidden)
	default:
		return game.Options{}, fmt.Errorf("unknown policy %q", f.policy)
	}
	return opts, nil
}

// serveMetrics exposes the Prometheus default registry at /metrics.
func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return srv
}

func run(cfg *config.Config, opts game.Options, maxTicks int32) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := game.NewGameWithOptions(cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := g.Unload(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	slog.Info("starting simulation",
		"seed", opts.Seed,
		"species", len(cfg.Species),
		"max_ticks", maxTicks,
		"steps_per_update", opts.StepsPerUpdate,
	)

	for {
		if err := g.UpdateHeadless(); err != nil {
			return err
		}

		if maxTicks > 0 && g.Tick() >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return nil
		}
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", g.Tick())
			return nil
		}
	}
}
