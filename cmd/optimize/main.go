// Command optimize runs a CMA-ES search over species parameters for
// configurations where herbivores and carnivores coexist.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/evol/config"
)

var errMissingOutput = errors.New("-output is required")

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 100000, "Maximum simulation duration in ticks (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := run(*configPath, *outputDir, int32(*maxTicks), *seeds, *maxEvals, *population); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir string, maxTicks int32, seeds, maxEvals, population int) error {
	if outputDir == "" {
		return errMissingOutput
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	baseCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	params := NewParamVector()
	evalSeeds := make([]int64, seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, maxTicks, evalSeeds, configPath)

	logFile, err := os.Create(filepath.Join(outputDir, "optimize_log.csv"))
	if err != nil {
		return err
	}
	defer logFile.Close()

	t := newTuner(params, evaluator.Evaluate, maxEvals, baseCfg.Physics.DT, logFile, os.Stdout)

	// 4 + 1.5 per dimension
	if population == 0 {
		population = 4 + 3*params.Dim()/2
	}
	slog.Info("starting CMA-ES",
		"params", params.Dim(), "population", population, "max_evals", maxEvals,
		"seeds", seeds, "max_ticks", maxTicks)

	_, err = optimize.Minimize(
		optimize.Problem{Func: t.objective},
		params.Normalize(params.ExtractFromConfig(baseCfg)),
		&optimize.Settings{FuncEvaluations: maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: population},
	)
	if err != nil {
		slog.Info("optimization ended", "reason", err)
	}

	if err := t.report(os.Stdout); err != nil {
		return err
	}

	bestCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := params.ApplyToConfig(bestCfg, t.bestRaw); err != nil {
		return err
	}
	out := filepath.Join(outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(out); err != nil {
		return err
	}
	slog.Info("best config saved", "path", out)
	return nil
}
