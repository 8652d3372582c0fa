// Package main replays an inventory scenario against the configured content
// and prints each step and the resulting inventories.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/config"
	"github.com/cory-johannsen/satchel/internal/content"
	"github.com/cory-johannsen/satchel/internal/metrics"
	"github.com/cory-johannsen/satchel/internal/observability"
	"github.com/cory-johannsen/satchel/internal/scenario"
	"github.com/cory-johannsen/satchel/internal/scripting"
	"github.com/cory-johannsen/satchel/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scenarioPath := flag.String("scenario", "", "path to the scenario YAML file")
	persist := flag.Bool("persist", false, "enable save steps and restore declarations against the configured database")
	showMetrics := flag.Bool("metrics", false, "print collected metrics after the run")
	noColor := flag.Bool("no-color", false, "disable coloured output")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: invsim -scenario <file> [-config <file>] [-persist] [-metrics] [-no-color]")
		os.Exit(2)
	}
	if *noColor {
		color.NoColor = true
	}

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewWriterLogger(cfg.Logging, os.Stderr)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	reg, err := content.Load(cfg.Engine.ContentDir, cfg.Engine.RecipeDir)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("items", len(reg.Items())),
		zap.Int("recipes", len(reg.Recipes())),
	)

	sc, err := scenario.LoadFile(*scenarioPath)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}

	promReg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(promReg)
	opts := []scenario.Option{
		scenario.WithLogger(logger),
		scenario.WithRecorder(recorder),
		scenario.WithMaxRetries(cfg.Engine.MaxRetries),
	}

	if cfg.Engine.ScriptDir != "" {
		rules := scripting.NewManager(cfg.Engine.ScriptInstructionLimit, logger)
		defer rules.Close()
		n, err := loadRuleSets(rules, cfg.Engine.ScriptDir)
		if err != nil {
			logger.Fatal("loading rule scripts", zap.Error(err))
		}
		logger.Info("rule sets loaded", zap.Int("sets", n), zap.String("dir", cfg.Engine.ScriptDir))
		opts = append(opts, scenario.WithRules(rules))
	}

	if *persist {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		opts = append(opts, scenario.WithStore(postgres.NewInventoryRepository(pool, reg)))
	}

	runner := scenario.NewRunner(reg, opts...)
	defer runner.Close()

	results, runErr := runner.Run(ctx, sc)
	printHeader(os.Stdout, sc)
	printResults(os.Stdout, sc, results)
	printInventories(os.Stdout, runner.Inventories())

	if *showMetrics {
		if err := observability.WriteMetrics(os.Stdout, promReg); err != nil {
			logger.Error("writing metrics", zap.Error(err))
		}
	}

	logger.Info("scenario finished",
		zap.String("scenario", sc.Name),
		zap.Int("steps", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if runErr != nil {
		logger.Error("scenario failed", zap.Error(runErr))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// loadRuleSets loads every subdirectory of dir as a rule set named after the
// subdirectory. A missing dir loads nothing.
func loadRuleSets(m *scripting.Manager, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.Load(e.Name(), filepath.Join(dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
