package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pinn-forge/internal/config"
	"pinn-forge/internal/dataset"
	"pinn-forge/internal/device"
	"pinn-forge/internal/model"
	"pinn-forge/internal/reference"
	"pinn-forge/internal/trainer"
	"pinn-forge/internal/viz"
)

func main() {
	cfgPath := flag.String("config", "configs/default.yaml", "Path to YAML config")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	seed := flag.Int64("seed", 0, "PRNG seed (0 draws one from the clock)")
	recurrent := flag.Bool("recurrent", false, "Train the recurrent model on windowed points")
	results := flag.String("results", "", "Override the results directory")
	resume := flag.Bool("resume", false, "Resume from the latest checkpoint")
	logEvery := flag.Int("log-every", 0, "Log every N epochs")

	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		Epochs:     *epochs,
		Seed:       *seed,
		Recurrent:  *recurrent,
		ResultsDir: *results,
		LogEvery:   *logEvery,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("device %s", device.Detect())

	rng, runSeed := dataset.NewRand(cfg.Seed)
	log.Printf("seed=%d recurrent=%t", runSeed, cfg.Recurrent)

	points := dataset.Sample(cfg.Counts(), cfg.Domain, rng)

	sink, err := viz.NewFileSink(cfg.Output.ResultsDir, cfg.Output.WeightsDir, cfg.Recurrent)
	if err != nil {
		log.Fatalf("prepare outputs: %v", err)
	}
	if err := sink.Points(points); err != nil {
		log.Fatalf("plot collocation points: %v", err)
	}

	opts := model.Options{
		Hidden:       cfg.Model.Hidden,
		LearningRate: cfg.Model.LearningRate,
		Weights:      cfg.Model.Weights,
		Operator:     model.HeatOperator{Diffusivity: cfg.Model.Diffusivity},
		Reference:    reference.Heat{Diffusivity: cfg.Model.Diffusivity},
		Seed:         runSeed,
	}

	runCfg := trainer.RunConfig{
		Epochs:          cfg.Epochs,
		PlotEvery:       cfg.PlotEvery,
		CheckpointEvery: cfg.CheckpointEvery,
		LogEvery:        cfg.LogEvery,
		Domain:          cfg.Domain,
		GridSize:        cfg.GridSize,
		Seed:            rng.Int63(),
		Progress:        os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Recurrent {
		err = runRecurrent(ctx, cfg, opts, runCfg, points, rng, sink, *resume)
	} else {
		err = runPoints(ctx, cfg, opts, runCfg, points, rng, sink, *resume)
	}
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
}
