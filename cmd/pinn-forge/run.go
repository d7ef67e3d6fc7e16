package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"

	"pinn-forge/internal/config"
	"pinn-forge/internal/dataset"
	"pinn-forge/internal/model"
	"pinn-forge/internal/trainer"
	"pinn-forge/internal/viz"
)

func runPoints(ctx context.Context, cfg *config.Config, opts model.Options, runCfg trainer.RunConfig,
	points dataset.Collocation, rng *rand.Rand, sink *viz.FileSink, resume bool) error {

	train, val, err := dataset.Split(points, cfg.Split, rng)
	if err != nil {
		return err
	}
	log.Printf("train=%d val=%d", train.Len(), val.Len())

	net := model.NewPINN(opts)
	if resume {
		if err := restore(cfg.Output.ResultsDir, net); err != nil {
			return err
		}
	}
	net.Summary(os.Stdout)

	_, err = trainer.Run(ctx, runCfg, net, train, val, sink)
	return err
}

func runRecurrent(ctx context.Context, cfg *config.Config, opts model.Options, runCfg trainer.RunConfig,
	points dataset.Collocation, rng *rand.Rand, sink *viz.FileSink, resume bool) error {

	windows, err := dataset.Window(points, cfg.SeqLen)
	if err != nil {
		return err
	}
	train, val, err := dataset.SplitSequences(windows, cfg.Split, rng)
	if err != nil {
		return err
	}
	log.Printf("seq_len=%d train=%d val=%d", cfg.SeqLen, train.Len(), val.Len())

	net := model.NewRecurrentPINN(opts)
	if resume {
		if err := restore(cfg.Output.WeightsDir, net); err != nil {
			return err
		}
	}
	net.Summary(os.Stdout)

	_, err = trainer.RunRecurrent(ctx, runCfg, net, train, val, sink)
	return err
}

func restore(dir string, l model.Loader) error {
	ckpt, ok, err := viz.LatestCheckpoint(dir)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("resume: no checkpoint under %s, starting fresh", dir)
		return nil
	}
	if err := model.ReadWeightsFromFile(ckpt.Path, l); err != nil {
		return fmt.Errorf("resume from %s: %w", ckpt.Path, err)
	}
	log.Printf("resume: loaded %s (epoch %d)", ckpt.Path, ckpt.Epoch)
	return nil
}
