package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"time"

	"github.com/schollz/progressbar/v3"

	"pinn-forge/internal/dataset"
	"pinn-forge/internal/metrics"
	"pinn-forge/internal/model"
	"pinn-forge/internal/viz"
)

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Epochs          int
	PlotEvery       int
	CheckpointEvery int
	LogEvery        int
	Domain          dataset.Domain
	GridSize        int
	// Seed drives the per-epoch shuffle. Zero picks a clock-based seed.
	Seed int64
	// Progress receives the live progress bar; nil hides it.
	Progress io.Writer
}

// Sink receives field snapshots, loss curves and checkpoints.
type Sink interface {
	Field(epoch int, f viz.Field) error
	Losses(h *metrics.History) error
	Checkpoint(epoch int, m model.Saver) error
}

// Run trains a feed-forward model. Each epoch reshuffles the training set,
// runs the train, validation and accuracy steps, and hands artefacts to
// sink. Any error from the model or the sink ends the run.
func Run(ctx context.Context, cfg RunConfig, m model.PointModel, train, val dataset.Collocation, sink Sink) (*metrics.History, error) {
	r := &runner{
		cfg:    cfg,
		model:  m,
		sink:   sink,
		points: train.Len() + 2*val.Len(),
		shuffle: func(rng *rand.Rand) {
			train = dataset.Shuffle(train, rng)
		},
		step: func() (epochResult, error) {
			var res epochResult
			var err error
			if res.train, err = m.TrainStep(train); err != nil {
				return res, fmt.Errorf("train step: %w", err)
			}
			if res.val, err = m.ValStep(val); err != nil {
				return res, fmt.Errorf("val step: %w", err)
			}
			if res.acc, err = m.AccuracyStep(val); err != nil {
				return res, fmt.Errorf("accuracy step: %w", err)
			}
			res.hasAcc = true
			return res, nil
		},
	}
	return r.run(ctx)
}

// RunRecurrent trains a recurrent model on windowed data. It follows Run
// without the accuracy step.
func RunRecurrent(ctx context.Context, cfg RunConfig, m model.SequenceModel, train, val dataset.SequenceSet, sink Sink) (*metrics.History, error) {
	r := &runner{
		cfg:    cfg,
		model:  m,
		sink:   sink,
		points: train.Len() + val.Len(),
		shuffle: func(rng *rand.Rand) {
			train = dataset.ShuffleSequences(train, rng)
		},
		step: func() (epochResult, error) {
			var res epochResult
			var err error
			if res.train, err = m.TrainSequenceStep(train); err != nil {
				return res, fmt.Errorf("train step: %w", err)
			}
			if res.val, err = m.ValSequenceStep(val); err != nil {
				return res, fmt.Errorf("val step: %w", err)
			}
			return res, nil
		},
	}
	return r.run(ctx)
}

type trainable interface {
	model.Predictor
	model.Saver
}

// lossReporter is implemented by models that keep the per-term breakdown
// of their latest training step.
type lossReporter interface {
	LastLoss() model.Loss
}

type epochResult struct {
	train, val, acc float64
	hasAcc          bool
}

type runner struct {
	cfg     RunConfig
	model   trainable
	sink    Sink
	points  int
	shuffle func(rng *rand.Rand)
	step    func() (epochResult, error)
}

func (r *runner) validate() error {
	if r.cfg.Epochs <= 0 {
		return errors.New("trainer: epochs must be > 0")
	}
	if r.cfg.PlotEvery <= 0 || r.cfg.CheckpointEvery <= 0 {
		return errors.New("trainer: plot and checkpoint intervals must be > 0")
	}
	if r.cfg.GridSize < 2 {
		return errors.New("trainer: grid size must be >= 2")
	}
	if r.sink == nil {
		return errors.New("trainer: sink is required")
	}
	if r.cfg.LogEvery <= 0 {
		r.cfg.LogEvery = 50
	}
	return nil
}

func (r *runner) run(ctx context.Context) (*metrics.History, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	rng, seed := dataset.NewRand(r.cfg.Seed)
	log.Printf("training epochs=%d shuffle_seed=%d", r.cfg.Epochs, seed)

	progress := r.cfg.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(r.cfg.Epochs,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Training"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("epoch"),
	)

	history := &metrics.History{}
	var window metrics.Window

	for epoch := 0; epoch < r.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		startData := time.Now()
		r.shuffle(rng)
		dataTime := time.Since(startData)

		startCompute := time.Now()
		res, err := r.step()
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		computeTime := time.Since(startCompute)

		history.Record(res.train, res.val)
		if res.hasAcc {
			history.RecordAccuracy(res.acc)
		}
		window.Record(metrics.Epoch{
			Index:   epoch,
			Points:  r.points,
			Shuffle: dataTime,
			Steps:   computeTime,
			Train:   res.train,
			Val:     res.val,
		})

		bar.Describe(fmt.Sprintf("Training loss=%.4g val_loss=%.4g", res.train, res.val))
		_ = bar.Add(1)

		if (epoch+1)%r.cfg.LogEvery == 0 {
			r.logWindow(window.Snapshot())
		}

		if epoch%r.cfg.PlotEvery == 0 {
			field := viz.SampleField(r.model.Forward, r.cfg.Domain, r.cfg.GridSize)
			if err := r.sink.Field(epoch, field); err != nil {
				return history, err
			}
		}
		if epoch%r.cfg.CheckpointEvery == 0 {
			if err := r.sink.Checkpoint(epoch, r.model); err != nil {
				return history, err
			}
		}
		if err := r.sink.Losses(history); err != nil {
			return history, err
		}
	}

	_ = bar.Finish()
	return history, nil
}

func (r *runner) logWindow(snap metrics.Snapshot) {
	log.Printf("epoch=%d epochs=%d points_per_sec=%.1f shuffle_ms=%.2f step_ms=%.2f mean_loss=%.6f loss=%.6f val_loss=%.6f",
		snap.LastEpoch,
		snap.Epochs,
		snap.PointsPerSec,
		snap.ShuffleMS,
		snap.StepMS,
		snap.MeanTrain,
		snap.Train,
		snap.Val,
	)
	if lr, ok := r.model.(lossReporter); ok {
		log.Printf("epoch=%d terms %s", snap.LastEpoch, lr.LastLoss())
	}
}
