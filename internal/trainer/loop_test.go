package trainer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"pinn-forge/internal/dataset"
	"pinn-forge/internal/metrics"
	"pinn-forge/internal/model"
	"pinn-forge/internal/reference"
	"pinn-forge/internal/viz"
)

type stubModel struct {
	trainBatches []dataset.Collocation
	valBatches   []dataset.Collocation
	accCalls     int
	failAt       int
}

func (s *stubModel) Forward(x, t float64) float64 { return x + t }
func (s *stubModel) Save(w io.Writer) error       { return nil }

func (s *stubModel) TrainStep(b dataset.Collocation) (float64, error) {
	s.trainBatches = append(s.trainBatches, b)
	if s.failAt > 0 && len(s.trainBatches) == s.failAt {
		return 0, errors.New("boom")
	}
	return 1.5, nil
}

func (s *stubModel) ValStep(b dataset.Collocation) (float64, error) {
	s.valBatches = append(s.valBatches, b)
	return 2.5, nil
}

func (s *stubModel) AccuracyStep(b dataset.Collocation) (float64, error) {
	s.accCalls++
	return 0.5, nil
}

// divergingModel reports non-finite losses and predictions from the start.
type divergingModel struct {
	stubModel
}

func (d *divergingModel) Forward(x, t float64) float64 { return math.NaN() }

func (d *divergingModel) Save(w io.Writer) error {
	return model.WriteWeights(w, "pinn", []*mat.Dense{mat.NewDense(1, 2, []float64{math.NaN(), math.Inf(1)})})
}

func (d *divergingModel) TrainStep(b dataset.Collocation) (float64, error) {
	d.trainBatches = append(d.trainBatches, b)
	return math.NaN(), nil
}

func (d *divergingModel) ValStep(b dataset.Collocation) (float64, error) {
	return math.Inf(1), nil
}

type stubSequenceModel struct {
	trainCalls, valCalls int
}

func (s *stubSequenceModel) Forward(x, t float64) float64 { return 0 }
func (s *stubSequenceModel) Save(w io.Writer) error       { return nil }

func (s *stubSequenceModel) TrainSequenceStep(b dataset.SequenceSet) (float64, error) {
	s.trainCalls++
	return 1, nil
}

func (s *stubSequenceModel) ValSequenceStep(b dataset.SequenceSet) (float64, error) {
	s.valCalls++
	return 2, nil
}

type recordingSink struct {
	fields      []int
	checkpoints []int
	losses      int
	lastLen     int
	fieldErr    error
}

func (s *recordingSink) Field(epoch int, f viz.Field) error {
	s.fields = append(s.fields, epoch)
	return s.fieldErr
}

func (s *recordingSink) Losses(h *metrics.History) error {
	s.losses++
	s.lastLen = h.Len()
	return nil
}

func (s *recordingSink) Checkpoint(epoch int, m model.Saver) error {
	s.checkpoints = append(s.checkpoints, epoch)
	return nil
}

func testConfig(epochs int) RunConfig {
	return RunConfig{
		Epochs:          epochs,
		PlotEvery:       100,
		CheckpointEvery: 1000,
		LogEvery:        50,
		Domain:          dataset.UnitDomain,
		GridSize:        2,
		Seed:            1,
	}
}

func testData(t *testing.T) (dataset.Collocation, dataset.Collocation) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	c := dataset.Sample(dataset.Counts{Initial: 10, Boundary: 10, Residual: 10}, dataset.UnitDomain, rng)
	train, val, err := dataset.Split(c, 0.2, rng)
	require.NoError(t, err)
	return train, val
}

func TestRunRecordsEveryEpoch(t *testing.T) {
	train, val := testData(t)
	m := &stubModel{}
	sink := &recordingSink{}
	h, err := Run(context.Background(), testConfig(3), m, train, val, sink)
	require.NoError(t, err)
	require.Equal(t, 3, h.Len())
	require.Equal(t, []float64{1.5, 1.5, 1.5}, h.Train())
	require.Equal(t, []float64{2.5, 2.5, 2.5}, h.Val())
	require.Equal(t, []float64{0.5, 0.5, 0.5}, h.Accuracy())
	require.Equal(t, 3, m.accCalls)
	require.Equal(t, 3, sink.losses)
	require.Equal(t, 3, sink.lastLen)
}

func TestRunShufflesTrainOnly(t *testing.T) {
	train, val := testData(t)
	m := &stubModel{}
	_, err := Run(context.Background(), testConfig(5), m, train, val, &recordingSink{})
	require.NoError(t, err)

	for i, b := range m.trainBatches {
		require.ElementsMatch(t, train.Initial, b.Initial, "epoch %d", i)
		require.ElementsMatch(t, train.Residual, b.Residual, "epoch %d", i)
	}
	require.NotEqual(t, m.trainBatches[0].Residual, m.trainBatches[1].Residual)
	for _, b := range m.valBatches {
		require.Equal(t, val, b)
	}
}

func TestRunCadence(t *testing.T) {
	train, val := testData(t)
	sink := &recordingSink{}
	_, err := Run(context.Background(), testConfig(1000), &stubModel{}, train, val, sink)
	require.NoError(t, err)
	require.Equal(t, []int{0, 100, 200, 300, 400, 500, 600, 700, 800, 900}, sink.fields)
	require.Equal(t, []int{0}, sink.checkpoints)
	require.Equal(t, 1000, sink.losses)
}

func TestRunRecurrentCheckpointsEveryInterval(t *testing.T) {
	c := dataset.Sample(dataset.Counts{Initial: 12, Boundary: 12, Residual: 12}, dataset.UnitDomain, rand.New(rand.NewSource(2)))
	set, err := dataset.Window(c, 3)
	require.NoError(t, err)
	train, val, err := dataset.SplitSequences(set, 0.25, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	cfg := testConfig(25)
	cfg.PlotEvery = 5
	cfg.CheckpointEvery = 10
	m := &stubSequenceModel{}
	sink := &recordingSink{}
	h, err := RunRecurrent(context.Background(), cfg, m, train, val, sink)
	require.NoError(t, err)
	require.Equal(t, 25, h.Len())
	require.Empty(t, h.Accuracy())
	require.Equal(t, 25, m.trainCalls)
	require.Equal(t, 25, m.valCalls)
	require.Equal(t, []int{0, 10, 20}, sink.checkpoints)
	require.Equal(t, []int{0, 5, 10, 15, 20}, sink.fields)
}

func TestRunStopsOnModelError(t *testing.T) {
	train, val := testData(t)
	m := &stubModel{failAt: 3}
	h, err := Run(context.Background(), testConfig(10), m, train, val, &recordingSink{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "epoch 2")
	require.Equal(t, 2, h.Len())
}

func TestRunStopsOnSinkError(t *testing.T) {
	train, val := testData(t)
	sinkErr := errors.New("disk full")
	_, err := Run(context.Background(), testConfig(10), &stubModel{}, train, val, &recordingSink{fieldErr: sinkErr})
	require.ErrorIs(t, err, sinkErr)
}

func TestRunHonoursCancellationBetweenEpochs(t *testing.T) {
	train, val := testData(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h, err := Run(ctx, testConfig(10), &stubModel{}, train, val, &recordingSink{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, h.Len())
}

func TestRunRejectsBadConfig(t *testing.T) {
	train, val := testData(t)
	cfg := testConfig(0)
	_, err := Run(context.Background(), cfg, &stubModel{}, train, val, &recordingSink{})
	require.Error(t, err)

	cfg = testConfig(1)
	cfg.GridSize = 1
	_, err = Run(context.Background(), cfg, &stubModel{}, train, val, &recordingSink{})
	require.Error(t, err)

	_, err = Run(context.Background(), testConfig(1), &stubModel{}, train, val, nil)
	require.Error(t, err)
}

func TestRunEndToEnd(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	c := dataset.Sample(dataset.Counts{Initial: 20, Boundary: 20, Residual: 20}, dataset.UnitDomain, rng)
	train, val, err := dataset.Split(c, 0.2, rng)
	require.NoError(t, err)

	m := model.NewPINN(model.Options{
		Hidden:       []int{8, 8},
		LearningRate: 1e-2,
		Reference:    reference.Heat{Diffusivity: 0.1},
		Seed:         5,
	})
	dir := t.TempDir()
	sink, err := viz.NewFileSink(dir, filepath.Join(dir, "weights"), false)
	require.NoError(t, err)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	cfg := testConfig(30)
	cfg.PlotEvery = 10
	cfg.CheckpointEvery = 20
	cfg.LogEvery = 10
	cfg.GridSize = 10
	h, err := Run(context.Background(), cfg, m, train, val, sink)
	require.NoError(t, err)
	require.Contains(t, logs.String(), "epoch=9 epochs=10 ")
	require.Contains(t, logs.String(), "epoch=29 terms total=")
	require.Contains(t, logs.String(), "residual=")
	require.Equal(t, 30, h.Len())
	curve := h.Train()
	require.Less(t, curve[len(curve)-1], curve[0])

	for _, name := range []string{"generated_0.png", "generated_10.png", "generated_20.png", "loss.png", "model_0.json.zlib", "model_20.json.zlib"} {
		require.FileExists(t, filepath.Join(dir, name))
	}
}

func TestRunKeepsGoingOnNonFiniteLosses(t *testing.T) {
	train, val := testData(t)
	dir := t.TempDir()
	sink, err := viz.NewFileSink(dir, filepath.Join(dir, "weights"), false)
	require.NoError(t, err)

	m := &divergingModel{}
	cfg := testConfig(3)
	cfg.PlotEvery = 1
	cfg.CheckpointEvery = 2
	cfg.GridSize = 4
	h, err := Run(context.Background(), cfg, m, train, val, sink)
	require.NoError(t, err)
	require.Equal(t, 3, h.Len())
	require.Len(t, m.trainBatches, 3)
	for _, v := range h.Train() {
		require.True(t, math.IsNaN(v))
	}
	for _, name := range []string{"generated_0.png", "generated_2.png", "loss.png", "model_0.json.zlib", "model_2.json.zlib"} {
		require.FileExists(t, filepath.Join(dir, name))
	}
}
