package metrics

import (
	"math"
	"time"
)

// Epoch is what the training loop measures for one pass over the data.
type Epoch struct {
	Index   int
	Points  int
	Shuffle time.Duration
	Steps   time.Duration
	Train   float64
	Val     float64
}

// Window aggregates the epochs between two log lines.
type Window struct {
	epochs   int
	points   int
	shuffle  time.Duration
	steps    time.Duration
	trainSum float64
	finite   int
	last     Epoch
}

// Record adds one epoch to the window. Non-finite training losses count
// towards the epoch total but are left out of the mean.
func (w *Window) Record(e Epoch) {
	w.epochs++
	w.points += e.Points
	w.shuffle += e.Shuffle
	w.steps += e.Steps
	if !math.IsNaN(e.Train) && !math.IsInf(e.Train, 0) {
		w.trainSum += e.Train
		w.finite++
	}
	w.last = e
}

// Snapshot summarises the window and resets it.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{
		Epochs:    w.epochs,
		LastEpoch: w.last.Index,
		Train:     w.last.Train,
		Val:       w.last.Val,
		MeanTrain: math.NaN(),
	}
	if total := w.shuffle + w.steps; total > 0 {
		snap.PointsPerSec = float64(w.points) / total.Seconds()
	}
	if w.epochs > 0 {
		snap.ShuffleMS = float64(w.shuffle.Microseconds()) / 1000 / float64(w.epochs)
		snap.StepMS = float64(w.steps.Microseconds()) / 1000 / float64(w.epochs)
	}
	if w.finite > 0 {
		snap.MeanTrain = w.trainSum / float64(w.finite)
	}
	*w = Window{}
	return snap
}

// Snapshot is the loggable view of a Window. MeanTrain is NaN when no epoch
// in the window had a finite training loss.
type Snapshot struct {
	Epochs       int
	LastEpoch    int
	PointsPerSec float64
	ShuffleMS    float64
	StepMS       float64
	MeanTrain    float64
	Train        float64
	Val          float64
}
