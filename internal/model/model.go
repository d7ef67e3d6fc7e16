package model

import (
	"io"

	"pinn-forge/internal/dataset"
)

// Predictor evaluates the trained field.
type Predictor interface {
	Forward(x, t float64) float64
}

// Saver persists model parameters.
type Saver interface {
	Save(w io.Writer) error
}

// PointModel is trained on whole collocation sets.
type PointModel interface {
	Predictor
	Saver
	TrainStep(batch dataset.Collocation) (float64, error)
	ValStep(batch dataset.Collocation) (float64, error)
	AccuracyStep(batch dataset.Collocation) (float64, error)
}

// SequenceModel is trained on windowed collocation sets.
type SequenceModel interface {
	Predictor
	Saver
	TrainSequenceStep(batch dataset.SequenceSet) (float64, error)
	ValSequenceStep(batch dataset.SequenceSet) (float64, error)
}

// Options configures either network flavour.
type Options struct {
	// Hidden lists the hidden layer widths. The recurrent model uses the
	// first entry as its state size and the rest as the output head.
	Hidden       []int
	LearningRate float64
	Weights      Weights
	Operator     Operator
	Reference    Reference
	Seed         int64
}

func (o *Options) defaults() {
	if len(o.Hidden) == 0 {
		o.Hidden = []int{20, 20, 20}
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 1e-3
	}
	if o.Weights == (Weights{}) {
		o.Weights = UnitWeights
	}
	if o.Operator == nil {
		o.Operator = HeatOperator{Diffusivity: 0.1}
	}
}
