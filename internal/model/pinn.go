package model

import (
	"fmt"
	"io"
	"math/rand"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"

	"pinn-forge/internal/dataset"
)

// PINN is a feed-forward network u(x,t) trained against the composite
// initial, boundary and residual loss.
type PINN struct {
	net      *network
	grads    *network
	opt      *adam
	loss     composer
	ref      Reference
	lastLoss Loss
}

// NewPINN constructs the model with Xavier-initialised weights.
func NewPINN(opts Options) *PINN {
	opts.defaults()
	sizes := append(append([]int{2}, opts.Hidden...), 1)
	net := newNetwork(sizes, rand.New(rand.NewSource(opts.Seed)))
	return &PINN{
		net:   net,
		grads: net.zeroLike(),
		opt:   newAdam(opts.LearningRate, net.params()),
		loss:  composer{op: opts.Operator, weights: opts.Weights},
		ref:   opts.Reference,
	}
}

// Forward evaluates u(x,t).
func (m *PINN) Forward(x, t float64) float64 {
	out, _ := m.net.forward(inputJet([]float64{x}, []float64{t}))
	return out.v.At(0, 0)
}

// forwardJet evaluates u and its input derivatives at (x,t).
func (m *PINN) forwardJet(x, t float64) Derivatives {
	out, _ := m.net.forward(inputJet([]float64{x}, []float64{t}))
	return Derivatives{U: out.v.At(0, 0), Ut: out.t.At(0, 0), Ux: out.x.At(0, 0), Uxx: out.xx.At(0, 0)}
}

// TrainStep runs one full-batch gradient step and returns the loss measured
// before the update.
func (m *PINN) TrainStep(batch dataset.Collocation) (float64, error) {
	b, err := flatten(batch.Initial, batch.Boundary, batch.Residual)
	if err != nil {
		return 0, err
	}
	out, caches := m.net.forward(inputJet(b.xs, b.ts))
	loss, g := m.loss.compose(out, b)

	zeroAll(m.grads.params())
	m.net.backward(caches, g, m.grads)
	m.opt.update(m.net.params(), m.grads.params())
	m.lastLoss = loss
	return loss.Total, nil
}

// ValStep measures the composite loss without touching the parameters.
func (m *PINN) ValStep(batch dataset.Collocation) (float64, error) {
	loss, err := m.Evaluate(batch)
	if err != nil {
		return 0, err
	}
	return loss.Total, nil
}

// Evaluate returns the per-term loss breakdown for batch.
func (m *PINN) Evaluate(batch dataset.Collocation) (Loss, error) {
	b, err := flatten(batch.Initial, batch.Boundary, batch.Residual)
	if err != nil {
		return Loss{}, err
	}
	out, _ := m.net.forward(inputJet(b.xs, b.ts))
	loss, _ := m.loss.compose(out, b)
	return loss, nil
}

// LastLoss returns the breakdown recorded by the latest TrainStep.
func (m *PINN) LastLoss() Loss {
	return m.lastLoss
}

// AccuracyStep is the mean squared error between the network and the
// reference solution over every point of batch.
func (m *PINN) AccuracyStep(batch dataset.Collocation) (float64, error) {
	if m.ref == nil {
		return 0, fmt.Errorf("model: accuracy step needs a reference solution")
	}
	b, err := flatten(batch.Initial, batch.Boundary, batch.Residual)
	if err != nil {
		return 0, err
	}
	out, _ := m.net.forward(inputJet(b.xs, b.ts))
	sum := 0.0
	for j := range b.xs {
		d := out.v.At(0, j) - m.ref.Evaluate(b.xs[j], b.ts[j])
		sum += d * d
	}
	return sum / float64(b.len()), nil
}

// Summary prints the layer table and parameter count.
func (m *PINN) Summary(w io.Writer) {
	writeSummary(w, "PINN", []section{{name: "mlp", layers: m.net.layers}})
}

// Save writes the parameters as compressed JSON.
func (m *PINN) Save(w io.Writer) error {
	return WriteWeights(w, kindPINN, m.net.params())
}

// Load restores parameters written by Save.
func (m *PINN) Load(r io.Reader) error {
	return ReadWeights(r, kindPINN, m.net.params())
}

type section struct {
	name   string
	layers []*dense
}

func writeSummary(w io.Writer, title string, sections []section) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", title)
	fmt.Fprintf(tw, "layer\tshape\tactivation\tparams\n")
	total := 0
	for _, s := range sections {
		for i, l := range s.layers {
			act := "linear"
			if l.tanh {
				act = "tanh"
			}
			n := count(l.w) + count(l.b)
			total += n
			fmt.Fprintf(tw, "%s.%d\t%dx%d\t%s\t%d\n", s.name, i, l.inputs(), l.outputs(), act, n)
		}
	}
	fmt.Fprintf(tw, "total\t\t\t%d\n", total)
	tw.Flush()
}

func count(m *mat.Dense) int {
	r, c := m.Dims()
	return r * c
}
