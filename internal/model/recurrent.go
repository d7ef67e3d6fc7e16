package model

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"pinn-forge/internal/dataset"
)

// ErrSequenceLength is returned when the windows of one batch differ in
// length.
var ErrSequenceLength = errors.New("model: sequences in a batch must share one length")

// RecurrentPINN is an Elman cell unrolled over a window of points followed
// by a feed-forward head. The output at the last step predicts u at the
// window's label; input derivatives are taken with respect to that last
// point only, earlier steps act as context.
type RecurrentPINN struct {
	hidden int
	cell   *dense
	head   *network

	cellGrad *dense
	headGrad *network

	opt  *adam
	loss composer
}

// NewRecurrentPINN constructs the recurrent model.
func NewRecurrentPINN(opts Options) *RecurrentPINN {
	opts.defaults()
	rng := rand.New(rand.NewSource(opts.Seed))
	h := opts.Hidden[0]
	cell := newDense(h+2, h, true, rng)
	head := newNetwork(append(append([]int{h}, opts.Hidden[1:]...), 1), rng)
	m := &RecurrentPINN{
		hidden:   h,
		cell:     cell,
		head:     head,
		cellGrad: cell.zeroLike(),
		headGrad: head.zeroLike(),
		loss:     composer{op: opts.Operator, weights: opts.Weights},
	}
	m.opt = newAdam(opts.LearningRate, m.params())
	return m
}

func (m *RecurrentPINN) params() []*mat.Dense {
	return append([]*mat.Dense{m.cell.w, m.cell.b}, m.head.params()...)
}

func (m *RecurrentPINN) gradParams() []*mat.Dense {
	return append([]*mat.Dense{m.cellGrad.w, m.cellGrad.b}, m.headGrad.params()...)
}

type recurrentCache struct {
	steps  []*mat.Dense // cell inputs [h_{k-1}; x_k; t_k] for the unrolled steps
	states []*mat.Dense // h_k for the unrolled steps
	cell   *denseCache
	head   []*denseCache
}

// Forward evaluates u(x,t) as a window of length one.
func (m *RecurrentPINN) Forward(x, t float64) float64 {
	out, _ := m.forward([]dataset.Sequence{{{T: t, X: x}}})
	return out.v.At(0, 0)
}

func (m *RecurrentPINN) forward(seqs []dataset.Sequence) (jet, *recurrentCache) {
	n := len(seqs)
	steps := len(seqs[0])
	cache := &recurrentCache{}

	h := mat.NewDense(m.hidden, n, nil)
	for k := 0; k < steps-1; k++ {
		a := m.stack(h, seqs, k)
		h = m.cell.apply(a)
		cache.steps = append(cache.steps, a)
		cache.states = append(cache.states, h)
	}

	in := newJet(m.hidden+2, n)
	in.v = m.stack(h, seqs, steps-1)
	for j := 0; j < n; j++ {
		in.x.Set(m.hidden+rowX, j, 1)
		in.t.Set(m.hidden+rowT, j, 1)
	}
	state, cellCache := m.cell.forward(in)
	out, headCaches := m.head.forward(state)
	cache.cell = cellCache
	cache.head = headCaches
	return out, cache
}

// stack builds the cell input [h; x_k; t_k] for step k of every window.
func (m *RecurrentPINN) stack(h *mat.Dense, seqs []dataset.Sequence, k int) *mat.Dense {
	a := mat.NewDense(m.hidden+2, len(seqs), nil)
	for j, s := range seqs {
		for i := 0; i < m.hidden; i++ {
			a.Set(i, j, h.At(i, j))
		}
		a.Set(m.hidden+rowX, j, s[k].X)
		a.Set(m.hidden+rowT, j, s[k].T)
	}
	return a
}

func (m *RecurrentPINN) backward(cache *recurrentCache, g jet) {
	g = m.head.backward(cache.head, g, m.headGrad)
	in := m.cell.backward(cache.cell, g, m.cellGrad)

	_, n := in.v.Dims()
	hb := mat.DenseCopyOf(in.v.Slice(0, m.hidden, 0, n))
	var tmp mat.Dense
	for k := len(cache.states) - 1; k >= 0; k-- {
		zb := mat.NewDense(m.hidden, n, nil)
		zb.Apply(func(i, j int, v float64) float64 {
			s := cache.states[k].At(i, j)
			return v * (1 - s*s)
		}, hb)
		tmp.Mul(zb, cache.steps[k].T())
		m.cellGrad.w.Add(m.cellGrad.w, &tmp)
		tmp.Reset()
		addRowSums(m.cellGrad.b, zb)

		ab := mat.NewDense(m.hidden+2, n, nil)
		ab.Mul(m.cell.w.T(), zb)
		hb = mat.DenseCopyOf(ab.Slice(0, m.hidden, 0, n))
	}
}

func (m *RecurrentPINN) prepare(set dataset.SequenceSet) ([]dataset.Sequence, batch, error) {
	seqs := make([]dataset.Sequence, 0, set.Len())
	seqs = append(seqs, set.Initial...)
	seqs = append(seqs, set.Boundary...)
	seqs = append(seqs, set.Residual...)
	if len(seqs) == 0 {
		return nil, batch{}, ErrEmptyBatch
	}
	for _, s := range seqs {
		if len(s) != len(seqs[0]) || len(s) == 0 {
			return nil, batch{}, fmt.Errorf("%w: %d vs %d", ErrSequenceLength, len(s), len(seqs[0]))
		}
	}
	b, err := flatten(dataset.Labels(set.Initial), dataset.Labels(set.Boundary), dataset.Labels(set.Residual))
	return seqs, b, err
}

// TrainSequenceStep runs one full-batch gradient step over every window.
func (m *RecurrentPINN) TrainSequenceStep(batch dataset.SequenceSet) (float64, error) {
	seqs, b, err := m.prepare(batch)
	if err != nil {
		return 0, err
	}
	out, cache := m.forward(seqs)
	loss, g := m.loss.compose(out, b)

	zeroAll(m.gradParams())
	m.backward(cache, g)
	m.opt.update(m.params(), m.gradParams())
	return loss.Total, nil
}

// ValSequenceStep measures the loss without updating parameters.
func (m *RecurrentPINN) ValSequenceStep(batch dataset.SequenceSet) (float64, error) {
	seqs, b, err := m.prepare(batch)
	if err != nil {
		return 0, err
	}
	out, _ := m.forward(seqs)
	loss, _ := m.loss.compose(out, b)
	return loss.Total, nil
}

// Summary prints the layer table and parameter count.
func (m *RecurrentPINN) Summary(w io.Writer) {
	writeSummary(w, "RecurrentPINN", []section{
		{name: "cell", layers: []*dense{m.cell}},
		{name: "head", layers: m.head.layers},
	})
}

// Save writes the parameters as compressed JSON.
func (m *RecurrentPINN) Save(w io.Writer) error {
	return WriteWeights(w, kindRecurrent, m.params())
}

// Load restores parameters written by Save.
func (m *RecurrentPINN) Load(r io.Reader) error {
	return ReadWeights(r, kindRecurrent, m.params())
}
