package model

import (
	"errors"
	"fmt"

	"pinn-forge/internal/dataset"
)

// ErrEmptyBatch is returned when a step receives no points at all.
var ErrEmptyBatch = errors.New("model: empty batch")

// Weights scales each loss term before summation.
type Weights struct {
	Initial  float64 `yaml:"initial"`
	Boundary float64 `yaml:"boundary"`
	Residual float64 `yaml:"residual"`
}

// UnitWeights sums the three terms unweighted.
var UnitWeights = Weights{Initial: 1, Boundary: 1, Residual: 1}

// Loss is the per-term breakdown of a composite loss. Each term is a mean
// squared error; Total is their weighted sum.
type Loss struct {
	Initial  float64
	Boundary float64
	Residual float64
	Total    float64
}

func (l Loss) String() string {
	return fmt.Sprintf("total=%.6f initial=%.6f boundary=%.6f residual=%.6f", l.Total, l.Initial, l.Boundary, l.Residual)
}

// batch is a flattened view of the three categories. Columns are laid out
// initial first, then boundary, then residual.
type batch struct {
	xs, ts, us []float64
	nI, nB, nR int
}

func (b batch) len() int { return b.nI + b.nB + b.nR }

func flatten(initial, boundary, residual []dataset.Point) (batch, error) {
	b := batch{nI: len(initial), nB: len(boundary), nR: len(residual)}
	if b.len() == 0 {
		return batch{}, ErrEmptyBatch
	}
	b.xs = make([]float64, 0, b.len())
	b.ts = make([]float64, 0, b.len())
	b.us = make([]float64, 0, b.len())
	for _, group := range [][]dataset.Point{initial, boundary, residual} {
		for _, p := range group {
			b.xs = append(b.xs, p.X)
			b.ts = append(b.ts, p.T)
			b.us = append(b.us, p.U)
		}
	}
	return b, nil
}

// composer turns the network output jet into the composite loss and the
// adjoint jet that seeds the backward pass.
type composer struct {
	op      Operator
	weights Weights
}

func (c composer) compose(u jet, b batch) (Loss, jet) {
	var loss Loss
	g := newJet(1, b.len())

	mean := func(n int) float64 {
		if n == 0 {
			return 0
		}
		return 1 / float64(n)
	}

	inv := mean(b.nI)
	for j := 0; j < b.nI; j++ {
		d := u.v.At(0, j) - b.us[j]
		loss.Initial += d * d * inv
		g.v.Set(0, j, 2*c.weights.Initial*d*inv)
	}

	inv = mean(b.nB)
	for j := b.nI; j < b.nI+b.nB; j++ {
		d := u.v.At(0, j) - b.us[j]
		loss.Boundary += d * d * inv
		g.v.Set(0, j, 2*c.weights.Boundary*d*inv)
	}

	inv = mean(b.nR)
	for j := b.nI + b.nB; j < b.len(); j++ {
		r := c.op.Residual(Derivatives{
			U:   u.v.At(0, j),
			Ut:  u.t.At(0, j),
			Ux:  u.x.At(0, j),
			Uxx: u.xx.At(0, j),
		})
		loss.Residual += r * r * inv
		adj := c.op.Adjoint(2 * c.weights.Residual * r * inv)
		g.v.Set(0, j, adj.U)
		g.t.Set(0, j, adj.Ut)
		g.x.Set(0, j, adj.Ux)
		g.xx.Set(0, j, adj.Uxx)
	}

	loss.Total = c.weights.Initial*loss.Initial + c.weights.Boundary*loss.Boundary + c.weights.Residual*loss.Residual
	return loss, g
}
