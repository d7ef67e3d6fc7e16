package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// adam is the Adam optimiser with the usual defaults.
type adam struct {
	lr, beta1, beta2, eps float64
	step                  int
	m, v                  []*mat.Dense
}

func newAdam(lr float64, params []*mat.Dense) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	for _, p := range params {
		r, c := p.Dims()
		a.m = append(a.m, mat.NewDense(r, c, nil))
		a.v = append(a.v, mat.NewDense(r, c, nil))
	}
	return a
}

func (a *adam) update(params, grads []*mat.Dense) {
	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))
	for i, p := range params {
		pd := p.RawMatrix().Data
		gd := grads[i].RawMatrix().Data
		md := a.m[i].RawMatrix().Data
		vd := a.v[i].RawMatrix().Data
		for k, g := range gd {
			md[k] = a.beta1*md[k] + (1-a.beta1)*g
			vd[k] = a.beta2*vd[k] + (1-a.beta2)*g*g
			pd[k] -= a.lr * (md[k] / c1) / (math.Sqrt(vd[k]/c2) + a.eps)
		}
	}
}
