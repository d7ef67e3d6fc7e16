package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// jet is a batch of values together with their derivatives with respect to
// the network inputs: d/dt, d/dx and d2/dx2. Rows are features, columns
// index the batch.
type jet struct {
	v, t, x, xx *mat.Dense
}

func newJet(r, c int) jet {
	return jet{
		v:  mat.NewDense(r, c, nil),
		t:  mat.NewDense(r, c, nil),
		x:  mat.NewDense(r, c, nil),
		xx: mat.NewDense(r, c, nil),
	}
}

func (j jet) parts() [4]*mat.Dense {
	return [4]*mat.Dense{j.v, j.t, j.x, j.xx}
}

// Input rows of every network: row 0 is x, row 1 is t.
const (
	rowX = 0
	rowT = 1
)

// inputJet seeds the jet for raw (x, t) inputs.
func inputJet(xs, ts []float64) jet {
	in := newJet(2, len(xs))
	for j := range xs {
		in.v.Set(rowX, j, xs[j])
		in.v.Set(rowT, j, ts[j])
		in.x.Set(rowX, j, 1)
		in.t.Set(rowT, j, 1)
	}
	return in
}

// dense is an affine layer, optionally followed by tanh.
type dense struct {
	w    *mat.Dense // out x in
	b    *mat.Dense // out x 1
	tanh bool
}

func newDense(in, out int, tanh bool, rng *rand.Rand) *dense {
	limit := math.Sqrt(6 / float64(in+out))
	w := mat.NewDense(out, in, nil)
	for i := 0; i < out; i++ {
		for j := 0; j < in; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*limit)
		}
	}
	return &dense{w: w, b: mat.NewDense(out, 1, nil), tanh: tanh}
}

func (l *dense) zeroLike() *dense {
	r, c := l.w.Dims()
	return &dense{w: mat.NewDense(r, c, nil), b: mat.NewDense(r, 1, nil), tanh: l.tanh}
}

func (l *dense) inputs() int {
	_, c := l.w.Dims()
	return c
}

func (l *dense) outputs() int {
	r, _ := l.w.Dims()
	return r
}

type denseCache struct {
	in jet
	z  jet
	// tanh derivatives at z.v
	d1, d2, d3 *mat.Dense
}

// forward pushes a jet through the layer. Only the value row gets the bias;
// the derivative rows are linear in the input derivatives.
func (l *dense) forward(in jet) (jet, *denseCache) {
	r := l.outputs()
	_, c := in.v.Dims()
	z := newJet(r, c)
	z.v.Mul(l.w, in.v)
	addBias(z.v, l.b)
	z.t.Mul(l.w, in.t)
	z.x.Mul(l.w, in.x)
	z.xx.Mul(l.w, in.xx)
	cache := &denseCache{in: in, z: z}
	if !l.tanh {
		return z, cache
	}

	out := newJet(r, c)
	cache.d1 = mat.NewDense(r, c, nil)
	cache.d2 = mat.NewDense(r, c, nil)
	cache.d3 = mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s := math.Tanh(z.v.At(i, j))
			d1 := 1 - s*s
			d2 := -2 * s * d1
			d3 := -2 * (d1*d1 + s*d2)
			zx := z.x.At(i, j)
			out.v.Set(i, j, s)
			out.t.Set(i, j, d1*z.t.At(i, j))
			out.x.Set(i, j, d1*zx)
			out.xx.Set(i, j, d2*zx*zx+d1*z.xx.At(i, j))
			cache.d1.Set(i, j, d1)
			cache.d2.Set(i, j, d2)
			cache.d3.Set(i, j, d3)
		}
	}
	return out, cache
}

// backward takes the adjoint of the layer output jet, accumulates parameter
// gradients into grad and returns the adjoint of the input jet.
func (l *dense) backward(cache *denseCache, g jet, grad *dense) jet {
	zb := g
	if l.tanh {
		r, c := g.v.Dims()
		zb = newJet(r, c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				d1, d2, d3 := cache.d1.At(i, j), cache.d2.At(i, j), cache.d3.At(i, j)
				zt, zx, zxx := cache.z.t.At(i, j), cache.z.x.At(i, j), cache.z.xx.At(i, j)
				gv, gt, gx, gxx := g.v.At(i, j), g.t.At(i, j), g.x.At(i, j), g.xx.At(i, j)
				zb.v.Set(i, j, gv*d1+gt*d2*zt+gx*d2*zx+gxx*(d3*zx*zx+d2*zxx))
				zb.t.Set(i, j, gt*d1)
				zb.x.Set(i, j, gx*d1+2*gxx*d2*zx)
				zb.xx.Set(i, j, gxx*d1)
			}
		}
	}

	var tmp mat.Dense
	ins := cache.in.parts()
	for q, zq := range zb.parts() {
		tmp.Mul(zq, ins[q].T())
		grad.w.Add(grad.w, &tmp)
		tmp.Reset()
	}
	addRowSums(grad.b, zb.v)

	_, c := g.v.Dims()
	in := newJet(l.inputs(), c)
	for q, zq := range zb.parts() {
		in.parts()[q].Mul(l.w.T(), zq)
	}
	return in
}

// apply is the value-only forward pass used for unrolled recurrent steps.
func (l *dense) apply(a *mat.Dense) *mat.Dense {
	_, c := a.Dims()
	z := mat.NewDense(l.outputs(), c, nil)
	z.Mul(l.w, a)
	addBias(z, l.b)
	if l.tanh {
		z.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, z)
	}
	return z
}

func addBias(m, b *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		bi := b.At(i, 0)
		for j := 0; j < c; j++ {
			m.Set(i, j, m.At(i, j)+bi)
		}
	}
}

func addRowSums(dst, m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += m.At(i, j)
		}
		dst.Set(i, 0, dst.At(i, 0)+sum)
	}
}

// network is a stack of dense layers: tanh on every hidden layer, linear
// output.
type network struct {
	layers []*dense
}

// newNetwork builds a network with the given layer widths, input first.
func newNetwork(sizes []int, rng *rand.Rand) *network {
	n := &network{}
	for i := 0; i+1 < len(sizes); i++ {
		n.layers = append(n.layers, newDense(sizes[i], sizes[i+1], i+2 < len(sizes), rng))
	}
	return n
}

func (n *network) zeroLike() *network {
	out := &network{layers: make([]*dense, len(n.layers))}
	for i, l := range n.layers {
		out.layers[i] = l.zeroLike()
	}
	return out
}

func (n *network) forward(in jet) (jet, []*denseCache) {
	caches := make([]*denseCache, len(n.layers))
	out := in
	for i, l := range n.layers {
		out, caches[i] = l.forward(out)
	}
	return out, caches
}

func (n *network) backward(caches []*denseCache, g jet, grad *network) jet {
	for i := len(n.layers) - 1; i >= 0; i-- {
		g = n.layers[i].backward(caches[i], g, grad.layers[i])
	}
	return g
}

func (n *network) params() []*mat.Dense {
	out := make([]*mat.Dense, 0, 2*len(n.layers))
	for _, l := range n.layers {
		out = append(out, l.w, l.b)
	}
	return out
}

func zeroAll(ms []*mat.Dense) {
	for _, m := range ms {
		m.Zero()
	}
}
