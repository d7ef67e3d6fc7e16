// Package viz renders training artefacts and writes checkpoints to disk.
package viz

import (
	"math"

	"pinn-forge/internal/dataset"
)

// Field is a predicted solution sampled on a regular grid. U[i][j] is the
// value at x=X[i], t=T[j].
type Field struct {
	T []float64
	X []float64
	U [][]float64
}

// SampleField evaluates predict over an n x n grid spanning dom.
func SampleField(predict func(x, t float64) float64, dom dataset.Domain, n int) Field {
	f := Field{
		T: dataset.Linspace(dom.TMin, dom.TMax, n),
		X: dataset.Linspace(dom.XMin, dom.XMax, n),
	}
	f.U = make([][]float64, len(f.X))
	for i, x := range f.X {
		row := make([]float64, len(f.T))
		for j, t := range f.T {
			row[j] = predict(x, t)
		}
		f.U[i] = row
	}
	return f
}

// grid adapts Field to plotter.GridXYZ with t along columns and x along rows.
type grid struct{ f Field }

func (g grid) Dims() (c, r int)   { return len(g.f.T), len(g.f.X) }
func (g grid) Z(c, r int) float64 { return finite(g.f.U[r][c]) }
func (g grid) X(c int) float64    { return g.f.T[c] }
func (g grid) Y(r int) float64    { return g.f.X[r] }

// finiteRange is the span of the finite cells, or 0,0 when there are none.
func (g grid) finiteRange() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	c, r := g.Dims()
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			v := g.Z(i, j)
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

// finite maps Inf to NaN so the heat map paints it with its NaN colour.
func finite(v float64) float64 {
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
