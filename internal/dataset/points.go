package dataset

import (
	"math"
	"math/rand"
	"time"
)

// Point is a single collocation record. U is the target value for initial
// and boundary points and is left at zero for residual points.
type Point struct {
	T float64
	X float64
	U float64
}

// Collocation holds the three point categories of a run. Each category is
// split and shuffled as a whole record so its coordinates and targets never
// drift apart.
type Collocation struct {
	Initial  []Point
	Boundary []Point
	Residual []Point
}

// Len returns the total number of points across all categories.
func (c Collocation) Len() int {
	return len(c.Initial) + len(c.Boundary) + len(c.Residual)
}

// Counts captures the number of points to draw per category.
type Counts struct {
	Initial  int
	Boundary int
	Residual int
}

// Domain is the rectangle [TMin,TMax]x[XMin,XMax].
type Domain struct {
	TMin float64 `yaml:"t_min"`
	TMax float64 `yaml:"t_max"`
	XMin float64 `yaml:"x_min"`
	XMax float64 `yaml:"x_max"`
}

// UnitDomain is [0,1]x[0,1].
var UnitDomain = Domain{TMin: 0, TMax: 1, XMin: 0, XMax: 1}

// InitialCondition is u(0,x) = sin(pi x) + 0.5 sin(4 pi x).
func InitialCondition(x float64) float64 {
	return math.Sin(math.Pi*x) + 0.5*math.Sin(4*math.Pi*x)
}

// NewRand returns a PRNG seeded with seed. A zero seed draws one from the
// clock so unseeded runs differ; the chosen seed is returned for logging.
func NewRand(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// Sample draws the initial, boundary and residual point sets.
//
// Initial points sit at t=TMin on an evenly spaced x grid. Boundary points
// use an evenly spaced t grid with x picked per point by a fair coin between
// XMin and XMax. Residual points are uniform over the domain.
func Sample(counts Counts, dom Domain, rng *rand.Rand) Collocation {
	xs := Linspace(dom.XMin, dom.XMax, counts.Initial)
	initial := make([]Point, counts.Initial)
	for i, x := range xs {
		initial[i] = Point{T: dom.TMin, X: x, U: InitialCondition(x)}
	}

	ts := Linspace(dom.TMin, dom.TMax, counts.Boundary)
	boundary := make([]Point, counts.Boundary)
	for i, t := range ts {
		x := dom.XMin
		if rng.Float64() < 0.5 {
			x = dom.XMax
		}
		boundary[i] = Point{T: t, X: x, U: 0}
	}

	residual := make([]Point, counts.Residual)
	for i := range residual {
		t := dom.TMin + rng.Float64()*(dom.TMax-dom.TMin)
		x := dom.XMin + rng.Float64()*(dom.XMax-dom.XMin)
		residual[i] = Point{T: t, X: x}
	}

	return Collocation{Initial: initial, Boundary: boundary, Residual: residual}
}

// Linspace returns n evenly spaced values over [lo, hi], both ends included.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
