package model

// Derivatives is the network output at one point together with the partial
// derivatives a differential operator may need.
type Derivatives struct {
	U   float64
	Ut  float64
	Ux  float64
	Uxx float64
}

// Operator is a linear PDE operator applied to the network output. Residual
// must vanish for an exact solution; Adjoint returns the gradient of g times
// the residual with respect to each derivative.
type Operator interface {
	Residual(d Derivatives) float64
	Adjoint(g float64) Derivatives
}

// HeatOperator is u_t - alpha u_xx.
type HeatOperator struct {
	Diffusivity float64
}

// Residual implements Operator.
func (h HeatOperator) Residual(d Derivatives) float64 {
	return d.Ut - h.Diffusivity*d.Uxx
}

// Adjoint implements Operator.
func (h HeatOperator) Adjoint(g float64) Derivatives {
	return Derivatives{Ut: g, Uxx: -h.Diffusivity * g}
}

// Reference is an analytic solution used for scoring.
type Reference interface {
	Evaluate(x, t float64) float64
}
