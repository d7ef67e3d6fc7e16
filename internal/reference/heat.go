// Package reference provides the analytic solution used to score a trained
// network.
package reference

import "math"

// Heat is the closed-form solution of u_t = alpha u_xx on [0,1] with
// homogeneous Dirichlet boundaries and u(0,x) = sin(pi x) + 0.5 sin(4 pi x).
type Heat struct {
	Diffusivity float64
}

// Evaluate returns u(t,x).
func (h Heat) Evaluate(x, t float64) float64 {
	k := h.Diffusivity * math.Pi * math.Pi
	return math.Exp(-k*t)*math.Sin(math.Pi*x) + 0.5*math.Exp(-16*k*t)*math.Sin(4*math.Pi*x)
}
