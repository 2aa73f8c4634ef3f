// Package numopt wraps gonum's Nelder-Mead minimiser for the model fitters.
package numopt

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Penalty is returned by objectives for infeasible or non-finite points.
const Penalty = 1e300

// Minimize runs Nelder-Mead from x0 and returns the best point seen. It never
// returns a point worse than x0; maxEvals <= 0 selects 400 per dimension.
func Minimize(f func(x []float64) float64, x0 []float64, maxEvals int) ([]float64, float64) {
	safe := func(x []float64) float64 {
		v := f(x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Penalty
		}
		return v
	}

	best := make([]float64, len(x0))
	copy(best, x0)
	bestF := safe(best)
	if len(x0) == 0 {
		return best, bestF
	}

	if maxEvals <= 0 {
		maxEvals = 400 * len(x0)
	}
	problem := optimize.Problem{Func: safe}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 50,
		},
	}

	// Hitting the evaluation limit is reported as an error but still leaves
	// the best simplex vertex in result.
	result, _ := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result != nil && len(result.X) == len(x0) && result.F < bestF {
		copy(best, result.X)
		bestF = result.F
	}
	return best, bestF
}

// Logistic maps the real line onto (0, 1).
func Logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Logit is the inverse of Logistic; p is clipped into (0, 1).
func Logit(p float64) float64 {
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	return math.Log(p / (1 - p))
}
