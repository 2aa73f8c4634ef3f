package arima

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salesforecast/internal/numopt"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// minResidualDoF is the number of residual degrees of freedom a fit must
// keep after its coefficients.
const minResidualDoF = 5

// Structure is the lag structure of a multiplicative seasonal ARIMA model
// (p,d,q)(P,D,Q)[M]. M is ignored when P, D and Q are all zero.
type Structure struct {
	P, D, Q    int
	SP, SD, SQ int
	M          int
}

// Seasonal reports whether the structure has any seasonal term.
func (s Structure) Seasonal() bool {
	return s.M > 1 && s.SP+s.SD+s.SQ > 0
}

// NumCoeffs is the number of ARMA coefficients to estimate.
func (s Structure) NumCoeffs() int {
	n := s.P + s.Q
	if s.Seasonal() {
		n += s.SP + s.SQ
	}
	return n
}

// IncludesMean reports whether a constant is estimated. Following common
// practice the mean (drift) is kept for total differencing order below 2.
func (s Structure) IncludesMean() bool {
	total := s.D
	if s.Seasonal() {
		total += s.SD
	}
	return total < 2
}

func (s Structure) String() string {
	if !s.Seasonal() {
		return fmt.Sprintf("ARIMA(%d,%d,%d)", s.P, s.D, s.Q)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)(%d,%d,%d)[%d]", s.P, s.D, s.Q, s.SP, s.SD, s.SQ, s.M)
}

// Estimate is a process fitted by conditional sum of squares.
type Estimate struct {
	Structure
	Phi    []float64
	Theta  []float64
	SPhi   []float64
	STheta []float64
	Mean   float64
	Sigma2 float64
	IC     stats.InformationCriteria
	NObs   int

	history   []float64
	diffPoly  []float64
	arPoly    []float64
	maPoly    []float64
	w         []float64
	residuals []float64
	start     int
}

// EstimateCSS fits the structure to y by minimising the conditional sum of
// squares with Nelder-Mead.
func EstimateCSS(y []float64, s Structure) (*Estimate, error) {
	if s.P < 0 || s.D < 0 || s.Q < 0 || s.SP < 0 || s.SD < 0 || s.SQ < 0 {
		return nil, fmt.Errorf("invalid order %s", s)
	}
	if !s.Seasonal() {
		s.SP, s.SD, s.SQ = 0, 0, 0
	}
	m := max(s.M, 1)

	diffPoly := polyMul(powPoly([]float64{1, -1}, s.D), powPoly(seasonalDiffPoly(m), s.SD))
	offset := len(diffPoly) - 1
	arLen := s.P + s.SP*m

	need := offset + arLen + s.NumCoeffs() + boolInt(s.IncludesMean()) + minResidualDoF
	if err := timeseries.RequireHistory(s.String(), need, len(y)); err != nil {
		return nil, err
	}

	w := applyPoly(y, diffPoly)
	mean := 0.0
	if s.IncludesMean() {
		mean = stat.Mean(w, nil)
	}

	e := &Estimate{
		Structure: s,
		Mean:      mean,
		history:   append([]float64(nil), y...),
		diffPoly:  diffPoly,
		w:         w,
	}

	x0 := e.initialParams()
	objective := func(x []float64) float64 {
		e.setParams(x)
		_, sse := cssResiduals(e.w, e.Mean, e.arPoly, e.maPoly)
		return sse
	}
	best, _ := numopt.Minimize(objective, x0, 0)
	e.setParams(best)

	res, sse := cssResiduals(w, mean, e.arPoly, e.maPoly)
	e.residuals = res
	e.start = arLen
	e.NObs = len(w) - arLen
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return nil, fmt.Errorf("%s: fit diverged", s)
	}

	e.Sigma2 = sse / float64(e.NObs)
	k := s.NumCoeffs() + boolInt(s.IncludesMean()) + 1
	e.IC = stats.CalculateIC(stats.GaussianLogLik(sse, e.NObs), e.NObs, k)
	return e, nil
}

func (e *Estimate) initialParams() []float64 {
	m := max(e.M, 1)
	x := make([]float64, 0, e.NumCoeffs())

	ws := &timeseries.Series{Values: e.w}
	var phi []float64
	if e.P > 0 {
		if r := stats.ACF(ws, e.P); r != nil {
			phi = yuleWalker(r, e.P)
		}
	}
	for i := 0; i < e.P; i++ {
		v := 0.0
		if i < len(phi) {
			v = phi[i]
		}
		x = append(x, toUnbounded(v))
	}
	for i := 0; i < e.Q; i++ {
		x = append(x, toUnbounded(0.1))
	}
	if e.SP > 0 {
		r := stats.ACF(ws, e.SP*m)
		for i := 0; i < e.SP; i++ {
			v := 0.0
			if idx := (i + 1) * m; r != nil && idx < len(r) {
				v = 0.5 * r[idx]
			}
			x = append(x, toUnbounded(v))
		}
	}
	for i := 0; i < e.SQ; i++ {
		x = append(x, toUnbounded(0.1))
	}
	return x
}

func (e *Estimate) setParams(x []float64) {
	m := max(e.M, 1)
	take := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = toBounded(x[i])
		}
		x = x[n:]
		return out
	}
	e.Phi = take(e.P)
	e.Theta = take(e.Q)
	e.SPhi = take(e.SP)
	e.STheta = take(e.SQ)

	e.arPoly = polyMul(lagPoly(e.Phi, 1, -1), lagPoly(e.SPhi, m, -1))
	e.maPoly = polyMul(lagPoly(e.Theta, 1, 1), lagPoly(e.STheta, m, 1))
}

// Residuals returns the one-step residuals after the conditioning period.
func (e *Estimate) Residuals() []float64 {
	out := make([]float64, len(e.residuals)-e.start)
	copy(out, e.residuals[e.start:])
	return out
}

// Forecast projects steps ahead on the original scale with prediction
// intervals at the given confidence level.
func (e *Estimate) Forecast(steps int, confidence float64) (point, lower, upper []float64, err error) {
	if steps < 1 {
		return nil, nil, nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	n := len(e.w)
	w := make([]float64, n+steps)
	copy(w, e.w)
	res := make([]float64, n+steps)
	copy(res, e.residuals)

	for t := n; t < n+steps; t++ {
		pred := e.Mean
		for k := 1; k < len(e.arPoly); k++ {
			if t-k >= 0 {
				pred -= e.arPoly[k] * (w[t-k] - e.Mean)
			}
		}
		for k := 1; k < len(e.maPoly); k++ {
			if t-k >= 0 {
				pred += e.maPoly[k] * res[t-k]
			}
		}
		w[t] = pred
	}

	// Undo differencing: y_t = w_t - sum_{k>=1} D_k y_{t-k}.
	h := len(e.history)
	y := make([]float64, h+steps)
	copy(y, e.history)
	for i := 0; i < steps; i++ {
		t := h + i
		v := w[n+i]
		for k := 1; k < len(e.diffPoly); k++ {
			v -= e.diffPoly[k] * y[t-k]
		}
		y[t] = v
	}
	point = y[h:]

	psi := psiWeights(polyMul(e.arPoly, e.diffPoly), e.maPoly, steps)
	z := distuv.UnitNormal.Quantile((1 + confidence) / 2)
	lower = make([]float64, steps)
	upper = make([]float64, steps)
	cum := 0.0
	for i := 0; i < steps; i++ {
		cum += psi[i] * psi[i]
		se := math.Sqrt(e.Sigma2 * cum)
		lower[i] = point[i] - z*se
		upper[i] = point[i] + z*se
	}
	return point, lower, upper, nil
}

// cssResiduals returns residuals of the ARMA recursion on w. Residuals
// before the AR conditioning period are zero.
func cssResiduals(w []float64, mean float64, ar, ma []float64) ([]float64, float64) {
	res := make([]float64, len(w))
	sse := 0.0
	for t := len(ar) - 1; t < len(w); t++ {
		pred := mean
		for k := 1; k < len(ar); k++ {
			pred -= ar[k] * (w[t-k] - mean)
		}
		for k := 1; k < len(ma) && t-k >= 0; k++ {
			pred += ma[k] * res[t-k]
		}
		res[t] = w[t] - pred
		sse += res[t] * res[t]
	}
	return res, sse
}

// psiWeights returns the first n coefficients of ma(B)/ar(B).
func psiWeights(ar, ma []float64, n int) []float64 {
	psi := make([]float64, n)
	for j := 0; j < n; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for k := 1; k <= j && k < len(ar); k++ {
			v -= ar[k] * psi[j-k]
		}
		psi[j] = v
	}
	return psi
}

// lagPoly builds 1 + sign*sum(c_i B^{i*lag}).
func lagPoly(coeffs []float64, lag int, sign float64) []float64 {
	out := make([]float64, len(coeffs)*lag+1)
	out[0] = 1
	for i, c := range coeffs {
		out[(i+1)*lag] = sign * c
	}
	return out
}

func seasonalDiffPoly(m int) []float64 {
	out := make([]float64, m+1)
	out[0] = 1
	out[m] = -1
	return out
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

func powPoly(p []float64, n int) []float64 {
	out := []float64{1}
	for i := 0; i < n; i++ {
		out = polyMul(out, p)
	}
	return out
}

// applyPoly returns sum_k p_k y_{t-k} for every t with a full lag window.
func applyPoly(y, p []float64) []float64 {
	offset := len(p) - 1
	out := make([]float64, len(y)-offset)
	for t := offset; t < len(y); t++ {
		v := 0.0
		for k, c := range p {
			v += c * y[t-k]
		}
		out[t-offset] = v
	}
	return out
}

// Coefficients are kept inside (-0.99, 0.99).
func toBounded(x float64) float64 {
	return 0.99 * math.Tanh(x)
}

func toUnbounded(c float64) float64 {
	c = math.Max(-0.9, math.Min(0.9, c))
	return math.Atanh(c / 0.99)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// yuleWalker estimates AR coefficients from autocorrelations with the
// Levinson-Durbin recursion.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	v := 1 - phi[0]*phi[0]

	for i := 1; i < order; i++ {
		if v <= 0 {
			break
		}
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)

		v *= 1 - lambda*lambda
	}
	return phi
}
