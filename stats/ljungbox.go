package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// LjungBoxResult represents the result of a Ljung-Box test.
type LjungBoxResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Lags      int     `json:"lags"`
	DOF       int     `json:"dof"`
}

// LjungBox tests residuals for autocorrelation up to lag h. The null
// hypothesis is no autocorrelation. fitdf is the number of estimated ARMA
// coefficients.
func LjungBox(residuals []float64, lags, fitdf int) (*LjungBoxResult, error) {
	n := len(residuals)
	if n < MinTestLength {
		return nil, ErrSeriesTooShort
	}
	if lags < 1 {
		lags = 1
	}
	if lags >= n {
		lags = n - 1
	}

	r := acf(residuals, lags)
	if r == nil {
		// Constant residuals carry no autocorrelation.
		return &LjungBoxResult{PValue: 1, Lags: lags, DOF: max(lags-fitdf, 1)}, nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += r[k] * r[k] / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := max(lags-fitdf, 1)
	chi := distuv.ChiSquared{K: float64(dof)}

	return &LjungBoxResult{
		Statistic: q,
		PValue:    chi.Survival(q),
		Lags:      lags,
		DOF:       dof,
	}, nil
}
