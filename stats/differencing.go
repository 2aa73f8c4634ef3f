package stats

import (
	"math"

	"github.com/sartorproj/salesforecast/timeseries"
)

// UnitRootTest names the test NDiffs uses.
type UnitRootTest string

const (
	UnitRootKPSS UnitRootTest = "kpss"
	UnitRootADF  UnitRootTest = "adf"
)

// SeasonalStrengthThreshold is the F_S level at which NSDiffs suggests a
// seasonal difference.
const SeasonalStrengthThreshold = 0.64

// NDiffs returns how many first differences (0..maxD) make the series
// stationary under the given test. A series that becomes too short to test
// stops the search.
func NDiffs(series *timeseries.Series, maxD int, test UnitRootTest) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := series
	for d := 0; d < maxD; d++ {
		stationary, err := isStationary(current, test)
		if err != nil {
			return d
		}
		if stationary {
			return d
		}
		current = current.Diff()
		if current.Len() < MinTestLength {
			return d + 1
		}
	}
	return maxD
}

func isStationary(series *timeseries.Series, test UnitRootTest) (bool, error) {
	if test == UnitRootADF {
		res, err := ADF(series, 0)
		if err != nil {
			return false, err
		}
		return res.IsStationary, nil
	}
	res, err := KPSS(series, Level, 0)
	if err != nil {
		return false, err
	}
	return res.IsStationary, nil
}

// NSDiffs returns how many seasonal differences (0..maxD) are suggested by
// the seasonal strength measure. Series shorter than two periods get 0.
func NSDiffs(series *timeseries.Series, period int, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	current := series
	for d := 0; d < maxD; d++ {
		if SeasonalStrength(current, period) < SeasonalStrengthThreshold {
			return d
		}
		current = current.SeasonalDiff(period)
		if current.Len() < 2*period {
			return d + 1
		}
	}
	return maxD
}

// SeasonalStrength computes F_S = max(0, 1 - Var(R)/Var(S+R)) from an
// additive decomposition.
func SeasonalStrength(series *timeseries.Series, period int) float64 {
	decomp, err := Decompose(series, period, Additive)
	if err != nil {
		return 0
	}

	sr := make([]float64, len(decomp.Seasonal.Values))
	for i := range sr {
		sr[i] = decomp.Seasonal.Values[i] + decomp.Residual.Values[i]
	}
	varSR := NaNVariance(sr)
	if varSR == 0 {
		return 0
	}

	return math.Max(0, 1-NaNVariance(decomp.Residual.Values)/varSR)
}

// InformationCriteria holds AIC, AICc and BIC for one fit.
type InformationCriteria struct {
	AIC    float64 `json:"aic"`
	AICc   float64 `json:"aicc"`
	BIC    float64 `json:"bic"`
	LogLik float64 `json:"log_lik"`
}

// CalculateIC calculates all information criteria from a log-likelihood.
// AICc is +Inf when n-k-1 <= 0.
func CalculateIC(logLik float64, nObs int, nParams int) InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	bic := -2*logLik + k*math.Log(n)

	aicc := math.Inf(1)
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	}

	return InformationCriteria{
		AIC:    aic,
		AICc:   aicc,
		BIC:    bic,
		LogLik: logLik,
	}
}

// GaussianLogLik is the concentrated Gaussian log-likelihood of n residuals
// with sum of squares sse.
func GaussianLogLik(sse float64, n int) float64 {
	if n == 0 {
		return math.Inf(-1)
	}
	nf := float64(n)
	sigma2 := sse / nf
	if sigma2 <= 0 {
		sigma2 = 1e-12
	}
	return -0.5 * nf * (math.Log(2*math.Pi*sigma2) + 1)
}
