package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salesforecast/timeseries"
)

// MinTestLength is the shortest series the unit-root tests accept.
const MinTestLength = 10

// ErrSeriesTooShort is returned when a series has fewer than MinTestLength
// observations.
var ErrSeriesTooShort = errors.New("series too short for stationarity test")

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64            `json:"statistic"`
	PValue       float64            `json:"p_value"`
	Lags         int                `json:"lags"`
	NObs         int                `json:"n_obs"`
	CriticalVals map[string]float64 `json:"critical_values"`
	IsStationary bool               `json:"is_stationary"`
}

// ADF performs the Augmented Dickey-Fuller test for a unit root with a
// constant. The null hypothesis is non-stationarity.
func ADF(series *timeseries.Series, maxLag int) (*ADFResult, error) {
	n := series.Len()
	if n < MinTestLength {
		return nil, ErrSeriesTooShort
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := series.Diff()

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i})
	nObs := n - maxLag - 1
	if nObs < MinTestLength {
		return nil, ErrSeriesTooShort
	}

	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff.Values[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, series.Values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff.Values[t-j])
		}
	}

	coeffs, se, err := olsRegression(x, y)
	if err != nil {
		return nil, err
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		Lags:      maxLag,
		NObs:      nObs,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue < 0.05,
	}, nil
}

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64            `json:"statistic"`
	PValue       float64            `json:"p_value"`
	Lags         int                `json:"lags"`
	CriticalVals map[string]float64 `json:"critical_values"`
	IsStationary bool               `json:"is_stationary"`
}

// Regression selects the deterministic terms of the KPSS null.
type Regression string

const (
	// Level tests stationarity around a constant.
	Level Regression = "c"
	// Trend tests stationarity around a linear trend.
	Trend Regression = "ct"
)

var kpssPValues = []float64{0.10, 0.05, 0.025, 0.01}

var kpssCritical = map[Regression][]float64{
	Level: {0.347, 0.463, 0.574, 0.739},
	Trend: {0.119, 0.146, 0.176, 0.216},
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test. The null
// hypothesis is stationarity; the long-run variance uses Bartlett weights.
// nlags <= 0 selects ceil(12*(n/100)^0.25).
func KPSS(series *timeseries.Series, regression Regression, nlags int) (*KPSSResult, error) {
	n := series.Len()
	if n < MinTestLength {
		return nil, ErrSeriesTooShort
	}
	if regression != Trend {
		regression = Level
	}
	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if nlags >= n {
		nlags = n - 1
	}

	residuals := make([]float64, n)
	if regression == Trend {
		t := make([]float64, n)
		for i := range t {
			t[i] = float64(i)
		}
		a, b := stat.LinearRegression(t, series.Values, nil, false)
		for i, v := range series.Values {
			residuals[i] = v - a - b*t[i]
		}
	} else {
		mean := series.Mean()
		for i, v := range series.Values {
			residuals[i] = v - mean
		}
	}

	cumSum := make([]float64, n)
	cumSum[0] = residuals[0]
	for i := 1; i < n; i++ {
		cumSum[i] = cumSum[i-1] + residuals[i]
	}

	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)

	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		weight := 1.0 - float64(l)/float64(nlags+1)
		s2 += 2 * weight * cov
	}

	if s2 <= 0 {
		s2 = 1e-10
	}

	etaSq := 0.0
	for _, cs := range cumSum {
		etaSq += cs * cs
	}
	kpssStat := etaSq / (float64(n) * float64(n) * s2)

	crit := kpssCritical[regression]
	pValue := kpssPValue(kpssStat, crit)

	return &KPSSResult{
		Statistic: kpssStat,
		PValue:    pValue,
		Lags:      nlags,
		CriticalVals: map[string]float64{
			"10%":  crit[0],
			"5%":   crit[1],
			"2.5%": crit[2],
			"1%":   crit[3],
		},
		IsStationary: pValue > 0.05,
	}, nil
}

// kpssPValue interpolates linearly in the critical value table and clips to
// [0.01, 0.10].
func kpssPValue(statistic float64, crit []float64) float64 {
	if statistic <= crit[0] {
		return kpssPValues[0]
	}
	last := len(crit) - 1
	if statistic >= crit[last] {
		return kpssPValues[last]
	}
	for i := 1; i <= last; i++ {
		if statistic <= crit[i] {
			frac := (statistic - crit[i-1]) / (crit[i] - crit[i-1])
			return kpssPValues[i-1] + frac*(kpssPValues[i]-kpssPValues[i-1])
		}
	}
	return kpssPValues[last]
}

// olsRegression returns OLS coefficients and their standard errors.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64, err error) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil, ErrSeriesTooShort
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil, errors.New("singular design matrix")
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, nil, errors.New("least squares solve failed")
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var resid mat.VecDense
	resid.SubVec(y, &fitted)
	sse := mat.Dot(&resid, &resid)
	s2 := sse / float64(n-k)

	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
	}
	if stdErrors[1] == 0 || math.IsNaN(stdErrors[1]) {
		return nil, nil, errors.New("degenerate regression")
	}
	return coeffs, stdErrors, nil
}

// mackinnonPValue approximates the ADF p-value for the constant-only case
// with MacKinnon's (1994) response surface.
func mackinnonPValue(tau float64) float64 {
	const (
		tauMax  = 2.74
		tauMin  = -18.83
		tauStar = -1.61
	)
	switch {
	case tau > tauMax:
		return 1
	case tau < tauMin:
		return 0
	}
	var z float64
	if tau <= tauStar {
		z = 2.1659 + 1.4412*tau + 0.038269*tau*tau
	} else {
		z = 1.7339 + 0.93202*tau - 0.12745*tau*tau - 0.010368*tau*tau*tau
	}
	return distuv.UnitNormal.CDF(z)
}
