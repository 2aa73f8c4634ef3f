package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/salesforecast/timeseries"
)

func ar1(n int, phi float64) *timeseries.Series {
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + (float64(i%10)-5)/10
	}
	return timeseries.New(values)
}

func trendPlusSeason(n int, slope, amp float64) *timeseries.Series {
	values := make([]float64, n)
	for t := range values {
		values[t] = 100 + slope*float64(t) + amp*math.Sin(2*math.Pi*float64(t)/12)
	}
	return timeseries.New(values)
}

func TestACF(t *testing.T) {
	acf := ACF(ar1(100, 0.8), 10)
	require.Len(t, acf, 11)
	assert.InDelta(t, 1.0, acf[0], 1e-12)
	assert.Greater(t, acf[1], 0.5)
}

func TestACFConstantSeries(t *testing.T) {
	assert.Nil(t, ACF(timeseries.New([]float64{3, 3, 3, 3}), 2))
}

func TestPACF(t *testing.T) {
	pacf := PACF(ar1(100, 0.7), 10)
	require.Len(t, pacf, 11)
	assert.InDelta(t, 1.0, pacf[0], 1e-12)

	acf := ACF(ar1(100, 0.7), 1)
	assert.InDelta(t, acf[1], pacf[1], 1e-12)
}

func TestSignificantLags(t *testing.T) {
	values := []float64{1, 0.5, 0.1, -0.4, 0.05}
	assert.Equal(t, []int{1, 3}, SignificantLags(values, 0.3))
	assert.InDelta(t, 0.28, ConfidenceBound(49), 1e-12)
}

func TestKPSSTrendRejectsThenDifferenceAccepts(t *testing.T) {
	s := trendPlusSeason(48, 2, 10)

	raw, err := KPSS(s, Level, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, raw.Lags)
	assert.Greater(t, raw.Statistic, 0.463)
	assert.LessOrEqual(t, raw.PValue, 0.05)
	assert.False(t, raw.IsStationary)

	diffed, err := KPSS(s.Diff(), Level, 0)
	require.NoError(t, err)
	assert.Less(t, diffed.Statistic, 0.347)
	assert.Equal(t, 0.10, diffed.PValue)
	assert.True(t, diffed.IsStationary)
}

func TestKPSSPValueInterpolation(t *testing.T) {
	crit := kpssCritical[Level]
	tests := []struct {
		stat float64
		want float64
	}{
		{0.1, 0.10},
		{0.347, 0.10},
		{0.405, 0.075},
		{0.463, 0.05},
		{0.739, 0.01},
		{2.0, 0.01},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, kpssPValue(tt.stat, crit), 1e-9, "stat=%v", tt.stat)
	}
}

func TestKPSSTrendRegression(t *testing.T) {
	res, err := KPSS(trendPlusSeason(48, 2, 10), Trend, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.198, res.Statistic, 0.001)
	assert.GreaterOrEqual(t, res.PValue, 0.01)
	assert.LessOrEqual(t, res.PValue, 0.025)
	assert.Contains(t, res.CriticalVals, "2.5%")
}

func TestKPSSTooShort(t *testing.T) {
	_, err := KPSS(timeseries.New(make([]float64, 9)), Level, 0)
	assert.ErrorIs(t, err, ErrSeriesTooShort)
}

func TestADF(t *testing.T) {
	res, err := ADF(ar1(100, 0.5), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Lags)
	assert.Equal(t, 95, res.NObs)
	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
	assert.Equal(t, res.PValue < 0.05, res.IsStationary)

	_, err = ADF(timeseries.New(make([]float64, 5)), 0)
	assert.ErrorIs(t, err, ErrSeriesTooShort)
}

func TestMackinnonPValue(t *testing.T) {
	assert.InDelta(t, 0.05, mackinnonPValue(-2.86), 0.005)
	assert.InDelta(t, 0.01, mackinnonPValue(-3.43), 0.002)
	assert.Equal(t, 1.0, mackinnonPValue(3))
	assert.Equal(t, 0.0, mackinnonPValue(-20))
	assert.Less(t, mackinnonPValue(-4), mackinnonPValue(-1))
}

func TestLjungBox(t *testing.T) {
	s := trendPlusSeason(48, 0, 10)
	res, err := LjungBox(s.Values, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, res.DOF)
	assert.Greater(t, res.Statistic, 0.0)
	assert.Less(t, res.PValue, 0.05)

	res, err = LjungBox(make([]float64, 20), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.PValue)
	assert.Equal(t, 3, res.DOF)
}

func TestDecompose(t *testing.T) {
	s := trendPlusSeason(48, 2, 10)
	d, err := Decompose(s, 12, Additive)
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(d.Trend.Values[i]))
		assert.True(t, math.IsNaN(d.Trend.Values[47-i]))
	}
	for i := 6; i < 42; i++ {
		assert.InDelta(t, 100+2*float64(i), d.Trend.Values[i], 1e-9)
		assert.InDelta(t, 0, d.Residual.Values[i], 1e-9)
	}
	for i := 0; i < 48; i++ {
		assert.InDelta(t, 10*math.Sin(2*math.Pi*float64(i)/12), d.Seasonal.Values[i], 1e-9)
	}
	assert.Equal(t, "seasonal", d.Seasonal.Metric)
}

func TestDecomposeMultiplicative(t *testing.T) {
	values := make([]float64, 36)
	for i := range values {
		values[i] = 50 * (1 + 0.2*math.Cos(2*math.Pi*float64(i)/12))
	}
	d, err := Decompose(timeseries.New(values), 12, Multiplicative)
	require.NoError(t, err)

	sum := 0.0
	for i := 0; i < 12; i++ {
		sum += d.Seasonal.Values[i]
	}
	assert.InDelta(t, 12, sum, 1e-9)
}

func TestDecomposeInsufficientHistory(t *testing.T) {
	_, err := Decompose(timeseries.New(make([]float64, 18)), 12, Additive)
	assert.ErrorIs(t, err, timeseries.ErrInsufficientHistory)
}

func TestNaNVariance(t *testing.T) {
	assert.InDelta(t, 1.0, NaNVariance([]float64{math.NaN(), 1, 2, 3, math.NaN()}), 1e-12)
	assert.Equal(t, 0.0, NaNVariance([]float64{math.NaN(), 1}))
}
