package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sartorproj/salesforecast/timeseries"
)

func TestNDiffs(t *testing.T) {
	linear := make([]float64, 48)
	for i := range linear {
		linear[i] = float64(i)
	}

	tests := []struct {
		name   string
		series *timeseries.Series
		want   int
	}{
		{"linear trend", timeseries.New(linear), 1},
		{"seasonal only", trendPlusSeason(48, 0, 10), 0},
		{"too short", timeseries.New([]float64{1, 2, 3}), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NDiffs(tt.series, 2, UnitRootKPSS))
		})
	}
}

func TestNDiffsUnitRootTests(t *testing.T) {
	assert.Equal(t, UnitRootTest("kpss"), UnitRootKPSS)
	assert.Equal(t, UnitRootTest("adf"), UnitRootADF)

	series := ar1(100, 0.5)
	adf, err := ADF(series, 0)
	if assert.NoError(t, err) && adf.IsStationary {
		assert.Equal(t, 0, NDiffs(series, 2, UnitRootADF))
	}
	assert.Equal(t, 0, NDiffs(timeseries.New([]float64{1, 2, 3}), 2, UnitRootADF))
}

func TestNSDiffs(t *testing.T) {
	assert.Equal(t, 1, NSDiffs(trendPlusSeason(48, 0, 10), 12, 1))

	noise := make([]float64, 48)
	for i := range noise {
		noise[i] = float64((i * 7) % 23)
	}
	assert.Equal(t, 0, NSDiffs(timeseries.New(noise), 12, 1))
	assert.Equal(t, 0, NSDiffs(trendPlusSeason(20, 0, 10), 12, 1))
}

func TestSeasonalStrength(t *testing.T) {
	assert.InDelta(t, 1.0, SeasonalStrength(trendPlusSeason(48, 1, 10), 12), 1e-6)
	assert.Equal(t, 0.0, SeasonalStrength(timeseries.New(make([]float64, 10)), 12))
}

func TestCalculateIC(t *testing.T) {
	ic := CalculateIC(-100, 50, 3)
	assert.InDelta(t, 206, ic.AIC, 1e-12)
	assert.InDelta(t, 206+24.0/46.0, ic.AICc, 1e-12)
	assert.InDelta(t, 200+3*math.Log(50), ic.BIC, 1e-12)

	assert.True(t, math.IsInf(CalculateIC(-10, 4, 3).AICc, 1))
}

func TestGaussianLogLik(t *testing.T) {
	ll := GaussianLogLik(10, 10)
	assert.InDelta(t, -0.5*10*(math.Log(2*math.Pi)+1), ll, 1e-12)
	assert.True(t, math.IsInf(GaussianLogLik(1, 0), -1))
}
