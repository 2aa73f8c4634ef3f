package ets

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/salesforecast/timeseries"
)

var pattern = []float64{-8, -5, 0, 3, 6, 9, 7, 4, 0, -4, -6, -6}

func trendSeason(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 2*float64(i) + pattern[i%12]
	}
	return values
}

func TestSpec(t *testing.T) {
	tests := []struct {
		spec  Spec
		name  string
		valid bool
	}{
		{Spec{Additive, None, None}, "ETS(A,N,N)", true},
		{Spec{Additive, Additive, Additive}, "ETS(A,A,A)", true},
		{Spec{Multiplicative, Multiplicative, Multiplicative}, "ETS(M,M,M)", true},
		{Spec{Additive, Additive, Multiplicative}, "ETS(A,A,M)", false},
		{Spec{None, None, None}, "ETS(N,N,N)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.spec.String())
			if tt.valid {
				assert.NoError(t, tt.spec.Validate())
			} else {
				assert.ErrorIs(t, tt.spec.Validate(), ErrInvalidSpec)
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	positive := timeseries.New(trendSeason(48))
	assert.Len(t, Candidates(positive, DefaultConfig()), 15)

	withZero := timeseries.New(append([]float64{0}, trendSeason(47)...))
	specs := Candidates(withZero, DefaultConfig())
	assert.Len(t, specs, 4)
	for _, s := range specs {
		assert.False(t, s.Multiplicative(), s.String())
	}

	config := DefaultConfig()
	config.Seasonal = false
	assert.Len(t, Candidates(positive, config), 6)
}

func TestAutoRecoversAdditivePattern(t *testing.T) {
	values := trendSeason(60)
	model, err := Auto(context.Background(), timeseries.New(values[:48]), DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "ETS(A,A,A)", model.String())
	forecasts, err := model.Predict(12)
	require.NoError(t, err)
	assert.InDeltaSlice(t, values[48:], forecasts, 1e-6)
}

func TestFitSimpleExponentialSmoothing(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 50 + float64((i*7)%5-2)
	}
	model := New(Spec{Additive, None, None}, 0)
	require.NoError(t, model.Fit(timeseries.New(values)))

	assert.Greater(t, model.Alpha, 0.0)
	assert.Less(t, model.Alpha, 1.0)
	assert.Len(t, model.Residuals(), 30)

	point, lower, upper, err := model.PredictWithInterval(6, 0.95)
	require.NoError(t, err)
	for i := 1; i < len(point); i++ {
		assert.InDelta(t, point[0], point[i], 1e-12)
	}
	assert.Greater(t, upper[5]-lower[5], upper[0]-lower[0])
}

func TestMultiplicativeNeedsPositiveData(t *testing.T) {
	values := trendSeason(36)
	values[5] = 0
	err := New(Spec{Multiplicative, Additive, Multiplicative}, 12).Fit(timeseries.New(values))
	assert.Error(t, err)
}

func TestMultiplicativeSeasonFit(t *testing.T) {
	values := make([]float64, 48)
	for i := range values {
		values[i] = (100 + float64(i)) * (1 + pattern[i%12]/20)
	}
	model := New(Spec{Multiplicative, Additive, Multiplicative}, 12)
	require.NoError(t, model.Fit(timeseries.New(values)))

	point, err := model.Predict(12)
	require.NoError(t, err)
	for _, v := range point {
		assert.False(t, math.IsNaN(v))
		assert.Positive(t, v)
	}
}

func TestAutoInsufficientHistory(t *testing.T) {
	_, err := Auto(context.Background(), timeseries.New(trendSeason(18)), DefaultConfig())
	assert.ErrorIs(t, err, timeseries.ErrInsufficientHistory)

	config := DefaultConfig()
	config.Seasonal = false
	model, err := Auto(context.Background(), timeseries.New(trendSeason(18)), config)
	require.NoError(t, err)
	assert.Equal(t, None, model.Spec.Season)
}

func TestAutoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Auto(ctx, timeseries.New(trendSeason(48)), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNotFitted(t *testing.T) {
	model := New(Spec{Additive, Additive, Additive}, 12)
	_, err := model.Predict(1)
	assert.ErrorIs(t, err, ErrNotFitted)
	assert.Nil(t, model.Residuals())
}
