package stats

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/salesforecast/timeseries"
)

func TestAnalyzerDifferencesOnce(t *testing.T) {
	a := NewAnalyzer(0, zerolog.Nop())
	s := trendPlusSeason(48, 2, 10)
	s.Name = "Binders"

	res, err := a.TestAndDifference(s)
	require.NoError(t, err)

	assert.False(t, res.Initial.IsStationary)
	assert.True(t, res.Differenced)
	require.NotNil(t, res.AfterDiff)
	assert.True(t, res.IsStationary())
	assert.Equal(t, res.AfterDiff.PValue, res.PValue())
	assert.Equal(t, 1, res.D())
	assert.Equal(t, 47, res.Used.Len())
	assert.Equal(t, "Binders", res.Series)
}

func TestAnalyzerLeavesStationarySeries(t *testing.T) {
	a := NewAnalyzer(DefaultAlpha, zerolog.Nop())
	s := trendPlusSeason(48, 0, 10)

	res, err := a.TestAndDifference(s)
	require.NoError(t, err)

	assert.False(t, res.Differenced)
	assert.Nil(t, res.AfterDiff)
	assert.True(t, res.IsStationary())
	assert.Same(t, s, res.Used)
	assert.Equal(t, 0, res.D())
}

func TestAnalyzerCorrelogram(t *testing.T) {
	res, err := NewAnalyzer(0, zerolog.Nop()).TestAndDifference(trendPlusSeason(48, 0, 10))
	require.NoError(t, err)

	assert.Contains(t, res.ACFLags, 1)
	assert.Contains(t, res.ACFLags, 12)
	assert.Contains(t, res.PACFLags, 1)
	for _, lag := range append(res.ACFLags, res.PACFLags...) {
		assert.LessOrEqual(t, lag, 24)
	}

	flat, err := NewAnalyzer(0, zerolog.Nop()).TestAndDifference(timeseries.New(make([]float64, 20)))
	require.NoError(t, err)
	assert.Empty(t, flat.ACFLags)
	assert.Empty(t, flat.PACFLags)
}

func TestAnalyzerStopsAfterOneDifference(t *testing.T) {
	// A quadratic stays non-stationary after one difference; the analyzer
	// still reports the single differenced series.
	values := make([]float64, 48)
	for i := range values {
		values[i] = float64(i * i)
	}
	res, err := NewAnalyzer(0, zerolog.Nop()).TestAndDifference(timeseries.New(values))
	require.NoError(t, err)

	assert.True(t, res.Differenced)
	assert.False(t, res.IsStationary())
	assert.Equal(t, 47, res.Used.Len())
}

func TestAnalyzerTooShort(t *testing.T) {
	_, err := NewAnalyzer(0, zerolog.Nop()).TestAndDifference(timeseries.New(make([]float64, 6)))
	assert.ErrorIs(t, err, ErrSeriesTooShort)
}
