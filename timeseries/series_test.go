package timeseries

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodArithmetic(t *testing.T) {
	p := Period{Year: 2014, Month: time.November}

	assert.Equal(t, Period{Year: 2014, Month: time.December}, p.Next())
	assert.Equal(t, Period{Year: 2015, Month: time.January}, p.Add(2))
	assert.Equal(t, Period{Year: 2013, Month: time.December}, p.Add(-11))
	assert.Equal(t, 47, CanonicalStart.MonthsUntil(CanonicalEnd))
	assert.True(t, CanonicalStart.Before(CanonicalEnd))
	assert.False(t, CanonicalEnd.Before(CanonicalStart))
	assert.Equal(t, "2014-11", p.String())
	assert.Equal(t, time.Date(2014, 11, 1, 0, 0, 0, 0, time.UTC), p.Time())

	parsed, err := ParsePeriod("2017-03")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2017, Month: time.March}, parsed)

	_, err = ParsePeriod("March 2017")
	assert.Error(t, err)
}

func TestPeriodText(t *testing.T) {
	var p Period
	require.NoError(t, p.UnmarshalText([]byte("2015-06")))
	b, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2015-06", string(b))
}

func TestBuild(t *testing.T) {
	values := map[Period]float64{
		{Year: 2014, Month: time.January}:  5,
		{Year: 2014, Month: time.March}:    7,
		{Year: 2013, Month: time.December}: 100, // before window
		{Year: 2018, Month: time.January}:  100, // after window
	}

	s, err := Build(values, CanonicalStart, CanonicalEnd, "Binders", "orders")
	require.NoError(t, err)

	assert.Equal(t, 48, s.Len())
	assert.Equal(t, "Binders", s.Name)
	assert.Equal(t, "orders", s.Metric)
	assert.Equal(t, MonthlyFrequency, s.Frequency)
	assert.Equal(t, []float64{5, 0, 7}, s.Values[:3])
	assert.Equal(t, CanonicalStart, s.Start())
	assert.Equal(t, CanonicalEnd, s.End())

	total := 0.0
	for _, v := range s.Values {
		assert.False(t, math.IsNaN(v))
		total += v
	}
	assert.Equal(t, 12.0, total)
}

func TestBuildSingleMonth(t *testing.T) {
	s, err := Build(nil, CanonicalStart, CanonicalStart, "Art", "orders")
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, s.Values)
}

func TestBuildEmptyRange(t *testing.T) {
	_, err := Build(nil, CanonicalEnd, CanonicalStart, "Art", "orders")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyRange))

	var rangeErr *EmptyRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, CanonicalEnd, rangeErr.Start)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n         int
		wantTrain int
	}{
		{48, 33},
		{18, 12},
		{90, 63},
		{10, 7},
	}
	for _, tt := range tests {
		s := New(make([]float64, tt.n))
		split, err := Split(s, 0.7)
		require.NoError(t, err)
		assert.Equal(t, tt.wantTrain, split.Train.Len(), "n=%d", tt.n)
		assert.Equal(t, tt.n-tt.wantTrain, split.Test.Len(), "n=%d", tt.n)
		assert.Equal(t, s.Timestamps[tt.wantTrain], split.Test.Timestamps[0])
	}
}

func TestSplitInvalid(t *testing.T) {
	_, err := Split(New([]float64{1}), 0.7)
	assert.ErrorIs(t, err, ErrInvalidSplit)

	_, err = Split(New([]float64{1, 2, 3}), 1.5)
	assert.ErrorIs(t, err, ErrInvalidSplit)
}

func TestDiff(t *testing.T) {
	s := New([]float64{1, 3, 6, 10, 15})
	s.Name = "Paper"
	s.Metric = "orders"

	diff := s.Diff()
	assert.Equal(t, []float64{2, 3, 4, 5}, diff.Values)
	assert.Equal(t, "Paper", diff.Name)
	assert.Equal(t, "orders_diff", diff.Metric)
	assert.Equal(t, s.Timestamps[1], diff.Timestamps[0])

	// input untouched
	assert.Equal(t, []float64{1, 3, 6, 10, 15}, s.Values)
}

func TestDiffN(t *testing.T) {
	s := New([]float64{1, 4, 9, 16, 25})
	assert.Equal(t, []float64{2, 2, 2}, s.DiffN(2).Values)
	assert.Equal(t, s.Values, s.DiffN(0).Values)
}

func TestSeasonalDiff(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []float64{3, 3, 3}, s.SeasonalDiff(3).Values)
	assert.Empty(t, s.SeasonalDiff(6).Values)
}

func TestUndiffInvertsDiff(t *testing.T) {
	s := New([]float64{12.5, 7, 0, 0, 31.25, 2, 19})
	got := Undiff(s.Values[0], s.Diff().Values)
	assert.Equal(t, s.Values, got)
}

func TestSlice(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, []float64{2, 3, 4}, s.Slice(1, 4).Values)
	assert.Equal(t, []float64{1, 2}, s.Slice(-1, 2).Values)
	assert.Empty(t, s.Slice(3, 3).Values)
}

func TestStatistics(t *testing.T) {
	s := New([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	assert.InDelta(t, 5.0, s.Mean(), 1e-12)
	assert.InDelta(t, 32.0/7.0, s.Variance(), 1e-12)
	assert.Equal(t, 2.0, s.Min())
	assert.Equal(t, 9.0, s.Max())
	assert.True(t, s.AllPositive())
	assert.False(t, New([]float64{1, 0}).AllPositive())
	assert.True(t, math.IsNaN(New(nil).Min()))
}

func TestCopyIsDeep(t *testing.T) {
	s := New([]float64{1, 2, 3})
	c := s.Copy()
	c.Values[0] = 99
	assert.Equal(t, 1.0, s.Values[0])
}

func TestRequireHistory(t *testing.T) {
	assert.NoError(t, RequireHistory("holt-winters", 24, 24))

	err := RequireHistory("holt-winters", 24, 12)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Contains(t, err.Error(), "need at least 24")
}
