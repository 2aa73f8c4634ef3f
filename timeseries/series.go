package timeseries

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Series is a monthly time series. Identity is (Name, Metric): Name is the
// sub-category or "store-total", Metric is what was measured.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
	Metric     string
	Frequency  int
}

// New creates a monthly series starting at CanonicalStart. Values are copied.
func New(values []float64) *Series {
	return NewMonthly(CanonicalStart, values)
}

// NewMonthly creates a monthly series whose first observation falls in start.
func NewMonthly(start Period, values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = start.Add(i).Time()
	}
	v := make([]float64, len(values))
	copy(v, values)
	return &Series{
		Timestamps: timestamps,
		Values:     v,
		Frequency:  MonthlyFrequency,
	}
}

// NewWithTimestamps creates a series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	v := make([]float64, len(values))
	copy(v, values)
	return &Series{
		Timestamps: ts,
		Values:     v,
		Frequency:  MonthlyFrequency,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Start returns the period of the first observation.
func (s *Series) Start() Period {
	if len(s.Timestamps) == 0 {
		return Period{}
	}
	return PeriodOf(s.Timestamps[0])
}

// End returns the period of the last observation.
func (s *Series) End() Period {
	if len(s.Timestamps) == 0 {
		return Period{}
	}
	return PeriodOf(s.Timestamps[len(s.Timestamps)-1])
}

// Period returns the seasonal period, defaulting to monthly.
func (s *Series) Period() int {
	if s.Frequency <= 0 {
		return MonthlyFrequency
	}
	return s.Frequency
}

// Key is "name/metric", used to index series across stages.
func (s *Series) Key() string {
	if s.Metric == "" {
		return s.Name
	}
	return s.Name + "/" + s.Metric
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the sample standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the minimum value in the series.
func (s *Series) Min() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Min(s.Values)
}

// Max returns the maximum value in the series.
func (s *Series) Max() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(s.Values)
}

// AllPositive reports whether every value is strictly positive.
func (s *Series) AllPositive() bool {
	if len(s.Values) == 0 {
		return false
	}
	return floats.Min(s.Values) > 0
}

// Diff calculates the first difference of the series (d=1). The first
// period is dropped.
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN applies the first difference n times.
func (s *Series) DiffN(n int) *Series {
	out := s.Copy()
	for i := 0; i < n; i++ {
		out = out.lagDiff(1, "_diff")
	}
	return out
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m, "_sdiff")
}

func (s *Series) lagDiff(lag int, suffix string) *Series {
	out := &Series{Name: s.Name, Metric: s.Metric + suffix, Frequency: s.Frequency}
	if lag <= 0 || len(s.Values) <= lag {
		out.Values = []float64{}
		out.Timestamps = []time.Time{}
		return out
	}

	out.Values = make([]float64, len(s.Values)-lag)
	for i := lag; i < len(s.Values); i++ {
		out.Values[i-lag] = s.Values[i] - s.Values[i-lag]
	}

	out.Timestamps = make([]time.Time, len(out.Values))
	if len(s.Timestamps) > lag {
		copy(out.Timestamps, s.Timestamps[lag:])
	}
	return out
}

// Undiff inverts a first difference: it returns the cumulative sum of diffs
// starting from first, so Undiff(s.Values[0], s.Diff().Values) == s.Values.
func Undiff(first float64, diffs []float64) []float64 {
	out := make([]float64, len(diffs)+1)
	out[0] = first
	for i, d := range diffs {
		out[i+1] = out[i] + d
	}
	return out
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	out := &Series{Name: s.Name, Metric: s.Metric, Frequency: s.Frequency}
	if start >= end {
		out.Values = []float64{}
		out.Timestamps = []time.Time{}
		return out
	}

	out.Values = make([]float64, end-start)
	copy(out.Values, s.Values[start:end])

	out.Timestamps = make([]time.Time, len(out.Values))
	if len(s.Timestamps) >= end {
		copy(out.Timestamps, s.Timestamps[start:end])
	}
	return out
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
		Metric:     s.Metric,
		Frequency:  s.Frequency,
	}
}
