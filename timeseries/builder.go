package timeseries

// Build emits one observation per month in [start, end]. Months with no
// entry in values are zero-filled and entries outside the window are
// ignored.
func Build(values map[Period]float64, start, end Period, name, metric string) (*Series, error) {
	if end.Before(start) {
		return nil, &EmptyRangeError{Start: start, End: end}
	}

	n := start.MonthsUntil(end) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = values[start.Add(i)]
	}

	s := NewMonthly(start, out)
	s.Name = name
	s.Metric = metric
	return s, nil
}

// TrainTest is a chronological split of one series.
type TrainTest struct {
	Train *Series
	Test  *Series
}

// Split puts the first floor(fraction*n) observations in Train and the rest
// in Test.
func Split(s *Series, fraction float64) (*TrainTest, error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, ErrInvalidSplit
	}
	n := s.Len()
	// The epsilon keeps products like 0.7*90 from landing just under an integer.
	trainLen := int(fraction*float64(n) + 1e-9)
	if trainLen < 1 || trainLen >= n {
		return nil, ErrInvalidSplit
	}
	return &TrainTest{
		Train: s.Slice(0, trainLen),
		Test:  s.Slice(trainLen, n),
	}, nil
}

// Name returns the identity of the split series.
func (tt *TrainTest) Name() string {
	return tt.Train.Name
}
