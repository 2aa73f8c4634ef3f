// Package timeseries provides the monthly series type and the builders that
// turn aggregated counts into fixed-frequency series.
//
// # Building a Series
//
// Aggregates keyed by calendar month become a series with one point per
// month. Missing months are zero-filled:
//
//	counts := map[timeseries.Period]float64{
//	    {Year: 2014, Month: time.January}: 12,
//	    {Year: 2014, Month: time.March}:   9,
//	}
//	s, err := timeseries.Build(counts, timeseries.CanonicalStart, timeseries.CanonicalEnd, "Binders", "orders")
//
// # Splitting
//
// Evaluation uses a chronological split:
//
//	tt, err := timeseries.Split(s, 0.7) // 48 months -> 33 train, 15 test
//
// # Differencing
//
//	diff := s.Diff()                          // first period dropped
//	back := timeseries.Undiff(s.Values[0], diff.Values)
//	sdiff := s.SeasonalDiff(12)
//
// # CSV
//
// Series are exported as "ds,name,metric,y" with ISO dates:
//
//	err := timeseries.SaveCSV(s, "binders.csv")
package timeseries
