// Package stats provides the statistical tests and decompositions used by
// the sales pipeline.
//
// # Stationarity
//
// KPSS (null: stationary) drives the differencing decision; ADF (null: unit
// root) is available as a second opinion:
//
//	kpss, err := stats.KPSS(series, stats.Level, 0)
//	adf, err := stats.ADF(series, 0)
//
// The Analyzer runs KPSS, differences once when p <= alpha, and re-tests:
//
//	res, err := stats.NewAnalyzer(0.05, log).TestAndDifference(series)
//	res.Differenced, res.IsStationary(), res.Used
//
// # Differencing orders
//
//	d := stats.NDiffs(series, 2, stats.UnitRootKPSS)
//	D := stats.NSDiffs(series, 12, 1)
//
// # Decomposition
//
//	decomp, err := stats.Decompose(series, 12, stats.Additive)
//
// # Residual diagnostics
//
//	lb, err := stats.LjungBox(residuals, 10, p+q)
package stats
