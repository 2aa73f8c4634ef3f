// Package arima implements ARIMA models estimated by conditional sum of
// squares.
//
// The package also holds the shared estimation engine, Estimate, for
// multiplicative seasonal structures (p,d,q)(P,D,Q)[m]; the sarima package
// builds on it.
//
// # Basic Usage
//
//	model := arima.New(1, 1, 0)
//	if err := model.Fit(series); err != nil {
//	    return err
//	}
//	point, lower, upper, err := model.PredictWithInterval(12, 0.95)
//
// Coefficients are found with gonum's Nelder-Mead and kept inside
// (-0.99, 0.99). A mean (drift after one difference) is estimated when the
// total differencing order is below two.
//
// For seasonal data, use the sarima package instead.
// For automatic model selection, use the autoarima package.
package arima
