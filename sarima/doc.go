// Package sarima implements Seasonal ARIMA models for monthly sales series.
//
// A SARIMA(p,d,q)(P,D,Q)[m] model multiplies the non-seasonal AR and MA
// polynomials by seasonal ones in B^m and applies d first and D seasonal
// differences:
//
//	model := sarima.New(0, 1, 1, 0, 1, 1, 12) // airline model
//	if err := model.Fit(series); err != nil {
//	    return err
//	}
//	point, lower, upper, err := model.PredictWithInterval(12, 0.95)
//
// Estimation is delegated to arima.EstimateCSS.
package sarima
