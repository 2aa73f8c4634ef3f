// Package autoarima implements automatic ARIMA model selection.
//
// The differencing order d comes from KPSS (backed by ADF), the seasonal
// order D from the seasonal strength measure, and the ARMA orders from a
// stepwise or exhaustive search minimising an information criterion.
//
// # Basic Usage
//
//	result, err := autoarima.AutoARIMA(ctx, series, autoarima.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result, result.AIC, result.ModelsEvaluated)
//	point, lower, upper, err := result.PredictWithInterval(12, 0.95)
//
// Seasonal search runs only when the series holds at least two full
// seasons; if no seasonal candidate fits, the non-seasonal search is tried.
//
// # Pinning d
//
// Callers that already decided on differencing can pin it:
//
//	d := 1
//	cfg := autoarima.DefaultConfig()
//	cfg.FixedD = &d
package autoarima
