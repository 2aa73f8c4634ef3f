// Package forecast fits the competing model families on train/test splits,
// scores their held-out forecasts and picks a production method.
//
// The Engine runs ARIMA (automatic order search), additive Holt-Winters and
// automatic ETS as independent tasks, each under its own timeout:
//
//	engine := forecast.NewEngine(forecast.DefaultConfig(), log)
//	evals := engine.FitAndEvaluate(ctx, split)
//	method, err := forecast.DefaultPolicy().ChooseBest("Binders", evals)
//	fc, _, err := engine.Refit(ctx, method, series, 12)
//
// A method that cannot run on too short a history is reported as
// StatusUnavailable; any other error or a timeout is StatusFailed. Fitted
// models are cached per series, method and split.
package forecast
