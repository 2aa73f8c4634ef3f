// Package salesforecast analyses a supermarket orders table: it cleans the
// order lines, builds monthly series per sub-category and for the whole
// store, compares ARIMA, Holt-Winters and ETS forecasts on a chronological
// train/test split, clusters sub-categories by trend and seasonal strength
// and forecasts each cluster with its chosen method.
//
// # Packages
//
//   - dataset: workbook and CSV loading, column pruning and typing
//   - aggregate: monthly order counts and store totals
//   - timeseries: monthly series, windows and train/test splits
//   - stats: KPSS and ADF tests, decomposition, ACF, Ljung-Box
//   - arima, sarima, autoarima: seasonal ARIMA by conditional sum of squares
//   - holtwinters, ets: exponential smoothing models
//   - forecast: the method engine, accuracy scores and selection policy
//   - cluster: component-strength features and average-linkage clustering
//   - selection: per-cluster summaries and final forecasts
//   - pipeline: one end-to-end run producing a Report
//   - config, logger: environment configuration and structured logging
//
// The batch entry point is cmd/salesforecast:
//
//	SALES_INPUT=orders.xlsx salesforecast -out out
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - Box, G. E. P., & Jenkins, G. M. (1976). Time Series Analysis: Forecasting and Control
package salesforecast
