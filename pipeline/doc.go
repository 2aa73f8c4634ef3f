// Package pipeline runs the sales analysis end to end: clean, aggregate,
// build series, test stationarity, evaluate the forecasting methods, cluster
// the sub-categories and forecast each cluster with its chosen method.
//
// Every stage takes the previous stages' artifacts and returns new ones; the
// Report collects them all.
//
// Per-series fits in the evaluation and final forecast stages run on at most
// Config.Workers goroutines; progress is reported through ProgressFunc.
package pipeline
