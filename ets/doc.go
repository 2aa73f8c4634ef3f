// Package ets implements exponential smoothing state-space models with
// additive or multiplicative error, trend and season.
//
// A model is written ETS(E,T,S) with each component one of N (none),
// A (additive) or M (multiplicative). Auto fits every admissible candidate
// and keeps the one with the lowest AICc:
//
//	model, err := ets.Auto(ctx, series, ets.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	point, lower, upper, err := model.PredictWithInterval(12, 0.95)
//
// Additive error with multiplicative season is never considered, and
// multiplicative components are only tried on strictly positive data.
package ets
