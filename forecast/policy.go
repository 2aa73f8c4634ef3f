package forecast

import (
	"errors"
	"fmt"
)

// ErrNoModel is returned when a series has no computed evaluation to choose
// from.
var ErrNoModel = errors.New("no computed model")

// Policy chooses the production method for a series or cluster. Overrides
// take precedence when the overriding method was computed; otherwise the
// lowest test RMSE wins, ties going to the earlier entry of Methods.
type Policy struct {
	Overrides        map[string]Method
	ClusterOverrides map[int]Method
	// Default is used by cluster selection when no member has a computed
	// model.
	Default Method
}

// DefaultPolicy has no overrides and defaults to ARIMA.
func DefaultPolicy() Policy {
	return Policy{Default: ARIMA}
}

// ChooseBest picks the method for one series from its evaluations.
func (p Policy) ChooseBest(series string, evals map[Method]*Evaluation) (Method, error) {
	if m, ok := p.Overrides[series]; ok {
		if ev := evals[m]; ev != nil && ev.Computed() {
			return m, nil
		}
	}

	var best *Evaluation
	for _, m := range Methods {
		ev := evals[m]
		if ev == nil || !ev.Computed() {
			continue
		}
		if best == nil || ev.Accuracy.RMSE < best.Accuracy.RMSE {
			best = ev
		}
	}
	if best == nil {
		return "", fmt.Errorf("%s: %w", series, ErrNoModel)
	}
	return best.Method, nil
}

// Chosen returns the evaluation selected by ChooseBest, or nil.
func (p Policy) Chosen(series string, evals map[Method]*Evaluation) *Evaluation {
	m, err := p.ChooseBest(series, evals)
	if err != nil {
		return nil
	}
	return evals[m]
}
