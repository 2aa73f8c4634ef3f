package arima

import (
	"errors"

	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// ErrNotFitted is returned by prediction methods before Fit succeeds.
var ErrNotFitted = errors.New("model must be fitted before prediction")

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

// Model is a non-seasonal ARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64

	est *Estimate
}

// New creates a new ARIMA model with the specified order.
func New(p, d, q int) *Model {
	return &Model{Order: Order{P: p, D: d, Q: q}}
}

// Fit estimates the model on series by conditional sum of squares. Too short
// a series yields a *timeseries.InsufficientHistoryError.
func (m *Model) Fit(series *timeseries.Series) error {
	est, err := EstimateCSS(series.Values, Structure{P: m.Order.P, D: m.Order.D, Q: m.Order.Q})
	if err != nil {
		return err
	}

	m.est = est
	m.ARCoeffs = est.Phi
	m.MACoeffs = est.Theta
	m.Intercept = est.Mean
	m.Variance = est.Sigma2
	m.AIC = est.IC.AIC
	m.AICc = est.IC.AICc
	m.BIC = est.IC.BIC
	m.LogLik = est.IC.LogLik
	return nil
}

// Fitted reports whether Fit has succeeded.
func (m *Model) Fitted() bool {
	return m.est != nil
}

// String renders the order, e.g. "ARIMA(1,1,0)".
func (m *Model) String() string {
	return Structure{P: m.Order.P, D: m.Order.D, Q: m.Order.Q}.String()
}

// Predict generates point forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	point, _, _, err := m.PredictWithInterval(steps, 0.95)
	return point, err
}

// PredictWithInterval generates forecasts with prediction intervals.
func (m *Model) PredictWithInterval(steps int, confidence float64) (point, lower, upper []float64, err error) {
	if m.est == nil {
		return nil, nil, nil, ErrNotFitted
	}
	return m.est.Forecast(steps, confidence)
}

// Residuals returns the model residuals after the conditioning period.
func (m *Model) Residuals() []float64 {
	if m.est == nil {
		return nil
	}
	return m.est.Residuals()
}

// Summary describes a fitted model.
type Summary struct {
	Spec      string                `json:"spec"`
	Order     Order                 `json:"order"`
	ARCoeffs  []float64             `json:"ar"`
	MACoeffs  []float64             `json:"ma"`
	Intercept float64               `json:"intercept"`
	Variance  float64               `json:"variance"`
	AIC       float64               `json:"aic"`
	AICc      float64               `json:"aicc"`
	BIC       float64               `json:"bic"`
	LogLik    float64               `json:"log_lik"`
	NObs      int                   `json:"n_obs"`
	LjungBox  *stats.LjungBoxResult `json:"ljung_box,omitempty"`
}

// Summary returns a summary of the fitted model, or nil before Fit.
func (m *Model) Summary() *Summary {
	if m.est == nil {
		return nil
	}

	// Residual diagnostics are best effort; short residual series skip them.
	lb, _ := stats.LjungBox(m.est.Residuals(), 10, m.Order.P+m.Order.Q)

	return &Summary{
		Spec:      m.String(),
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.est.NObs,
		LjungBox:  lb,
	}
}
