package sarima

import (
	"github.com/sartorproj/salesforecast/arima"
	"github.com/sartorproj/salesforecast/stats"
	"github.com/sartorproj/salesforecast/timeseries"
)

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
	// Seasonal components
	SP int `json:"sp"`
	SD int `json:"sd"`
	SQ int `json:"sq"`
	M  int `json:"m"`
}

func (o Order) structure() arima.Structure {
	return arima.Structure{P: o.P, D: o.D, Q: o.Q, SP: o.SP, SD: o.SD, SQ: o.SQ, M: o.M}
}

// Model represents a SARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64

	est *arima.Estimate
}

// New creates a new SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return &Model{
		Order: Order{
			P: p, D: d, Q: q,
			SP: sp, SD: sd, SQ: sq, M: m,
		},
	}
}

// Fit estimates the model by conditional sum of squares. The series must
// leave enough observations after both differencing and the seasonal AR
// window; otherwise a *timeseries.InsufficientHistoryError is returned.
func (m *Model) Fit(series *timeseries.Series) error {
	if m.Order.M <= 0 {
		m.Order.M = series.Period()
	}
	est, err := arima.EstimateCSS(series.Values, m.Order.structure())
	if err != nil {
		return err
	}

	m.est = est
	m.ARCoeffs = est.Phi
	m.MACoeffs = est.Theta
	m.SARCoeffs = est.SPhi
	m.SMACoeffs = est.STheta
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

// String renders the order, e.g. "ARIMA(1,1,0)(0,1,0)[12]".
func (m *Model) String() string {
	return m.Order.structure().String()
}

// Predict generates point forecasts for the specified number of steps ahead.
func (m *Model) Predict(steps int) ([]float64, error) {
	forecasts, _, _, err := m.PredictWithInterval(steps, 0.95)
	return forecasts, err
}

// PredictWithInterval generates forecasts with prediction intervals from the
// psi-weight expansion of the integrated process.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if m.est == nil {
		return nil, nil, nil, arima.ErrNotFitted
	}
	return m.est.Forecast(steps, confidence)
}

// Residuals returns the model residuals.
func (m *Model) Residuals() []float64 {
	if m.est == nil {
		return nil
	}
	return m.est.Residuals()
}

// Summary represents a model summary.
type Summary struct {
	Spec      string                `json:"spec"`
	Order     Order                 `json:"order"`
	ARCoeffs  []float64             `json:"ar"`
	MACoeffs  []float64             `json:"ma"`
	SARCoeffs []float64             `json:"sar"`
	SMACoeffs []float64             `json:"sma"`
	Intercept float64               `json:"intercept"`
	Variance  float64               `json:"variance"`
	AIC       float64               `json:"aic"`
	AICc      float64               `json:"aicc"`
	BIC       float64               `json:"bic"`
	LogLik    float64               `json:"log_lik"`
	NObs      int                   `json:"n_obs"`
	LjungBox  *stats.LjungBoxResult `json:"ljung_box,omitempty"`
}

// Summary returns a summary of the fitted model.
func (m *Model) Summary() *Summary {
	if m.est == nil {
		return nil
	}

	lb, _ := stats.LjungBox(m.est.Residuals(), 10, m.est.NumCoeffs())

	return &Summary{
		Spec:      m.String(),
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
		SARCoeffs: m.SARCoeffs,
		SMACoeffs: m.SMACoeffs,
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
